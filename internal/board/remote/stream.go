package remote

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"garden-board/internal/garden/models"
)

// ============================================================
// Realtime Feed (SSE)
// ============================================================

// Subscribe открывает realtime поток. Первое подключение синхронное; при обрыве
// клиент переподключается с backoff до отмены ctx, после чего канал закрывается.
func (c *Client) Subscribe(ctx context.Context) (<-chan models.Event, error) {
	body, err := c.openStream(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan models.Event, 64)
	go c.pump(ctx, body, out)
	return out, nil
}

func (c *Client) openStream(ctx context.Context) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/realtime", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open realtime stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, statusError(resp.StatusCode, data)
	}
	return resp.Body, nil
}

func (c *Client) pump(ctx context.Context, body io.ReadCloser, out chan<- models.Event) {
	defer close(out)
	bo := newReconnectBackoff(c.backoff, rand.New(rand.NewSource(time.Now().UnixNano())))

	for {
		err := readEvents(ctx, body, out)
		body.Close()
		if ctx.Err() != nil {
			return
		}
		c.log.Warn().Err(err).Msg("realtime stream ended, reconnecting")

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(bo.Next()):
			}
			body, err = c.openStream(ctx)
			if err == nil {
				break
			}
			c.log.Debug().Err(err).Int("attempt", bo.Attempt()).Msg("reconnect failed")
		}

		c.log.Info().Int("attempts", bo.Attempt()).Msg("realtime stream restored")
		bo.Reset()
		if c.OnReconnect != nil {
			c.OnReconnect()
		}
	}
}

// readEvents разбирает text/event-stream до конца потока или отмены ctx.
func readEvents(ctx context.Context, r io.Reader, out chan<- models.Event) error {
	reader := bufio.NewReader(r)
	var (
		eventName string
		data      strings.Builder
	)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return fmt.Errorf("stream closed")
			}
			return err
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case line == "":
			if data.Len() > 0 {
				if ev, ok := decodeEvent(eventName, data.String()); ok {
					select {
					case out <- ev:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
			eventName = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// комментарий / keepalive
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
}

func decodeEvent(name, payload string) (models.Event, bool) {
	var ev models.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return models.Event{}, false
	}
	if ev.Type == "" && name != "" {
		t, err := models.ParseEventType(name)
		if err != nil {
			return models.Event{}, false
		}
		ev.Type = t
	}
	if _, err := models.ParseEventType(string(ev.Type)); err != nil || ev.Row.ID == "" {
		return models.Event{}, false
	}
	return ev, true
}
