package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"garden-board/internal/garden/realtime"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
)

// ============================================================
// Realtime Stream (SSE)
// ============================================================

type StreamHandler struct {
	hub       *realtime.Hub
	keepAlive time.Duration
	log       zerolog.Logger
}

func NewStreamHandler(hub *realtime.Hub, keepAlive time.Duration, logger zerolog.Logger) *StreamHandler {
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	return &StreamHandler{hub: hub, keepAlive: keepAlive, log: logger}
}

// Subscribe отдаёт поток событий garden_items в формате text/event-stream.
func (h *StreamHandler) Subscribe(c fiber.Ctx) error {
	sub := h.hub.Subscribe()

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer sub.Close()

		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()

		// первый комментарий сразу подтверждает подписку клиенту
		fmt.Fprint(w, ": subscribed\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case ev, ok := <-sub.C():
				if !ok {
					h.log.Debug().Msg("subscription closed by hub")
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					h.log.Error().Err(err).Msg("encode event")
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
			}
			if err := w.Flush(); err != nil {
				h.log.Debug().Err(err).Msg("client disconnected")
				return
			}
		}
	})
}
