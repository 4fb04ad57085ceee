package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"garden-board/internal/garden/models"
	"garden-board/internal/testutil/testlog"
)

func TestClientCRUD(t *testing.T) {
	var gotAuth atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/items", func(w http.ResponseWriter, r *http.Request) {
		var n models.NewItem
		_ = json.NewDecoder(r.Body).Decode(&n)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.Item{ID: "c", Label: n.Label, X: n.X, Y: n.Y, Scale: 1})
	})
	mux.HandleFunc("GET /api/v1/items", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]models.Item{{ID: "a"}, {ID: "b"}})
	})
	mux.HandleFunc("PATCH /api/v1/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "c" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"item not found"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(models.Item{ID: "c"})
	})
	mux.HandleFunc("DELETE /api/v1/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("DELETE /api/v1/items", func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"unauthorized"}`)
			return
		}
		_, _ = io.WriteString(w, `{"deleted":2}`)
	})
	mux.HandleFunc("POST /api/v1/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"token":"tok"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, testlog.Start(t))
	ctx := context.Background()

	it, err := c.Insert(ctx, models.NewItem{Label: "Tulip", URL: "/t.png", X: 50, Y: 60})
	if err != nil || it.ID != "c" || it.X != 50 {
		t.Fatalf("insert: %+v %v", it, err)
	}
	items, err := c.List(ctx)
	if err != nil || len(items) != 2 {
		t.Fatalf("list: %v %v", items, err)
	}
	if err := c.Update(ctx, "c", models.PosePatch(1, 2, 3)); err != nil {
		t.Fatalf("update: %v", err)
	}
	var se *StatusError
	if err := c.Update(ctx, "zzz", models.PosePatch(1, 2, 3)); !errors.As(err, &se) || se.Code != http.StatusNotFound || se.Message != "item not found" {
		t.Fatalf("expected 404 status error, got %v", err)
	}
	if err := c.Delete(ctx, "c"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := c.DeleteAll(ctx); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized before login, got %v", err)
	}
	if err := c.Login(ctx, "admin", "admin"); err != nil {
		t.Fatalf("login: %v", err)
	}
	n, err := c.DeleteAll(ctx)
	if err != nil || n != 2 {
		t.Fatalf("delete all: %d %v", n, err)
	}
	if gotAuth.Load() != "Bearer tok" {
		t.Fatalf("token not sent: %v", gotAuth.Load())
	}
}

func TestReadEventsParsesStream(t *testing.T) {
	raw := strings.Join([]string{
		": subscribed",
		"",
		"event: insert",
		`data: {"type":"insert","row":{"id":"a","label":"Rose"}}`,
		"",
		": ping",
		"",
		"event: delete",
		`data: {"row":{"id":"a"}}`,
		"",
		"event: bogus",
		`data: {"row":{"id":"b"}}`,
		"",
		`data: not-json`,
		"",
	}, "\n")

	out := make(chan models.Event, 8)
	err := readEvents(context.Background(), strings.NewReader(raw), out)
	if err == nil {
		t.Fatalf("expected end-of-stream error")
	}
	close(out)

	var got []models.Event
	for ev := range out {
		got = append(got, ev)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %+v", got)
	}
	if got[0].Type != models.EventInsert || got[0].Row.Label != "Rose" {
		t.Fatalf("unexpected first event %+v", got[0])
	}
	if got[1].Type != models.EventDelete || got[1].Row.ID != "a" {
		t.Fatalf("event type must fall back to event name, got %+v", got[1])
	}
}

func TestSubscribeReconnects(t *testing.T) {
	var conns atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/realtime", func(w http.ResponseWriter, r *http.Request) {
		n := conns.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "event: insert\ndata: {\"type\":\"insert\",\"row\":{\"id\":\"item-%d\"}}\n\n", n)
		w.(http.Flusher).Flush()
		if n > 1 {
			<-r.Context().Done()
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, testlog.Start(t))
	c.backoff = BackoffConfig{InitialDelay: 10 * time.Millisecond, MaxDelay: 20 * time.Millisecond, Multiplier: 2}
	reconnected := make(chan struct{}, 1)
	c.OnReconnect = func() { reconnected <- struct{}{} }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := c.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	for _, want := range []string{"item-1", "item-2"} {
		select {
		case ev := <-events:
			if ev.Row.ID != want {
				t.Fatalf("got %s want %s", ev.Row.ID, want)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timeout waiting for %s", want)
		}
	}
	select {
	case <-reconnected:
	case <-time.After(time.Second):
		t.Fatalf("OnReconnect not called")
	}

	cancel()
	select {
	case _, ok := <-events:
		for ok {
			_, ok = <-events
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("channel not closed after cancel")
	}
}

func TestReconnectBackoffGrowsAndResets(t *testing.T) {
	cfg := BackoffConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}
	bo := newReconnectBackoff(cfg, nil)
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second, time.Second}
	for i, w := range want {
		if d := bo.Next(); d != w {
			t.Fatalf("attempt %d: got %v want %v", i+1, d, w)
		}
	}
	bo.Reset()
	if d := bo.Next(); d != 100*time.Millisecond || bo.Attempt() != 1 {
		t.Fatalf("after reset: %v (attempt %d)", d, bo.Attempt())
	}

	cfg.Jitter = 0.5
	jittered := newReconnectBackoff(cfg, rand.New(rand.NewSource(1)))
	jittered.Next()
	if d := jittered.Next(); d < 100*time.Millisecond || d > 300*time.Millisecond {
		t.Fatalf("jittered delay out of range: %v", d)
	}
}
