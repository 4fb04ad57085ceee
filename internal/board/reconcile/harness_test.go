package reconcile

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sort"
	"sync"
	"testing"
	"time"

	"garden-board/internal/board/canvas"
	"garden-board/internal/board/registry"
	"garden-board/internal/board/store"
	"garden-board/internal/garden/models"
	"garden-board/internal/testutil/testlog"
)

// manualBackend: хранилище в памяти, но ленту событий подаёт тест.
type manualBackend struct {
	*store.Memory
	events chan models.Event
}

func (b *manualBackend) Subscribe(ctx context.Context) (<-chan models.Event, error) {
	return b.events, nil
}

type stubImages struct {
	mu           sync.Mutex
	failProcess  bool
	failOriginal bool
	gate         chan struct{} // если задан, Process ждёт его закрытия
	processed    int
	originals    int
}

var errNoImage = errors.New("no image")

func (s *stubImages) Process(ctx context.Context, url string) (image.Image, error) {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed++
	if s.failProcess {
		return nil, errNoImage
	}
	return leaf(48, 48), nil
}

func (s *stubImages) Original(ctx context.Context, url string) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.originals++
	if s.failOriginal {
		return nil, errNoImage
	}
	return leaf(48, 48), nil
}

func leaf(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{G: 160, A: 255})
		}
	}
	return img
}

type recorder struct {
	mu      sync.Mutex
	added   []string
	removed []string
	counts  []Counts
	sels    []Selection
	notices []string
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnItemAdded: func(m registry.Meta) {
			r.mu.Lock()
			r.added = append(r.added, m.Label)
			r.mu.Unlock()
		},
		OnItemRemoved: func(m registry.Meta) {
			r.mu.Lock()
			r.removed = append(r.removed, m.Label)
			r.mu.Unlock()
		},
		OnCounts: func(c Counts) {
			r.mu.Lock()
			r.counts = append(r.counts, c)
			r.mu.Unlock()
		},
		OnSelection: func(s Selection) {
			r.mu.Lock()
			r.sels = append(r.sels, s)
			r.mu.Unlock()
		},
		OnNotice: func(msg string) {
			r.mu.Lock()
			r.notices = append(r.notices, msg)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) snapshot() recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return recorder{
		added:   append([]string(nil), r.added...),
		removed: append([]string(nil), r.removed...),
		counts:  append([]Counts(nil), r.counts...),
		sels:    append([]Selection(nil), r.sels...),
		notices: append([]string(nil), r.notices...),
	}
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	mem    *store.Memory
	events chan models.Event
	scene  *canvas.Scene
	images *stubImages
	rec    *recorder
	c      *Controller
}

// newHarness запускает контроллер. manual=true: ленту событий пишет тест,
// иначе события идут из store.Memory.
func newHarness(t *testing.T, manual bool, ids ...string) *harness {
	t.Helper()
	return newWrappedHarness(t, manual, nil, ids...)
}

// newWrappedHarness как newHarness, но wrap может подменить методы хранилища.
func newWrappedHarness(t *testing.T, manual bool, wrap func(store.Backend) store.Backend, ids ...string) *harness {
	t.Helper()
	logger := testlog.Start(t)

	h := &harness{
		t:      t,
		mem:    store.NewMemory(logger),
		scene:  canvas.NewScene(400, 480),
		images: &stubImages{},
		rec:    &recorder{},
	}
	if len(ids) > 0 {
		var mu sync.Mutex
		h.mem.NewID = func() string {
			mu.Lock()
			defer mu.Unlock()
			id := ids[0]
			ids = ids[1:]
			return id
		}
	}

	var backend store.Backend = h.mem
	if manual {
		h.events = make(chan models.Event, 64)
		backend = &manualBackend{Memory: h.mem, events: h.events}
	}
	if wrap != nil {
		backend = wrap(backend)
	}
	h.c = New(backend, h.scene, h.images, h.rec.hooks(), Options{EvictInterval: 20 * time.Millisecond}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	h.ctx = ctx
	runErr := make(chan error, 1)
	go func() { runErr <- h.c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-runErr; err != nil {
			t.Errorf("run: %v", err)
		}
		h.mem.Close()
	})

	// цикл начинает принимать команды только после подписки на ленту
	h.do(func() {})
	return h
}

// do выполняет fn в цикле контроллера.
func (h *harness) do(fn func()) {
	h.t.Helper()
	if err := h.c.call(h.ctx, fn); err != nil {
		h.t.Fatalf("call: %v", err)
	}
}

func (h *harness) ids() []string {
	var ids []string
	h.do(func() { ids = h.c.reg.IDs() })
	return ids
}

func (h *harness) has(id string) bool {
	var ok bool
	h.do(func() { ok = h.c.reg.Has(id) })
	return ok
}

func (h *harness) object(id string) *canvas.Object {
	h.t.Helper()
	obj, err := h.c.Object(h.ctx, id)
	if err != nil {
		h.t.Fatalf("object %s: %v", id, err)
	}
	return obj
}

// settled: нет объектов в подготовке.
func (h *harness) settled() bool {
	var n int
	h.do(func() { n = len(h.c.inflight) })
	return n == 0
}

func (h *harness) send(typ models.EventType, row models.Item) {
	h.events <- models.Event{Type: typ, Row: row}
}

func (h *harness) seed(rows ...models.Item) {
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := range rows {
		if rows[i].URL == "" {
			rows[i].URL = "/plants/" + rows[i].ID + ".png"
		}
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = base.Add(time.Duration(i) * time.Second)
		}
	}
	h.mem.Seed(rows...)
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func sameIDs(got, want []string) bool {
	want = append([]string(nil), want...)
	sort.Strings(want)
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func row(id, label string, x, y float64) models.Item {
	return models.Item{ID: id, Label: label, URL: "/plants/" + id + ".png", X: x, Y: y, Scale: 1}
}
