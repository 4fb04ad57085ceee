package realtime

import (
	"sync"

	"garden-board/internal/garden/metrics"
	"garden-board/internal/garden/models"

	"github.com/rs/zerolog"
)

// ============================================================
// Realtime Hub
// ============================================================

// Hub рассылает события всем подписчикам. Publish никогда не блокируется:
// подписчик с переполненным буфером отключается и должен переподключиться.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	buffer int
	closed bool
	log    zerolog.Logger
}

type Subscription struct {
	id   uint64
	ch   chan models.Event
	hub  *Hub
	once sync.Once
}

func NewHub(buffer int, logger zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: buffer,
		log:    logger,
	}
}

// Subscribe регистрирует нового подписчика. После Close хаба канал сразу закрыт.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{id: h.nextID, ch: make(chan models.Event, h.buffer), hub: h}
	if h.closed {
		close(sub.ch)
		return sub
	}
	h.subs[sub.id] = sub
	metrics.SubscriberAdded()
	h.log.Debug().Uint64("sub", sub.id).Int("total", len(h.subs)).Msg("subscriber added")
	return sub
}

// Publish доставляет событие каждому подписчику в порядке вызовов.
func (h *Hub) Publish(ev models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	metrics.EventPublished(string(ev.Type))
	for id, sub := range h.subs {
		select {
		case sub.ch <- ev:
		default:
			h.log.Warn().Uint64("sub", id).Msg("subscriber buffer full, dropping")
			metrics.SubscriberDropped()
			h.removeLocked(id)
		}
	}
}

// Len возвращает число активных подписчиков.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close отключает всех подписчиков.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id := range h.subs {
		h.removeLocked(id)
	}
}

func (h *Hub) removeLocked(id uint64) {
	sub, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	metrics.SubscriberRemoved()
	sub.once.Do(func() { close(sub.ch) })
}

// C: канал событий; закрывается при отключении.
func (s *Subscription) C() <-chan models.Event {
	return s.ch
}

func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.removeLocked(s.id)
}
