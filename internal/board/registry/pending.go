package registry

import "time"

// ============================================================
// Pending local inserts
// ============================================================

// Pending: id локально созданных строк, эхо которых ещё не пришло.
// Запись живёт до Consume или до истечения ttl.
type Pending struct {
	ttl   time.Duration
	now   func() time.Time
	until map[string]time.Time
}

const DefaultPendingTTL = 30 * time.Second

func NewPending(ttl time.Duration) *Pending {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &Pending{ttl: ttl, now: time.Now, until: make(map[string]time.Time)}
}

// WithClock подменяет часы (тесты).
func (p *Pending) WithClock(now func() time.Time) *Pending {
	p.now = now
	return p
}

func (p *Pending) Mark(id string) {
	p.until[id] = p.now().Add(p.ttl)
}

// Consume снимает id и сообщает, был ли он отмечен и не просрочен.
func (p *Pending) Consume(id string) bool {
	deadline, ok := p.until[id]
	if !ok {
		return false
	}
	delete(p.until, id)
	return p.now().Before(deadline)
}

func (p *Pending) Has(id string) bool {
	deadline, ok := p.until[id]
	return ok && p.now().Before(deadline)
}

// EvictExpired удаляет просроченные id и возвращает их количество.
func (p *Pending) EvictExpired() int {
	now := p.now()
	n := 0
	for id, deadline := range p.until {
		if !now.Before(deadline) {
			delete(p.until, id)
			n++
		}
	}
	return n
}

func (p *Pending) Len() int {
	return len(p.until)
}

func (p *Pending) Clear() {
	p.until = make(map[string]time.Time)
}
