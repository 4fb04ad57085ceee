package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"garden-board/internal/garden/models"
	"garden-board/internal/garden/realtime"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("item not found")

// Memory: Backend в памяти процесса. Каждая запись публикует по событию на строку,
// так же как garden сервис.
type Memory struct {
	mu    sync.Mutex
	items map[string]models.Item
	hub   *realtime.Hub
	fail  map[string]error

	NewID func() string
	Now   func() time.Time
}

func NewMemory(logger zerolog.Logger) *Memory {
	return &Memory{
		items: make(map[string]models.Item),
		hub:   realtime.NewHub(256, logger),
		fail:  make(map[string]error),
		NewID: uuid.NewString,
		Now:   time.Now,
	}
}

// FailNext: следующий вызов op ("insert", "update", "delete", "clear", "list") вернёт err.
func (m *Memory) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = err
}

func (m *Memory) takeFailure(op string) error {
	err, ok := m.fail[op]
	if ok {
		delete(m.fail, op)
	}
	return err
}

// Seed кладёт строки без публикации событий (предзаполнение доски).
func (m *Memory) Seed(items ...models.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		m.items[it.ID] = it
	}
}

func (m *Memory) List(ctx context.Context) ([]models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("list"); err != nil {
		return nil, err
	}

	out := make([]models.Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	sortItems(out)
	return out, nil
}

func (m *Memory) Insert(ctx context.Context, n models.NewItem) (models.Item, error) {
	n, err := n.Normalize()
	if err != nil {
		return models.Item{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("insert"); err != nil {
		return models.Item{}, err
	}

	it := models.Item{
		ID:        m.NewID(),
		Label:     n.Label,
		URL:       n.URL,
		X:         n.X,
		Y:         n.Y,
		Scale:     n.Scale,
		Angle:     n.Angle,
		CreatedAt: m.Now().UTC(),
	}
	if _, dup := m.items[it.ID]; dup {
		return models.Item{}, fmt.Errorf("duplicate id %q", it.ID)
	}
	m.items[it.ID] = it
	m.hub.Publish(models.Event{Type: models.EventInsert, Row: it})
	return it, nil
}

func (m *Memory) Update(ctx context.Context, id string, patch models.ItemPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("update"); err != nil {
		return err
	}

	it, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	it = patch.Apply(it)
	m.items[id] = it
	m.hub.Publish(models.Event{Type: models.EventUpdate, Row: it})
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("delete"); err != nil {
		return err
	}

	it, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	m.hub.Publish(models.Event{Type: models.EventDelete, Row: it})
	return nil
}

func (m *Memory) DeleteAll(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("clear"); err != nil {
		return 0, err
	}

	rows := make([]models.Item, 0, len(m.items))
	for _, it := range m.items {
		rows = append(rows, it)
	}
	sortItems(rows)
	m.items = make(map[string]models.Item)
	for _, it := range rows {
		m.hub.Publish(models.Event{Type: models.EventDelete, Row: it})
	}
	return len(rows), nil
}

func (m *Memory) Subscribe(ctx context.Context) (<-chan models.Event, error) {
	sub := m.hub.Subscribe()
	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return sub.C(), nil
}

// Close завершает все подписки.
func (m *Memory) Close() {
	m.hub.Close()
}

func sortItems(items []models.Item) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}
