package service

import (
	"context"
	"fmt"
	"sync"

	"garden-board/internal/garden/metrics"
	"garden-board/internal/garden/models"

	"github.com/rs/zerolog"
)

// ============================================================
// Item Service
// ============================================================

// ItemRepository: хранилище строк garden_items.
type ItemRepository interface {
	ListItems(ctx context.Context) ([]models.Item, error)
	InsertItem(ctx context.Context, n models.NewItem) (models.Item, error)
	UpdateItem(ctx context.Context, id string, patch models.ItemPatch) (models.Item, error)
	DeleteItem(ctx context.Context, id string) (models.Item, error)
	DeleteAllItems(ctx context.Context) ([]models.Item, error)
}

// Publisher рассылает realtime события.
type Publisher interface {
	Publish(ev models.Event)
}

// ItemService пишет в хранилище и публикует ровно одно событие на каждую затронутую строку.
// Запись и публикация идут под одной блокировкой: события выходят в порядке коммитов.
type ItemService struct {
	mu   sync.Mutex
	repo ItemRepository
	pub  Publisher
	log  zerolog.Logger
}

func NewItemService(repo ItemRepository, pub Publisher, logger zerolog.Logger) *ItemService {
	return &ItemService{repo: repo, pub: pub, log: logger}
}

func (s *ItemService) List(ctx context.Context) ([]models.Item, error) {
	return s.repo.ListItems(ctx)
}

func (s *ItemService) Create(ctx context.Context, n models.NewItem) (models.Item, error) {
	n, err := n.Normalize()
	if err != nil {
		return models.Item{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	it, err := s.repo.InsertItem(ctx, n)
	metrics.RecordWrite("insert", err == nil)
	if err != nil {
		return models.Item{}, err
	}
	s.pub.Publish(models.Event{Type: models.EventInsert, Row: it})
	s.log.Debug().Str("id", it.ID).Str("label", it.Label).Msg("item inserted")
	return it, nil
}

func (s *ItemService) Update(ctx context.Context, id string, patch models.ItemPatch) (models.Item, error) {
	if patch.Empty() {
		return models.Item{}, fmt.Errorf("%w: empty patch", ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	it, err := s.repo.UpdateItem(ctx, id, patch)
	metrics.RecordWrite("update", err == nil)
	if err != nil {
		return models.Item{}, err
	}
	s.pub.Publish(models.Event{Type: models.EventUpdate, Row: it})
	return it, nil
}

func (s *ItemService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, err := s.repo.DeleteItem(ctx, id)
	metrics.RecordWrite("delete", err == nil)
	if err != nil {
		return err
	}
	s.pub.Publish(models.Event{Type: models.EventDelete, Row: it})
	s.log.Debug().Str("id", id).Msg("item deleted")
	return nil
}

// Clear удаляет все строки; каждый клиент сходится через delete события.
func (s *ItemService) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted, err := s.repo.DeleteAllItems(ctx)
	metrics.RecordWrite("clear", err == nil)
	if err != nil {
		return 0, err
	}
	for _, it := range deleted {
		s.pub.Publish(models.Event{Type: models.EventDelete, Row: it})
	}
	s.log.Info().Int("deleted", len(deleted)).Msg("garden cleared")
	return len(deleted), nil
}
