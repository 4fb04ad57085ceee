// Package store описывает удалённое хранилище, которое потребляет доска:
// таблицу garden_items и realtime поток событий по её строкам.
package store

import (
	"context"

	"garden-board/internal/garden/models"
)

// ItemStore: чтение и запись строк garden_items.
type ItemStore interface {
	List(ctx context.Context) ([]models.Item, error)
	Insert(ctx context.Context, n models.NewItem) (models.Item, error)
	Update(ctx context.Context, id string, patch models.ItemPatch) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int, error)
}

// Feed доставляет события минимум один раз, в порядке коммитов по каждой строке.
// Канал закрывается при отмене ctx или обрыве потока.
type Feed interface {
	Subscribe(ctx context.Context) (<-chan models.Event, error)
}

// Backend: обе стороны вместе, как их отдаёт garden сервис.
type Backend interface {
	ItemStore
	Feed
}
