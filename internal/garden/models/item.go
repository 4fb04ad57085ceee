package models

import (
	"fmt"
	"time"
)

// ============================================================
// Garden Item
// ============================================================

const (
	DefaultLabel = "Plant"
	DefaultScale = 1.0
)

// Item: строка таблицы garden_items. ID назначает сервер, он неизменяем.
type Item struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	URL       string    `json:"url"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Scale     float64   `json:"scale"`
	Angle     float64   `json:"angle"`
	CreatedAt time.Time `json:"created_at"`
}

// NewItem: тело запроса на вставку.
type NewItem struct {
	Label string  `json:"label"`
	URL   string  `json:"url"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
	Scale float64 `json:"scale"`
}

// Normalize подставляет значения по умолчанию и проверяет обязательные поля.
func (n NewItem) Normalize() (NewItem, error) {
	if n.URL == "" {
		return n, fmt.Errorf("url required")
	}
	if n.Label == "" {
		n.Label = DefaultLabel
	}
	// scale зарезервирован: всегда пишется как 1
	n.Scale = DefaultScale
	return n, nil
}

// ItemPatch: частичное обновление строки; nil поля не трогаются.
type ItemPatch struct {
	Label *string  `json:"label,omitempty"`
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
	Angle *float64 `json:"angle,omitempty"`
}

func (p ItemPatch) Empty() bool {
	return p.Label == nil && p.X == nil && p.Y == nil && p.Angle == nil
}

// Apply возвращает копию item с применённым патчем.
func (p ItemPatch) Apply(item Item) Item {
	if p.Label != nil {
		item.Label = *p.Label
	}
	if p.X != nil {
		item.X = *p.X
	}
	if p.Y != nil {
		item.Y = *p.Y
	}
	if p.Angle != nil {
		item.Angle = *p.Angle
	}
	return item
}

// PosePatch собирает патч позиции и угла после перетаскивания/поворота.
func PosePatch(x, y, angle float64) ItemPatch {
	return ItemPatch{X: &x, Y: &y, Angle: &angle}
}
