package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"garden-board/internal/garden/models"

	"github.com/google/uuid"
)

// ============================================================
// Garden Items
// ============================================================

const itemColumns = `id, label, url, x, y, scale, angle, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (models.Item, error) {
	var (
		it      models.Item
		created int64
	)
	if err := row.Scan(&it.ID, &it.Label, &it.URL, &it.X, &it.Y, &it.Scale, &it.Angle, &created); err != nil {
		return models.Item{}, err
	}
	it.CreatedAt = time.Unix(0, created).UTC()
	return it, nil
}

// ListItems возвращает все строки от старых к новым, при равенстве времени по id.
func (r *Repository) ListItems(ctx context.Context) ([]models.Item, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM garden_items ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repository) GetItem(ctx context.Context, id string) (models.Item, error) {
	it, err := scanItem(r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM garden_items WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Item{}, ErrNotFound
		}
		return models.Item{}, err
	}
	return it, nil
}

// InsertItem назначает id и created_at и сохраняет строку.
func (r *Repository) InsertItem(ctx context.Context, n models.NewItem) (models.Item, error) {
	it := models.Item{
		ID:        uuid.NewString(),
		Label:     n.Label,
		URL:       n.URL,
		X:         n.X,
		Y:         n.Y,
		Scale:     n.Scale,
		Angle:     n.Angle,
		CreatedAt: r.now().UTC(),
	}

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO garden_items (`+itemColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `, it.ID, it.Label, it.URL, it.X, it.Y, it.Scale, it.Angle, it.CreatedAt.UnixNano())
	if err != nil {
		return models.Item{}, fmt.Errorf("insert item: %w", err)
	}
	return it, nil
}

// UpdateItem применяет частичный патч и возвращает строку после обновления.
func (r *Repository) UpdateItem(ctx context.Context, id string, patch models.ItemPatch) (models.Item, error) {
	var (
		sets []string
		args []any
	)
	if patch.Label != nil {
		sets, args = append(sets, "label = ?"), append(args, *patch.Label)
	}
	if patch.X != nil {
		sets, args = append(sets, "x = ?"), append(args, *patch.X)
	}
	if patch.Y != nil {
		sets, args = append(sets, "y = ?"), append(args, *patch.Y)
	}
	if patch.Angle != nil {
		sets, args = append(sets, "angle = ?"), append(args, *patch.Angle)
	}
	if len(sets) == 0 {
		return r.GetItem(ctx, id)
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx, `UPDATE garden_items SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return models.Item{}, fmt.Errorf("update item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Item{}, ErrNotFound
	}
	return r.GetItem(ctx, id)
}

// DeleteItem удаляет строку и возвращает её последнее состояние.
func (r *Repository) DeleteItem(ctx context.Context, id string) (models.Item, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Item{}, err
	}
	defer tx.Rollback()

	it, err := scanItem(tx.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM garden_items WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Item{}, ErrNotFound
		}
		return models.Item{}, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM garden_items WHERE id = ?`, id); err != nil {
		return models.Item{}, fmt.Errorf("delete item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Item{}, err
	}
	return it, nil
}

// DeleteAllItems очищает таблицу и возвращает удалённые строки в порядке создания.
func (r *Repository) DeleteAllItems(ctx context.Context) ([]models.Item, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT `+itemColumns+` FROM garden_items ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	var deleted []models.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan item: %w", err)
		}
		deleted = append(deleted, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM garden_items`); err != nil {
		return nil, fmt.Errorf("delete items: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return deleted, nil
}
