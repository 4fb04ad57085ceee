package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"garden-board/internal/garden/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ============================================================
// Users
// ============================================================

// GetByCredentials ищет пользователя и сверяет пароль с bcrypt хешем.
func (r *Repository) GetByCredentials(ctx context.Context, login, password string) (*models.User, error) {
	u, err := r.GetByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrNotFound
	}
	return u, nil
}

func (r *Repository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, login, password_hash, role, created_at
        FROM users
        WHERE login = ?
    `, login)
	return scanUser(row)
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, login, password_hash, role, created_at
        FROM users
        WHERE id = ?
    `, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) ensureAdmin(ctx context.Context, login, password string) error {
	if login == "" {
		return nil
	}
	_, err := r.GetByLogin(ctx, login)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
        INSERT INTO users (id, login, password_hash, role)
        VALUES (?, ?, ?, ?)
    `, uuid.NewString(), login, string(hash), models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	r.log.Info().Str("login", login).Msg("admin user seeded")
	return nil
}
