package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

const userColumns = `id, username, email, password, role, isActive, createdAt, updatedAt`

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, "SELECT "+userColumns+" FROM users WHERE email = ?",
		strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.NotFoundError{Resource: "user", ID: email}
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *SQLStore) GetUser(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.NotFoundError{Resource: "user", ID: id}
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, email, password, role, isActive, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, u.Role, boolInt(u.IsActive), u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperr.ConflictError{Message: "username or email already registered"}
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	u.ID = id
	return nil
}

func (s *SQLStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
