package database

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"storefront/internal/models"
	"storefront/internal/store"
)

// EnsureDefaultAdmin creates an admin account when the users table is empty,
// so a fresh install can log in.
func EnsureDefaultAdmin(ctx context.Context, users store.UserRepository, email, password string) error {
	n, err := users.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if strings.TrimSpace(email) == "" || password == "" {
		log.Println("[SEED] [WARN] no users and no DEFAULT_ADMIN_EMAIL/DEFAULT_ADMIN_PASSWORD set")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	now := time.Now()
	admin := &models.User{
		Username:     "admin",
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.CreateUser(ctx, admin); err != nil {
		return err
	}
	log.Printf("[SEED] [INFO] default admin %s created", admin.Email)
	return nil
}
