package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.users().FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, apperr.NotFoundError{Resource: "user", ID: email}
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *MongoStore) GetUser(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	err := s.users().FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, apperr.NotFoundError{Resource: "user", ID: id}
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	id, err := s.nextID(ctx, "users")
	if err != nil {
		return err
	}
	u.ID = id
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()

	if _, err := s.users().InsertOne(ctx, u); err != nil {
		u.ID = 0
		if mongo.IsDuplicateKeyError(err) {
			return apperr.ConflictError{Message: "username or email already registered"}
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *MongoStore) CountUsers(ctx context.Context) (int64, error) {
	n, err := s.users().CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
