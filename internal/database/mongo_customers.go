package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/store"
)

func (s *MongoStore) ListCustomers(ctx context.Context, filter store.CustomerFilter) ([]models.Customer, int64, error) {
	query := bson.M{}
	if strings.TrimSpace(filter.Search) != "" {
		pattern := containsPattern(filter.Search)
		query["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"email": pattern},
			bson.M{"phone": pattern},
		}
	}
	if filter.IsActive != nil {
		query["isActive"] = *filter.IsActive
	}

	total, err := s.customers().CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}
	opts := pageOptions(options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}),
		filter.Page, filter.Limit)
	cursor, err := s.customers().Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find customers: %w", err)
	}
	defer cursor.Close(ctx)

	customers := make([]models.Customer, 0)
	if err := cursor.All(ctx, &customers); err != nil {
		return nil, 0, fmt.Errorf("decode customers: %w", err)
	}
	return customers, total, nil
}

func findCustomer(ctx context.Context, coll *mongo.Collection, filter bson.M) (models.Customer, error) {
	var c models.Customer
	err := coll.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})).Decode(&c)
	return c, err
}

func (s *MongoStore) GetCustomer(ctx context.Context, id int64) (models.Customer, error) {
	c, err := findCustomer(ctx, s.customers(), bson.M{"_id": id})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Customer{}, apperr.NotFoundError{Resource: "customer", ID: id}
	}
	if err != nil {
		return models.Customer{}, fmt.Errorf("get customer %d: %w", id, err)
	}
	return c, nil
}

func (s *MongoStore) CreateCustomer(ctx context.Context, c *models.Customer) error {
	id, err := s.nextID(ctx, "customers")
	if err != nil {
		return err
	}
	c.ID = id
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	if _, err := s.customers().InsertOne(ctx, c); err != nil {
		c.ID = 0
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (s *MongoStore) UpdateCustomer(ctx context.Context, id int64, patch models.CustomerPatch, now time.Time) (models.Customer, error) {
	set := bson.M{"updatedAt": now.UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.Phone != nil {
		set["phone"] = *patch.Phone
	}
	if patch.Address != nil {
		set["address"] = *patch.Address
	}
	if patch.Notes != nil {
		set["notes"] = *patch.Notes
	}
	if patch.IsActive != nil {
		set["isActive"] = *patch.IsActive
	}

	var c models.Customer
	err := s.customers().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Customer{}, apperr.NotFoundError{Resource: "customer", ID: id}
	}
	if err != nil {
		return models.Customer{}, fmt.Errorf("update customer %d: %w", id, err)
	}
	return c, nil
}

// DeleteCustomer refuses to orphan orders, matching the foreign key of the
// relational schema.
func (s *MongoStore) DeleteCustomer(ctx context.Context, id int64) error {
	n, err := s.orders().CountDocuments(ctx, bson.M{"customerId": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("count customer orders: %w", err)
	}
	if n > 0 {
		return apperr.ConflictError{Message: "customer has orders"}
	}

	res, err := s.customers().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete customer %d: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFoundError{Resource: "customer", ID: id}
	}
	return nil
}

func (s *MongoStore) CountActiveCustomers(ctx context.Context) (int64, error) {
	n, err := s.customers().CountDocuments(ctx, bson.M{"isActive": true})
	if err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}
