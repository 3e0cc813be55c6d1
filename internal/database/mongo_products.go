package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/store"
)

var lowStockFilter = bson.M{
	"isActive": true,
	"$expr":    bson.M{"$lte": bson.A{"$stock", "$minStock"}},
}

func productFilter(filter store.ProductFilter) bson.M {
	query := bson.M{}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query["category"] = category
	}
	if strings.TrimSpace(filter.Search) != "" {
		pattern := containsPattern(filter.Search)
		query["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
			bson.M{"sku": pattern},
		}
	}
	if filter.IsActive != nil {
		query["isActive"] = *filter.IsActive
	}
	return query
}

func decodeProducts(ctx context.Context, cursor *mongo.Cursor) ([]models.Product, error) {
	defer cursor.Close(ctx)
	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	for i := range products {
		products[i].InStock = products[i].Stock > 0
	}
	return products, nil
}

func (s *MongoStore) ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, int64, error) {
	query := productFilter(filter)
	total, err := s.products().CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	opts := pageOptions(options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}),
		filter.Page, filter.Limit)
	cursor, err := s.products().Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find products: %w", err)
	}
	products, err := decodeProducts(ctx, cursor)
	if err != nil {
		return nil, 0, fmt.Errorf("decode products: %w", err)
	}
	return products, total, nil
}

func findProduct(ctx context.Context, coll *mongo.Collection, id int64) (models.Product, error) {
	var p models.Product
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, apperr.NotFoundError{Resource: "product", ID: id}
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	p.InStock = p.Stock > 0
	return p, nil
}

func (s *MongoStore) GetProduct(ctx context.Context, id int64) (models.Product, error) {
	return findProduct(ctx, s.products(), id)
}

func (s *MongoStore) CreateProduct(ctx context.Context, p *models.Product) error {
	id, err := s.nextID(ctx, "products")
	if err != nil {
		return err
	}
	p.ID = id
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if p.Tags == nil {
		p.Tags = models.StringList{}
	}

	if _, err := s.products().InsertOne(ctx, p); err != nil {
		p.ID = 0
		if mongo.IsDuplicateKeyError(err) {
			return apperr.ConflictError{Message: fmt.Sprintf("sku %q already exists", p.SKU)}
		}
		return fmt.Errorf("insert product: %w", err)
	}
	p.InStock = p.Stock > 0
	return nil
}

func productSet(patch models.ProductPatch, now time.Time) bson.M {
	set := bson.M{"updatedAt": now.UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Cost != nil {
		set["cost"] = *patch.Cost
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Brand != nil {
		set["brand"] = *patch.Brand
	}
	if patch.Stock != nil {
		set["stock"] = *patch.Stock
	}
	if patch.MinStock != nil {
		set["minStock"] = *patch.MinStock
	}
	if patch.Tags != nil {
		set["tags"] = *patch.Tags
	}
	if patch.IsActive != nil {
		set["isActive"] = *patch.IsActive
	}
	return set
}

func (s *MongoStore) UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch, now time.Time) (models.Product, error) {
	var p models.Product
	err := s.products().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": productSet(patch, now)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, apperr.NotFoundError{Resource: "product", ID: id}
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("update product %d: %w", id, err)
	}
	p.InStock = p.Stock > 0
	return p, nil
}

func (s *MongoStore) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.products().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFoundError{Resource: "product", ID: id}
	}
	return nil
}

func (s *MongoStore) ListCategories(ctx context.Context) ([]string, error) {
	values, err := s.products().Distinct(ctx, "category", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("distinct categories: %w", err)
	}
	categories := make([]string, 0, len(values))
	for _, v := range values {
		if name, ok := v.(string); ok && strings.TrimSpace(name) != "" {
			categories = append(categories, name)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

func (s *MongoStore) ListLowStock(ctx context.Context) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "stock", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.products().Find(ctx, lowStockFilter, opts)
	if err != nil {
		return nil, fmt.Errorf("find low stock: %w", err)
	}
	products, err := decodeProducts(ctx, cursor)
	if err != nil {
		return nil, fmt.Errorf("decode low stock: %w", err)
	}
	return products, nil
}

func (s *MongoStore) CountLowStock(ctx context.Context) (int64, error) {
	n, err := s.products().CountDocuments(ctx, lowStockFilter)
	if err != nil {
		return 0, fmt.Errorf("count low stock: %w", err)
	}
	return n, nil
}
