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

func (s *MongoStore) ListOrders(ctx context.Context, filter store.OrderFilter) ([]models.Order, int64, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.PaymentStatus != "" {
		query["paymentStatus"] = filter.PaymentStatus
	}
	if strings.TrimSpace(filter.Search) != "" {
		pattern := containsPattern(filter.Search)
		ids, err := s.customerIDsByName(ctx, pattern)
		if err != nil {
			return nil, 0, err
		}
		query["$or"] = bson.A{
			bson.M{"orderNumber": pattern},
			bson.M{"customerName": pattern},
			bson.M{"customerId": bson.M{"$in": ids}},
		}
	}

	total, err := s.orders().CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	opts := pageOptions(options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}),
		filter.Page, filter.Limit)
	orders, err := s.findOrders(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *MongoStore) customerIDsByName(ctx context.Context, pattern bson.M) (bson.A, error) {
	cursor, err := s.customers().Find(ctx, bson.M{"name": pattern},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("find customers by name: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID int64 `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode customer ids: %w", err)
	}
	ids := bson.A{}
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

func (s *MongoStore) findOrders(ctx context.Context, query bson.M, opts *options.FindOptions) ([]models.Order, error) {
	cursor, err := s.orders().Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

func (s *MongoStore) GetOrder(ctx context.Context, id int64) (models.Order, error) {
	var o models.Order
	err := s.orders().FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, apperr.NotFoundError{Resource: "order", ID: id}
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("get order %d: %w", id, err)
	}
	return o, nil
}

// PlaceOrder writes the order in a multi-document transaction. Each stock
// decrement is guarded by a stock >= quantity filter so concurrent checkouts
// cannot oversell.
func (s *MongoStore) PlaceOrder(ctx context.Context, p store.Placement) error {
	p.Order.CreatedAt = p.Order.CreatedAt.UTC()
	p.Order.UpdatedAt = p.Order.UpdatedAt.UTC()

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	var placed *placementAttempt
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		attempt := newPlacementAttempt(p)
		order := &attempt.order

		if p.DecrementStock {
			for _, item := range order.Items {
				if err := s.decrementStock(sc, item, order.CreatedAt); err != nil {
					return nil, err
				}
			}
		}

		if err := s.resolveCustomer(sc, order, attempt.customer); err != nil {
			return nil, err
		}

		id, err := s.nextID(sc, "orders")
		if err != nil {
			return nil, err
		}
		order.ID = id
		if _, err := s.orders().InsertOne(sc, order); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, apperr.ConflictError{Message: fmt.Sprintf("order number %q already exists", order.OrderNumber)}
			}
			return nil, fmt.Errorf("insert order: %w", err)
		}

		_, err = s.customers().UpdateOne(sc,
			bson.M{"_id": order.CustomerID},
			bson.M{
				"$inc": bson.M{"totalOrders": 1, "totalSpent": order.Total},
				"$set": bson.M{"lastOrderDate": order.CreatedAt, "updatedAt": order.CreatedAt},
			},
		)
		if err != nil {
			return nil, fmt.Errorf("update customer stats: %w", err)
		}
		placed = attempt
		return nil, nil
	})
	if err != nil {
		return err
	}
	placed.commit(p)
	return nil
}

func (s *MongoStore) decrementStock(ctx context.Context, item models.OrderItem, now time.Time) error {
	res, err := s.products().UpdateOne(ctx,
		bson.M{"_id": item.ProductID, "stock": bson.M{"$gte": item.Quantity}},
		bson.M{
			"$inc": bson.M{"stock": -item.Quantity},
			"$set": bson.M{"updatedAt": now},
		},
	)
	if err != nil {
		return fmt.Errorf("decrement stock for product %d: %w", item.ProductID, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	product, err := findProduct(ctx, s.products(), item.ProductID)
	if err != nil {
		return err
	}
	return apperr.InsufficientStockError{
		ProductID:   product.ID,
		ProductName: product.Name,
		Available:   product.Stock,
		Requested:   item.Quantity,
	}
}

func (s *MongoStore) resolveCustomer(ctx context.Context, order *models.Order, c *models.Customer) error {
	if order.CustomerID != 0 {
		customer, err := findCustomer(ctx, s.customers(), bson.M{"_id": order.CustomerID})
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperr.NotFoundError{Resource: "customer", ID: order.CustomerID}
		}
		if err != nil {
			return fmt.Errorf("get customer %d: %w", order.CustomerID, err)
		}
		if order.CustomerName == "" {
			order.CustomerName = customer.Name
		}
		return nil
	}
	if c == nil {
		return apperr.MissingCustomerInfoError{Fields: []string{"customerId"}}
	}

	var match bson.M
	switch {
	case c.Phone != "":
		match = bson.M{"phone": c.Phone}
	case c.Email != "":
		match = bson.M{"email": c.Email}
	}

	var err error = mongo.ErrNoDocuments
	var existing models.Customer
	if match != nil {
		existing, err = findCustomer(ctx, s.customers(), match)
	}
	switch {
	case err == nil:
		*c = existing
	case errors.Is(err, mongo.ErrNoDocuments):
		if err := s.CreateCustomer(ctx, c); err != nil {
			return err
		}
	default:
		return fmt.Errorf("find customer: %w", err)
	}

	order.CustomerID = c.ID
	if order.CustomerName == "" {
		order.CustomerName = c.Name
	}
	return nil
}

func (s *MongoStore) SetOrderStatus(ctx context.Context, id int64, from, to store.StatusPair, at time.Time) error {
	res, err := s.orders().UpdateOne(ctx,
		bson.M{"_id": id, "status": from.Status, "paymentStatus": from.PaymentStatus},
		bson.M{"$set": bson.M{
			"status":        to.Status,
			"paymentStatus": to.PaymentStatus,
			"updatedAt":     at.UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("update order status %d: %w", id, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := s.orders().CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("check order %d: %w", id, err)
	}
	if n == 0 {
		return apperr.NotFoundError{Resource: "order", ID: id}
	}
	return apperr.ConflictError{Message: "order status changed concurrently"}
}

func (s *MongoStore) OrdersCreatedSince(ctx context.Context, since time.Time) ([]models.Order, error) {
	query := bson.M{}
	if !since.IsZero() {
		query["createdAt"] = bson.M{"$gte": since.UTC()}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	return s.findOrders(ctx, query, opts)
}

func (s *MongoStore) RecentOrders(ctx context.Context, limit int64) ([]models.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	return s.findOrders(ctx, bson.M{}, opts)
}
