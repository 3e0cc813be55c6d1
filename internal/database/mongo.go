package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"storefront/internal/store"
)

// MongoStore implements store.Store on a MongoDB database. Order placement
// uses multi-document transactions, so the server must run as a replica set.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.Store = (*MongoStore)(nil)

// Connect dials uri with the decimal-aware registry and verifies the
// connection.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, errors.New("MONGO_URI is required for the mongo store")
	}
	clientOpts := options.Client().
		ApplyURI(uri).
		SetRegistry(newRegistry()).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// OpenMongo connects and ensures the indexes of every collection. Index
// failures are logged, not fatal.
func OpenMongo(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := Connect(ctx, uri)
	if err != nil {
		return nil, err
	}
	db := client.Database(dbName)
	log.Println("MongoDB connected to:", db.Name())

	if err := EnsureProductIndexes(db); err != nil {
		log.Printf("[DB] [WARN] product index: %v", err)
	}
	if err := EnsureCustomerIndexes(db); err != nil {
		log.Printf("[DB] [WARN] customer index: %v", err)
	}
	if err := EnsureUserIndexes(db); err != nil {
		log.Printf("[DB] [WARN] user index: %v", err)
	}
	if err := EnsureOrderIndexes(db); err != nil {
		log.Printf("[DB] [WARN] order index: %v", err)
	}
	return &MongoStore{client: client, db: db}, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) products() *mongo.Collection  { return s.db.Collection("products") }
func (s *MongoStore) customers() *mongo.Collection { return s.db.Collection("customers") }
func (s *MongoStore) orders() *mongo.Collection    { return s.db.Collection("orders") }
func (s *MongoStore) users() *mongo.Collection     { return s.db.Collection("users") }

// nextID hands out the next integer id of a collection from the counters
// collection.
func (s *MongoStore) nextID(ctx context.Context, collection string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection("counters").FindOneAndUpdate(ctx,
		bson.M{"_id": collection},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", collection, err)
	}
	return counter.Seq, nil
}

func containsPattern(search string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(strings.TrimSpace(search)), "$options": "i"}
}

func pageOptions(opts *options.FindOptions, page, limit int64) *options.FindOptions {
	if limit > 0 {
		opts.SetSkip(store.Offset(page, limit)).SetLimit(limit)
	}
	return opts
}
