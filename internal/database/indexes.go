package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureProductIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("products").Indexes()

	skuIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "sku", Value: 1}},
		Options: options.Index().
			SetName("sku_unique").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{
				"sku": bson.M{
					"$exists": true,
				},
			}),
	}
	categoryIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "category", Value: 1}},
		Options: options.Index().SetName("category_index"),
	}

	log.Println("EnsureProductIndexes: creating sku_unique, category_index indexes")
	_, err := indexes.CreateMany(ctx, []mongo.IndexModel{skuIndex, categoryIndex})
	if err != nil {
		log.Println("EnsureProductIndexes: index error:", err)
		return err
	}
	log.Println("EnsureProductIndexes: product indexes created")
	return nil
}

func EnsureCustomerIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("customers").Indexes()

	phoneIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "phone", Value: 1}},
		Options: options.Index().SetName("phone_index"),
	}

	log.Println("EnsureCustomerIndexes: creating phone_index index")
	_, err := indexes.CreateOne(ctx, phoneIndex)
	if err != nil {
		log.Println("EnsureCustomerIndexes: phone index error:", err)
		return err
	}
	log.Println("EnsureCustomerIndexes: phone_index index created")
	return nil
}

func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("users").Indexes()

	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}
	usernameIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "username", Value: 1}},
		Options: options.Index().
			SetName("username_unique").
			SetUnique(true),
	}

	log.Println("EnsureUserIndexes: creating email_unique, username_unique indexes")
	_, err := indexes.CreateMany(ctx, []mongo.IndexModel{emailIndex, usernameIndex})
	if err != nil {
		log.Println("EnsureUserIndexes: index error:", err)
		return err
	}
	log.Println("EnsureUserIndexes: user indexes created")
	return nil
}

func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("orders").Indexes()

	orderNumberIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "orderNumber", Value: 1}},
		Options: options.Index().
			SetName("orderNumber_unique").
			SetUnique(true),
	}
	createdAtIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("createdAt_index"),
	}
	customerIDIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "customerId", Value: 1}},
		Options: options.Index().SetName("customerId_index"),
	}

	log.Println("EnsureOrderIndexes: creating orderNumber_unique, createdAt_index, customerId_index indexes")
	_, err := indexes.CreateMany(ctx, []mongo.IndexModel{orderNumberIndex, createdAtIndex, customerIDIndex})
	if err != nil {
		log.Println("EnsureOrderIndexes: index error:", err)
		return err
	}
	log.Println("EnsureOrderIndexes: order indexes created")
	return nil
}
