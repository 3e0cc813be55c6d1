package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"storefront/internal/store"
)

// SQLStore implements store.Store on SQLite or MySQL through sqlx. Both
// drivers accept "?" placeholders, so queries are shared and only the schema
// differs.
type SQLStore struct {
	db     *sqlx.DB
	driver string
}

var _ store.Store = (*SQLStore)(nil)

// OpenSQL connects, pings and applies the schema for driver "sqlite3" or
// "mysql". MySQL DSNs need parseTime=true.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite3" {
		// SQLite has a single writer; a second pooled connection would hit
		// SQLITE_BUSY inside checkout transactions.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.applySchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Printf("[DB] [INFO] %s schema ready", driver)
	return s, nil
}

func (s *SQLStore) applySchema(ctx context.Context) error {
	schema := sqliteSchema
	if s.driver == "mysql" {
		schema = mysqlSchema
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close(context.Context) error {
	return s.db.Close()
}

// isUniqueViolation recognises duplicate-key errors from both drivers.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1451
	}
	return false
}

func likePattern(search string) string {
	return "%" + strings.TrimSpace(search) + "%"
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Money columns hold decimal strings. Rows written as REAL by older schemas
// still scan.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'employee',
		isActive BOOLEAN NOT NULL DEFAULT 1,
		createdAt DATETIME NOT NULL,
		updatedAt DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price TEXT NOT NULL,
		cost TEXT,
		category TEXT NOT NULL,
		brand TEXT NOT NULL DEFAULT '',
		sku TEXT UNIQUE NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0,
		minStock INTEGER NOT NULL DEFAULT 5,
		tags TEXT NOT NULL DEFAULT '[]',
		isActive BOOLEAN NOT NULL DEFAULT 1,
		createdAt DATETIME NOT NULL,
		updatedAt DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		address TEXT,
		totalOrders INTEGER NOT NULL DEFAULT 0,
		totalSpent TEXT NOT NULL DEFAULT '0',
		lastOrderDate DATETIME,
		notes TEXT NOT NULL DEFAULT '',
		isActive BOOLEAN NOT NULL DEFAULT 1,
		createdAt DATETIME NOT NULL,
		updatedAt DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS customers_phone ON customers (phone)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		orderNumber TEXT UNIQUE NOT NULL,
		customerId INTEGER NOT NULL,
		customerName TEXT NOT NULL DEFAULT '',
		items TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		tax TEXT NOT NULL DEFAULT '0',
		discount TEXT NOT NULL DEFAULT '0',
		shippingFee TEXT NOT NULL DEFAULT '0',
		total TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		paymentStatus TEXT NOT NULL DEFAULT 'pending',
		paymentMethod TEXT NOT NULL DEFAULT '',
		deliveryMethod TEXT NOT NULL DEFAULT '',
		shippingAddress TEXT,
		notes TEXT NOT NULL DEFAULT '',
		createdBy INTEGER NOT NULL DEFAULT 0,
		createdAt DATETIME NOT NULL,
		updatedAt DATETIME NOT NULL,
		FOREIGN KEY (customerId) REFERENCES customers (id)
	)`,
	`CREATE INDEX IF NOT EXISTS orders_createdAt ON orders (createdAt)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(191) UNIQUE NOT NULL,
		email VARCHAR(191) UNIQUE NOT NULL,
		password VARCHAR(255) NOT NULL,
		role VARCHAR(32) NOT NULL DEFAULT 'employee',
		isActive TINYINT(1) NOT NULL DEFAULT 1,
		createdAt DATETIME(3) NOT NULL,
		updatedAt DATETIME(3) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		price DECIMAL(15,2) NOT NULL,
		cost DECIMAL(15,2) NULL,
		category VARCHAR(191) NOT NULL,
		brand VARCHAR(191) NOT NULL DEFAULT '',
		sku VARCHAR(191) UNIQUE NOT NULL,
		stock INT NOT NULL DEFAULT 0,
		minStock INT NOT NULL DEFAULT 5,
		tags TEXT NOT NULL,
		isActive TINYINT(1) NOT NULL DEFAULT 1,
		createdAt DATETIME(3) NOT NULL,
		updatedAt DATETIME(3) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(191) NOT NULL DEFAULT '',
		phone VARCHAR(64) NOT NULL DEFAULT '',
		address TEXT NULL,
		totalOrders INT NOT NULL DEFAULT 0,
		totalSpent DECIMAL(15,2) NOT NULL DEFAULT 0,
		lastOrderDate DATETIME(3) NULL,
		notes TEXT NOT NULL,
		isActive TINYINT(1) NOT NULL DEFAULT 1,
		createdAt DATETIME(3) NOT NULL,
		updatedAt DATETIME(3) NOT NULL,
		INDEX customers_phone (phone)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		orderNumber VARCHAR(64) UNIQUE NOT NULL,
		customerId BIGINT NOT NULL,
		customerName VARCHAR(255) NOT NULL DEFAULT '',
		items TEXT NOT NULL,
		subtotal DECIMAL(15,2) NOT NULL,
		tax DECIMAL(15,2) NOT NULL DEFAULT 0,
		discount DECIMAL(15,2) NOT NULL DEFAULT 0,
		shippingFee DECIMAL(15,2) NOT NULL DEFAULT 0,
		total DECIMAL(15,2) NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'pending',
		paymentStatus VARCHAR(32) NOT NULL DEFAULT 'pending',
		paymentMethod VARCHAR(32) NOT NULL DEFAULT '',
		deliveryMethod VARCHAR(32) NOT NULL DEFAULT '',
		shippingAddress TEXT NULL,
		notes TEXT NOT NULL,
		createdBy BIGINT NOT NULL DEFAULT 0,
		createdAt DATETIME(3) NOT NULL,
		updatedAt DATETIME(3) NOT NULL,
		INDEX orders_createdAt (createdAt),
		FOREIGN KEY (customerId) REFERENCES customers (id)
	)`,
}
