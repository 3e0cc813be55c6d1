package database

import (
	"context"
	"fmt"

	"storefront/internal/store"
)

const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Options selects and addresses a backend.
type Options struct {
	Driver   string
	MongoURI string
	DBName   string
	SQLDSN   string
}

// Open returns the store.Store for opts.Driver.
func Open(ctx context.Context, opts Options) (store.Store, error) {
	switch opts.Driver {
	case DriverMongo:
		return OpenMongo(ctx, opts.MongoURI, opts.DBName)
	case DriverSQLite, "sqlite3":
		return OpenSQL(ctx, "sqlite3", opts.SQLDSN)
	case DriverMySQL:
		return OpenSQL(ctx, "mysql", opts.SQLDSN)
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", opts.Driver)
	}
}
