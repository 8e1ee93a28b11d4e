package ports

import (
	"context"
	"database/sql"
)

// Database is a SQL connection pool
type Database interface {
	Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error)

	// Select scans all rows into dest, a pointer to a slice
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	// Get scans a single row into dest; sql.ErrNoRows when there is none
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	// Transaction runs fn and commits when it returns nil
	Transaction(ctx context.Context, fn func(tx Transaction) error) error

	Ping(ctx context.Context) error
	Close() error
}

// Transaction is a running database transaction
type Transaction interface {
	Execute(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}
