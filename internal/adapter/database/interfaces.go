// Package database defines the relational store abstraction used by the ingestion
// loader. The GORM-backed implementation lives in the gorm sub-package.
package database

import (
	"context"
	"database/sql"
)

// Connection is a named connection pool to a relational store.
type Connection interface {
	// Close closes the pool and any driver-level resources.
	Close() error
	// Type returns the database type (e.g. "postgres", "mysql", "sqlite").
	Type() string
	// Name returns the connection name.
	Name() string
	// Ping verifies the pool can reach the server.
	Ping(ctx context.Context) error
	// GetSQLDB exposes the underlying *sql.DB for migrations.
	GetSQLDB() (*sql.DB, error)
}

// Tx is an open transaction.
type Tx interface {
	// Append inserts rows into table with insert-only statements, batchSize rows
	// per statement. Each row maps column name to value; nil values are NULL.
	// It returns the number of rows inserted.
	Append(ctx context.Context, table string, rows []map[string]interface{}, batchSize int) (int64, error)
	// Count returns the number of rows in table as seen by this transaction.
	Count(ctx context.Context, table string) (int64, error)
}

// TransactionManager begins and finishes transactions on one connection.
type TransactionManager interface {
	// Begin starts a transaction. Only the first non-nil opts entry is used.
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)
	// Commit commits a transaction returned by Begin.
	Commit(tx Tx) error
	// Rollback aborts a transaction returned by Begin.
	Rollback(tx Tx) error
}
