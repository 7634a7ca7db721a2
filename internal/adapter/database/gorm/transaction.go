package gorm

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/tigerroll/forecastpipe/internal/adapter/database"
)

// GormTxAdapter implements database.Tx on a GORM transaction.
type GormTxAdapter struct {
	db *gorm.DB
}

var _ database.Tx = (*GormTxAdapter)(nil)

// Append implements database.Tx. Rows are inserted in chunks of batchSize with one
// multi-row INSERT per chunk; there is no conflict clause, so repeated loads append
// duplicate rows.
func (t *GormTxAdapter) Append(ctx context.Context, table string, rows []map[string]interface{}, batchSize int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = len(rows)
	}

	var total int64
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		// Already inside a transaction: GORM's default per-statement transaction is
		// skipped because the connection pool is a *sql.Tx.
		result := t.db.WithContext(ctx).Table(table).Create(chunk)
		if result.Error != nil {
			return total, fmt.Errorf("failed to append rows %d-%d to %s: %w", start, end-1, table, result.Error)
		}
		total += result.RowsAffected
	}
	return total, nil
}

// Count implements database.Tx. It runs inside the transaction, so rows
// appended but not yet committed are included.
func (t *GormTxAdapter) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := t.db.WithContext(ctx).Table(table).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return n, nil
}

// GormTransactionManager implements database.TransactionManager.
type GormTransactionManager struct {
	conn *GormDBAdapter
}

// NewTransactionManager creates a transaction manager for a connection opened by this package.
//
// Parameters:
//
//	conn: A connection returned by Open or OpenFromProperties.
//
// Returns:
//
//	A GormTransactionManager, or an error if conn is not a GORM connection.
func NewTransactionManager(conn database.Connection) (*GormTransactionManager, error) {
	adapter, ok := conn.(*GormDBAdapter)
	if !ok {
		return nil, fmt.Errorf("connection '%s' is not a GORM connection (%T)", conn.Name(), conn)
	}
	return &GormTransactionManager{conn: adapter}, nil
}

// Begin implements database.TransactionManager.
func (m *GormTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (database.Tx, error) {
	var txOpts *sql.TxOptions
	if len(opts) > 0 && opts[0] != nil {
		txOpts = opts[0]
	}
	gormTx := m.conn.GetGormDB().WithContext(ctx).Begin(txOpts)
	if gormTx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", gormTx.Error)
	}
	return &GormTxAdapter{db: gormTx}, nil
}

// Commit implements database.TransactionManager.
func (m *GormTransactionManager) Commit(t database.Tx) error {
	gormTx, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTxAdapter, got %T", t)
	}
	return gormTx.db.Commit().Error
}

// Rollback implements database.TransactionManager.
func (m *GormTransactionManager) Rollback(t database.Tx) error {
	gormTx, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTxAdapter, got %T", t)
	}
	return gormTx.db.Rollback().Error
}
