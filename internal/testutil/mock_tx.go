// Package testutil provides testify mocks for the database abstraction.
package testutil

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/tigerroll/forecastpipe/internal/adapter/database"
)

// MockTx is a mock implementation of database.Tx.
type MockTx struct {
	mock.Mock
}

// Append mocks database.Tx.Append.
func (m *MockTx) Append(ctx context.Context, table string, rows []map[string]interface{}, batchSize int) (int64, error) {
	args := m.Called(ctx, table, rows, batchSize)
	return args.Get(0).(int64), args.Error(1)
}

// Count mocks database.Tx.Count.
func (m *MockTx) Count(ctx context.Context, table string) (int64, error) {
	args := m.Called(ctx, table)
	return args.Get(0).(int64), args.Error(1)
}

// MockTxManager is a mock implementation of database.TransactionManager.
type MockTxManager struct {
	mock.Mock
}

// Begin mocks database.TransactionManager.Begin. It returns a nil Tx when the
// first return value is nil.
func (m *MockTxManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (database.Tx, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(database.Tx), args.Error(1)
}

// Commit mocks database.TransactionManager.Commit.
func (m *MockTxManager) Commit(t database.Tx) error {
	args := m.Called(t)
	return args.Error(0)
}

// Rollback mocks database.TransactionManager.Rollback.
func (m *MockTxManager) Rollback(t database.Tx) error {
	args := m.Called(t)
	return args.Error(0)
}

var (
	_ database.Tx                 = (*MockTx)(nil)
	_ database.TransactionManager = (*MockTxManager)(nil)
)
