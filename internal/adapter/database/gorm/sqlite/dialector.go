// Package sqlite registers the SQLite dialector. Database is the file path (or ":memory:").
package sqlite

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tigerroll/forecastpipe/internal/adapter/database"
	gormadapter "github.com/tigerroll/forecastpipe/internal/adapter/database/gorm"
)

// DBType is the database type handled by this package.
const DBType = "sqlite"

func init() {
	gormadapter.RegisterDialector(DBType, NewDialector)
}

// NewDialector implements gormadapter.DialectorFactory.
func NewDialector(_ context.Context, cfg database.Config) (gorm.Dialector, func() error, error) {
	if cfg.Database == "" {
		return nil, nil, fmt.Errorf("sqlite requires 'database' to be a file path or :memory:")
	}
	return sqlite.Open(cfg.Database), nil, nil
}
