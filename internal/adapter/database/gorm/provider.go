// Package gorm implements the database abstraction on top of GORM. Dialects
// register a DialectorFactory from their own sub-packages (postgres, mysql, sqlite).
package gorm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tigerroll/forecastpipe/internal/adapter/database"
	"github.com/tigerroll/forecastpipe/internal/support/configbinder"
	"github.com/tigerroll/forecastpipe/internal/support/logger"
)

// DialectorFactory builds a gorm.Dialector from a database.Config. The returned
// cleanup function, if non-nil, is called when the connection is closed.
type DialectorFactory func(ctx context.Context, cfg database.Config) (gorm.Dialector, func() error, error)

var (
	dialectorRegistry = make(map[string]DialectorFactory)
	dialectorMutex    sync.RWMutex
)

// RegisterDialector registers a DialectorFactory for the given database type.
// Dialect packages call it from their init functions.
//
// Parameters:
//
//	dbType: The database type, matched against database.Config.Type.
//	factory: The DialectorFactory for that type.
func RegisterDialector(dbType string, factory DialectorFactory) {
	dialectorMutex.Lock()
	defer dialectorMutex.Unlock()
	if _, exists := dialectorRegistry[dbType]; exists {
		logger.Warnf("Dialector for type '%s' already registered. Overwriting.", dbType)
	}
	dialectorRegistry[dbType] = factory
}

// GetDialectorFactory retrieves the DialectorFactory for the database type.
//
// Parameters:
//
//	dbType: The database type.
//
// Returns:
//
//	The registered DialectorFactory, or an error if none is registered.
func GetDialectorFactory(dbType string) (DialectorFactory, error) {
	dialectorMutex.RLock()
	defer dialectorMutex.RUnlock()
	factory, ok := dialectorRegistry[dbType]
	if !ok {
		return nil, fmt.Errorf("no dialector registered for database type: %s", dbType)
	}
	return factory, nil
}

// OpenFromProperties binds raw adapter properties to database.Config and opens the connection.
//
// Parameters:
//
//	ctx: The context passed to the dialector factory.
//	props: The adapter properties from the application configuration.
//	name: The connection name.
//
// Returns:
//
//	The opened GormDBAdapter, or an error if the properties cannot be bound or
//	the connection cannot be opened.
func OpenFromProperties(ctx context.Context, props map[string]interface{}, name string) (*GormDBAdapter, error) {
	var cfg database.Config
	if err := configbinder.BindProperties(props, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode database config for '%s': %w", name, err)
	}
	return Open(ctx, cfg, name)
}

// Open establishes a GORM connection and applies pool settings.
// The dialector's cleanup function runs if opening fails after the dialector
// was built, and otherwise when the returned adapter is closed.
//
// Parameters:
//
//	ctx: The context passed to the dialector factory.
//	cfg: The database configuration.
//	name: The connection name.
//
// Returns:
//
//	The opened GormDBAdapter, or an error if no dialector is registered for
//	cfg.Type or the connection cannot be established.
func Open(ctx context.Context, cfg database.Config, name string) (*GormDBAdapter, error) {
	factory, err := GetDialectorFactory(cfg.Type)
	if err != nil {
		return nil, err
	}
	dialector, cleanup, err := factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialector for %s: %w", cfg.Type, err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: NewGormLogger(cfg.LogLevel)})
	if err != nil {
		if cleanup != nil {
			_ = cleanup()
		}
		return nil, fmt.Errorf("failed to open GORM connection '%s': %w", name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		if cleanup != nil {
			_ = cleanup()
		}
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	}
	if cfg.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	}
	if cfg.Pool.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.Pool.ConnMaxLifetimeMinutes) * time.Minute)
	}

	logger.Infof("Established DB connection: %s (%s)", name, cfg.Type)
	return NewGormDBAdapter(db, cfg, name, cleanup), nil
}
