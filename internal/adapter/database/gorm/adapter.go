package gorm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tigerroll/forecastpipe/internal/adapter/database"
	"github.com/tigerroll/forecastpipe/internal/support/logger"
)

// NewGormLogger creates a GORM logger writing through the logger package.
//
// Parameters:
//
//	level: SILENT, ERROR, WARN or INFO. An empty level traces SQL when the
//	  application logs at DEBUG and is SILENT otherwise. Unknown levels are SILENT.
//
// Returns:
//
//	A gormlogger.Interface for gorm.Config.Logger.
func NewGormLogger(level string) gormlogger.Interface {
	var gormLevel gormlogger.LogLevel
	switch strings.ToUpper(level) {
	case "":
		gormLevel = gormlogger.Silent
		if logger.IsDebugEnabled() {
			gormLevel = gormlogger.Info
		}
	case "ERROR":
		gormLevel = gormlogger.Error
	case "WARN":
		gormLevel = gormlogger.Warn
	case "INFO":
		gormLevel = gormlogger.Info
	default:
		gormLevel = gormlogger.Silent
	}
	return gormlogger.New(&GormWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLevel,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// GormWriter implements gormlogger.Writer. SQL traces go to DEBUG, everything else to INFO.
type GormWriter struct{}

// Printf implements gormlogger.Writer.
func (w *GormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if isSQLTrace(msg) {
		logger.Debugf("[GORM] %s", msg)
		return
	}
	logger.Infof("[GORM] %s", msg)
}

func isSQLTrace(msg string) bool {
	if !strings.Contains(msg, "[") || !strings.Contains(msg, "]") {
		return false
	}
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.Contains(msg, verb) {
			return true
		}
	}
	return false
}

// GormDBAdapter implements database.Connection.
type GormDBAdapter struct {
	db      *gorm.DB
	cfg     database.Config
	name    string
	cleanup func() error
}

var _ database.Connection = (*GormDBAdapter)(nil)

// NewGormDBAdapter wraps an open *gorm.DB. cleanup may be nil.
func NewGormDBAdapter(db *gorm.DB, cfg database.Config, name string, cleanup func() error) *GormDBAdapter {
	return &GormDBAdapter{db: db, cfg: cfg, name: name, cleanup: cleanup}
}

// GetGormDB returns the underlying *gorm.DB. Intended for this package and tests.
func (a *GormDBAdapter) GetGormDB() *gorm.DB {
	return a.db
}

// Close closes the pool, then runs the dialector cleanup (e.g. the Cloud SQL dialer).
func (a *GormDBAdapter) Close() error {
	logger.Infof("Closing database connection '%s'...", a.name)
	var result *multierror.Error
	if sqlDB, err := a.db.DB(); err != nil {
		result = multierror.Append(result, err)
	} else if err := sqlDB.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if a.cleanup != nil {
		if err := a.cleanup(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (a *GormDBAdapter) Type() string { return a.cfg.Type }

func (a *GormDBAdapter) Name() string { return a.name }

// Ping implements database.Connection.
func (a *GormDBAdapter) Ping(ctx context.Context) error {
	sqlDB, err := a.GetSQLDB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// GetSQLDB implements database.Connection.
func (a *GormDBAdapter) GetSQLDB() (*sql.DB, error) {
	sqlDB, err := a.db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB, nil
}
