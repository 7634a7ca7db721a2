package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tigerroll/forecastpipe/internal/adapter/database"
	gormadapter "github.com/tigerroll/forecastpipe/internal/adapter/database/gorm"
	"github.com/tigerroll/forecastpipe/internal/config"
)

func TestMigrate_ReleasesDialectorResources(t *testing.T) {
	cleanups := 0
	gormadapter.RegisterDialector("tracked", func(_ context.Context, cfg database.Config) (gorm.Dialector, func() error, error) {
		return sqlite.Open(cfg.Database), func() error { cleanups++; return nil }, nil
	})

	cfg := config.NewConfig()
	cfg.Adapters[config.DatabaseAdapterName] = map[string]interface{}{
		"type":     "tracked",
		"database": filepath.Join(t.TempDir(), "forecast.db"),
	}

	// No migration driver serves this type, but the connection is still released.
	err := Migrate(context.Background(), cfg, false)
	require.Error(t, err)
	assert.Equal(t, 1, cleanups)
}

func TestMigrate_SQLite(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Adapters[config.DatabaseAdapterName] = map[string]interface{}{
		"type":     "sqlite",
		"database": filepath.Join(t.TempDir(), "forecast.db"),
	}
	require.NoError(t, Migrate(context.Background(), cfg, false))
	require.NoError(t, Migrate(context.Background(), cfg, false))

	conn, err := OpenDatabase(context.Background(), cfg, "check")
	require.NoError(t, err)
	defer conn.Close()
	assert.True(t, conn.GetGormDB().Migrator().HasTable("weather_data_hourly"))
}

func TestNewDatabaseConnection_PingsOnStart(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Adapters[config.DatabaseAdapterName] = map[string]interface{}{
		"type":     "sqlite",
		"database": filepath.Join(t.TempDir(), "forecast.db"),
	}

	lc := fxtest.NewLifecycle(t)
	conn, err := NewDatabaseConnection(lc, context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, lc.Start(context.Background()))
	require.NoError(t, lc.Stop(context.Background()))

	// A closed pool fails the start hook.
	lc = fxtest.NewLifecycle(t)
	conn, err = NewDatabaseConnection(lc, context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	err = lc.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is not reachable")
}
