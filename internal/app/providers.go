package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/forecastpipe/internal/adapter/database"
	gormadapter "github.com/tigerroll/forecastpipe/internal/adapter/database/gorm"
	"github.com/tigerroll/forecastpipe/internal/adapter/database/migration"
	"github.com/tigerroll/forecastpipe/internal/adapter/secret"
	"github.com/tigerroll/forecastpipe/internal/adapter/storage"
	"github.com/tigerroll/forecastpipe/internal/config"
	"github.com/tigerroll/forecastpipe/internal/forecast"
	"github.com/tigerroll/forecastpipe/internal/ingest"
	"github.com/tigerroll/forecastpipe/internal/metrics"
	"github.com/tigerroll/forecastpipe/internal/support/exception"
	"github.com/tigerroll/forecastpipe/internal/support/logger"
	"github.com/tigerroll/forecastpipe/internal/telemetry"

	// Registered backends.
	_ "github.com/tigerroll/forecastpipe/internal/adapter/database/gorm/mysql"
	_ "github.com/tigerroll/forecastpipe/internal/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/forecastpipe/internal/adapter/database/gorm/sqlite"
	_ "github.com/tigerroll/forecastpipe/internal/adapter/storage/gcs"
	_ "github.com/tigerroll/forecastpipe/internal/adapter/storage/local"
	_ "github.com/tigerroll/forecastpipe/internal/adapter/storage/memory"
)

const moduleName = "app"

// AppContextTag names the process context supplied to the container.
const AppContextTag = `name:"appCtx"`

// NewLocation resolves the configured system timezone.
func NewLocation(cfg *config.Config) (*time.Location, error) {
	return cfg.System.Location()
}

// NewStorageConnection opens the configured storage adapter and closes it on stop.
func NewStorageConnection(lc fx.Lifecycle, appCtx context.Context, cfg *config.Config) (storage.Connection, error) {
	props, err := cfg.AdapterProperties(config.StorageAdapterName)
	if err != nil {
		return nil, exception.New(moduleName, exception.KindConfig, "storage adapter is not configured", err)
	}
	conn, err := storage.OpenFromProperties(appCtx, props, config.StorageAdapterName)
	if err != nil {
		return nil, exception.New(moduleName, exception.KindStorage, "failed to open storage", err)
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return conn.Close() }})
	return conn, nil
}

// OpenDatabase opens a named connection to the configured database.
func OpenDatabase(ctx context.Context, cfg *config.Config, name string) (*gormadapter.GormDBAdapter, error) {
	props, err := cfg.AdapterProperties(config.DatabaseAdapterName)
	if err != nil {
		return nil, exception.New(moduleName, exception.KindConfig, "database adapter is not configured", err)
	}
	conn, err := gormadapter.OpenFromProperties(ctx, props, name)
	if err != nil {
		return nil, exception.New(moduleName, exception.KindDatabase, "failed to open database", err)
	}
	return conn, nil
}

// Migrate applies pending migrations over a dedicated connection, which the
// migrator closes when done.
func Migrate(ctx context.Context, cfg *config.Config, down bool) error {
	conn, err := OpenDatabase(ctx, cfg, "migration")
	if err != nil {
		return err
	}
	// The migrator closes the pool itself; Close also runs the dialector cleanup
	// (the Cloud SQL dialer). Closing a closed *sql.DB is a no-op.
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warnf("Closing migration connection: %v", err)
		}
	}()
	m := migration.NewMigrator(conn, cfg.Migration.Table)
	if down {
		err = m.Down(ctx)
	} else {
		err = m.Up(ctx)
	}
	if err != nil {
		return exception.New(moduleName, exception.KindDatabase, "schema migration failed", err)
	}
	return nil
}

// NewDatabaseConnection opens the ingestion connection, applying migrations first
// when migration.auto is set.
func NewDatabaseConnection(lc fx.Lifecycle, appCtx context.Context, cfg *config.Config) (database.Connection, error) {
	if cfg.Migration.Auto {
		if err := Migrate(appCtx, cfg, false); err != nil {
			return nil, err
		}
	}
	conn, err := OpenDatabase(appCtx, cfg, config.DatabaseAdapterName)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := conn.Ping(ctx); err != nil {
				return exception.New(moduleName, exception.KindDatabase, "database is not reachable", err)
			}
			return nil
		},
		OnStop: func(context.Context) error { return conn.Close() },
	})
	return conn, nil
}

// NewTransactionManager creates the transaction manager of the ingestion connection.
func NewTransactionManager(conn database.Connection) (database.TransactionManager, error) {
	return gormadapter.NewTransactionManager(conn)
}

// NewSecretSource selects the secret backend for cfg.Secret.Provider.
func NewSecretSource(lc fx.Lifecycle, appCtx context.Context, cfg *config.Config) (secret.Source, error) {
	switch cfg.Secret.Provider {
	case "env":
		return secret.NewStaticSource(cfg.Forecast.APIKey), nil
	case "gcp":
		src, err := secret.NewGCPSource(appCtx)
		if err != nil {
			return nil, exception.New(moduleName, exception.KindSecret, "failed to create secret source", err)
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return src.Close() }})
		return src, nil
	default:
		return nil, exception.Newf(moduleName, exception.KindConfig, "unknown secret provider '%s'", cfg.Secret.Provider)
	}
}

// NewForecastClient creates the One Call client. The API key is resolved on every fetch.
func NewForecastClient(cfg *config.Config, src secret.Source) forecast.Client {
	keys := func(ctx context.Context) (string, error) {
		return secret.Resolve(ctx, src, cfg.Secret)
	}
	httpClient := &http.Client{Timeout: time.Duration(cfg.Forecast.TimeoutSeconds) * time.Second}
	return forecast.NewOpenWeatherClient(cfg.Forecast, keys, httpClient)
}

// NewFetchJob wires the fetch run.
func NewFetchJob(cfg *config.Config, client forecast.Client, store storage.Connection, loc *time.Location, recorder metrics.Recorder) *forecast.Job {
	builder := forecast.NewBuilder(cfg.Forecast, loc)
	writer := forecast.NewObjectWriter(store, "")
	return forecast.NewJob(client, builder, writer, recorder)
}

// NewIngestJob wires the ingestion run.
func NewIngestJob(cfg *config.Config, store storage.Connection, conn database.Connection, txManager database.TransactionManager, loc *time.Location, recorder metrics.Recorder) (*ingest.Job, error) {
	schemas, err := ingest.SchemasFor(cfg.Ingest.Grains, cfg.Ingest.TablePrefix)
	if err != nil {
		return nil, exception.New(moduleName, exception.KindConfig, "invalid ingest grains", err)
	}
	return ingest.NewJob(store, txManager, ingest.Options{
		Schemas:      schemas,
		LookbackDays: cfg.Ingest.LookbackDays,
		Location:     loc,
		BulkSize:     cfg.Ingest.BulkSize,
		Validator:    ingest.Validator{MinRows: cfg.Ingest.MinRows, MaxRows: cfg.Ingest.MaxRows},
		StoreLabel:   ingest.StoreLabel(conn.Type()),
	}, recorder), nil
}

// NewTelemetry installs the tracer provider and flushes it on stop.
func NewTelemetry(lc fx.Lifecycle, appCtx context.Context, cfg *config.Config) (*telemetry.Provider, error) {
	p, err := telemetry.Setup(appCtx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error {
		if err := p.Shutdown(ctx); err != nil {
			logger.Warnf("Tracer provider shutdown: %v", err)
		}
		return nil
	}})
	return p, nil
}
