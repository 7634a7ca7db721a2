// Package postgres registers the PostgreSQL dialector. When an instance connection
// name is configured the connection goes through the Cloud SQL connector (pgx v5),
// otherwise a plain DSN built from host and port is used.
package postgres

import (
	"context"
	"fmt"

	"cloud.google.com/go/cloudsqlconn"
	"cloud.google.com/go/cloudsqlconn/postgres/pgxv5"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tigerroll/forecastpipe/internal/adapter/database"
	gormadapter "github.com/tigerroll/forecastpipe/internal/adapter/database/gorm"
	"github.com/tigerroll/forecastpipe/internal/support/logger"
)

// DBType is the database type handled by this package.
const DBType = "postgres"

func init() {
	gormadapter.RegisterDialector(DBType, NewDialector)
}

// NewDialector implements gormadapter.DialectorFactory.
func NewDialector(ctx context.Context, cfg database.Config) (gorm.Dialector, func() error, error) {
	if cfg.InstanceConnectionName == "" {
		return postgres.Open(ConnectionString(cfg)), nil, nil
	}

	// database/sql driver names are process-global and cannot be registered twice.
	driverName := "cloudsql-postgres-" + uuid.NewString()
	cleanup, err := pgxv5.RegisterDriver(driverName, CloudSQLOptions(cfg)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register Cloud SQL driver for %s: %w", cfg.InstanceConnectionName, err)
	}
	logger.Infof("Connecting to Cloud SQL instance %s (private IP: %t).", cfg.InstanceConnectionName, cfg.PrivateIP)

	dialector := postgres.New(postgres.Config{
		DriverName: driverName,
		DSN:        CloudSQLConnectionString(cfg),
	})
	return dialector, cleanup, nil
}

// ConnectionString builds a key/value DSN for a directly reachable server.
func ConnectionString(c database.Config) string {
	sslmode := c.Sslmode
	if sslmode == "" {
		sslmode = "disable"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, port, c.User, c.Password, c.Database, sslmode)
}

// CloudSQLConnectionString builds the DSN understood by the Cloud SQL pgx driver.
// The host is the instance connection name; TLS is handled by the connector.
func CloudSQLConnectionString(c database.Config) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=disable",
		c.InstanceConnectionName, c.User, c.Password, c.Database)
}

// CloudSQLOptions returns the connector options for the configured IP type.
func CloudSQLOptions(c database.Config) []cloudsqlconn.Option {
	if c.PrivateIP {
		return []cloudsqlconn.Option{cloudsqlconn.WithDefaultDialOptions(cloudsqlconn.WithPrivateIP())}
	}
	return nil
}
