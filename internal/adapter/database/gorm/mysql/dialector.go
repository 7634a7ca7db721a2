// Package mysql registers the MySQL dialector, with optional Cloud SQL connectivity.
package mysql

import (
	"context"
	"fmt"

	"cloud.google.com/go/cloudsqlconn"
	cloudsqlmysql "cloud.google.com/go/cloudsqlconn/mysql/mysql"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/forecastpipe/internal/adapter/database"
	gormadapter "github.com/tigerroll/forecastpipe/internal/adapter/database/gorm"
)

// DBType is the database type handled by this package.
const DBType = "mysql"

func init() {
	gormadapter.RegisterDialector(DBType, NewDialector)
}

// NewDialector implements gormadapter.DialectorFactory.
func NewDialector(ctx context.Context, cfg database.Config) (gorm.Dialector, func() error, error) {
	if cfg.InstanceConnectionName == "" {
		return mysql.Open(ConnectionString(cfg)), nil, nil
	}

	driverName := "cloudsql-mysql-" + uuid.NewString()
	var opts []cloudsqlconn.Option
	if cfg.PrivateIP {
		opts = append(opts, cloudsqlconn.WithDefaultDialOptions(cloudsqlconn.WithPrivateIP()))
	}
	cleanup, err := cloudsqlmysql.RegisterDriver(driverName, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register Cloud SQL driver for %s: %w", cfg.InstanceConnectionName, err)
	}
	dialector := mysql.New(mysql.Config{
		DriverName: driverName,
		DSN: fmt.Sprintf("%s:%s@%s(%s)/%s?parseTime=true",
			cfg.User, cfg.Password, driverName, cfg.InstanceConnectionName, cfg.Database),
	})
	return dialector, cleanup, nil
}

// ConnectionString builds a go-sql-driver DSN for a directly reachable server.
func ConnectionString(c database.Config) string {
	port := c.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", c.User, c.Password, c.Host, port, c.Database)
}
