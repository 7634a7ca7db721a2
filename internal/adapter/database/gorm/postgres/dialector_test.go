package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/forecastpipe/internal/adapter/database"
)

func TestConnectionString(t *testing.T) {
	cfg := database.Config{Host: "10.0.0.5", User: "loader", Password: "secret", Database: "weather"}
	assert.Equal(t,
		"host=10.0.0.5 port=5432 user=loader password=secret dbname=weather sslmode=disable",
		ConnectionString(cfg))

	cfg.Port = 6543
	cfg.Sslmode = "require"
	assert.Equal(t,
		"host=10.0.0.5 port=6543 user=loader password=secret dbname=weather sslmode=require",
		ConnectionString(cfg))
}

func TestCloudSQLConnectionString(t *testing.T) {
	cfg := database.Config{
		InstanceConnectionName: "weather-data-podpechan:us-central1:forecast",
		User:                   "loader",
		Password:               "secret",
		Database:               "weather",
	}
	assert.Equal(t,
		"host=weather-data-podpechan:us-central1:forecast user=loader password=secret dbname=weather sslmode=disable",
		CloudSQLConnectionString(cfg))
}

func TestCloudSQLOptions(t *testing.T) {
	assert.Empty(t, CloudSQLOptions(database.Config{}))
	assert.Len(t, CloudSQLOptions(database.Config{PrivateIP: true}), 1)
}

func TestNewDialector_DirectDSN(t *testing.T) {
	dialector, cleanup, err := NewDialector(context.Background(), database.Config{Host: "localhost", Database: "weather"})
	require.NoError(t, err)
	assert.Nil(t, cleanup)
	assert.Equal(t, "postgres", dialector.Name())
}
