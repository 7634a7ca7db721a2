package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/forecastpipe/internal/config"
)

func TestLoadConfig_Embedded(t *testing.T) {
	t.Setenv("DB_NAME", "weather")
	t.Setenv("DB_PASS", "0123")
	t.Setenv("PRIVATE_IP", "true")
	t.Setenv("INSTANCE_CONNECTION_NAME", "weather-data-podpechan:us-central1:forecast")

	cfg, err := loadConfig(&rootOptions{})
	require.NoError(t, err)

	assert.Equal(t, "gcp", cfg.Secret.Provider)
	assert.Equal(t, []string{"current"}, cfg.Ingest.Grains)
	assert.Equal(t, 7, cfg.Ingest.LookbackDays)

	storageProps, err := cfg.AdapterProperties(config.StorageAdapterName)
	require.NoError(t, err)
	assert.Equal(t, "weather_payload", storageProps["bucket_name"])

	dbProps, err := cfg.AdapterProperties(config.DatabaseAdapterName)
	require.NoError(t, err)
	assert.Equal(t, "weather", dbProps["database"])
	assert.Equal(t, "0123", dbProps["password"])
	assert.Equal(t, "true", dbProps["private_ip"])
	assert.Equal(t, "weather-data-podpechan:us-central1:forecast", dbProps["instance_connection_name"])
}

func TestRootCmd_Commands(t *testing.T) {
	root := newRootCmd(context.Background())
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"fetch", "ingest", "migrate", "serve"}, names)

	migrate, _, err := root.Find([]string{"migrate"})
	require.NoError(t, err)
	assert.NotNil(t, migrate.Flags().Lookup("down"))
}
