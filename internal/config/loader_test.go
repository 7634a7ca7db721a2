package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/forecastpipe/internal/support/exception"
)

const baseYAML = `
system:
  timezone: America/Chicago
  logging:
    level: DEBUG
ingest:
  lookback_days: 3
  grains: [current, daily]
adapters:
  storage:
    type: local
    bucket_name: ${TEST_FORECAST_BUCKET}
  database:
    type: sqlite
    database: /tmp/forecast.db
`

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "UTC", cfg.System.Timezone)
	assert.Equal(t, 7, cfg.Ingest.LookbackDays)
	assert.Equal(t, []string{"current"}, cfg.Ingest.Grains)
	assert.Equal(t, 1, cfg.Ingest.MinRows)
	assert.Equal(t, 10000, cfg.Ingest.MaxRows)
	assert.Equal(t, "alerts", cfg.Forecast.Exclude)
	assert.Equal(t, "standard", cfg.Forecast.Units)
	assert.Equal(t, "latest", cfg.Secret.Version)
}

func TestLoadConfig_EmbeddedYAMLWithExpansion(t *testing.T) {
	t.Setenv("TEST_FORECAST_BUCKET", "weather_payload")

	cfg, err := LoadConfig(LoadOptions{Embedded: EmbeddedConfig(baseYAML)})
	require.NoError(t, err)

	assert.Equal(t, "America/Chicago", cfg.System.Timezone)
	assert.Equal(t, "DEBUG", cfg.System.Logging.Level)
	// Keys absent from the YAML keep their defaults.
	assert.Equal(t, "text", cfg.System.Logging.Format)
	assert.Equal(t, 3, cfg.Ingest.LookbackDays)
	assert.Equal(t, 10000, cfg.Ingest.MaxRows)
	assert.Equal(t, []string{"current", "daily"}, cfg.Ingest.Grains)

	storageProps, err := cfg.AdapterProperties(StorageAdapterName)
	require.NoError(t, err)
	assert.Equal(t, "weather_payload", storageProps["bucket_name"])
	assert.Equal(t, "local", storageProps["type"])
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("FORECASTPIPE_INGEST_LOOKBACK_DAYS", "10")
	t.Setenv("FORECASTPIPE_INGEST_GRAINS", "current, hourly")
	t.Setenv("FORECASTPIPE_FORECAST_LATITUDE", "40.5")
	t.Setenv("FORECASTPIPE_MIGRATION_AUTO", "true")
	t.Setenv("FORECASTPIPE_SYSTEM_LOGGING_LEVEL", "WARN")

	cfg, err := LoadConfig(LoadOptions{Embedded: EmbeddedConfig(baseYAML)})
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Ingest.LookbackDays)
	assert.Equal(t, []string{"current", "hourly"}, cfg.Ingest.Grains)
	assert.Equal(t, 40.5, cfg.Forecast.Latitude)
	assert.True(t, cfg.Migration.Auto)
	assert.Equal(t, "WARN", cfg.System.Logging.Level)
}

func TestLoadConfig_EnvironmentOverrideTypeError(t *testing.T) {
	t.Setenv("FORECASTPIPE_INGEST_MAX_ROWS", "many")

	_, err := LoadConfig(LoadOptions{})
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindConfig))
}

func TestLoadConfig_OverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ingest:\n  max_rows: 50\nserver:\n  address: \":9090\"\n"), 0o600))

	cfg, err := LoadConfig(LoadOptions{Embedded: EmbeddedConfig(baseYAML), OverridePath: path})
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Ingest.MaxRows)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 3, cfg.Ingest.LookbackDays)
}

func TestLoadConfig_MissingOverrideFile(t *testing.T) {
	_, err := LoadConfig(LoadOptions{OverridePath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	assert.Equal(t, exception.KindConfig, exception.KindOf(err))
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"max below min", func(c *Config) { c.Ingest.MinRows = 10; c.Ingest.MaxRows = 5 }},
		{"unknown grain", func(c *Config) { c.Ingest.Grains = []string{"weekly"} }},
		{"no grains", func(c *Config) { c.Ingest.Grains = nil }},
		{"negative lookback", func(c *Config) { c.Ingest.LookbackDays = -1 }},
		{"gcp secret without name", func(c *Config) { c.Secret.Name = "" }},
		{"unknown secret provider", func(c *Config) { c.Secret.Provider = "vault" }},
		{"bad timezone", func(c *Config) { c.System.Timezone = "Mars/Olympus" }},
		{"bad endpoint", func(c *Config) { c.Forecast.Endpoint = "not a url" }},
		{"latitude out of range", func(c *Config) { c.Forecast.Latitude = 91 }},
		{"zero bulk size", func(c *Config) { c.Ingest.BulkSize = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewConfig()
			tc.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Equal(t, exception.KindConfig, exception.KindOf(err))
		})
	}

	assert.NoError(t, Validate(NewConfig()))
}

func TestAdapterProperties_Missing(t *testing.T) {
	cfg := NewConfig()
	_, err := cfg.AdapterProperties(DatabaseAdapterName)
	assert.Error(t, err)

	cfg.Adapters[DatabaseAdapterName] = "sqlite"
	_, err = cfg.AdapterProperties(DatabaseAdapterName)
	assert.Error(t, err)
}

func TestLoadConfig_ExpandedValuesAreVerbatim(t *testing.T) {
	const doc = `
adapters:
  database:
    type: postgres
    user: ${TEST_DB_USER}
    password: ${TEST_DB_PASS}
    database: ${TEST_DB_NAME}
    private_ip: ${TEST_PRIVATE_IP}
`
	for _, password := range []string{"0123", "1e5", "true", "*Secr3t", "%Secr3t", "a: b", "[x]", "#hash"} {
		t.Run(password, func(t *testing.T) {
			t.Setenv("TEST_DB_USER", "0x10")
			t.Setenv("TEST_DB_PASS", password)
			t.Setenv("TEST_DB_NAME", "null")
			t.Setenv("TEST_PRIVATE_IP", "true")

			cfg, err := LoadConfig(LoadOptions{Embedded: EmbeddedConfig(doc)})
			require.NoError(t, err)

			props, err := cfg.AdapterProperties(DatabaseAdapterName)
			require.NoError(t, err)
			assert.Equal(t, password, props["password"])
			assert.Equal(t, "0x10", props["user"])
			assert.Equal(t, "null", props["database"])
			assert.Equal(t, "true", props["private_ip"])
			// Literal scalars keep their YAML type.
			assert.Equal(t, "postgres", props["type"])
		})
	}
}

type upperExpander struct{}

func (upperExpander) Expand(value string) (string, error) {
	return strings.ToUpper(value), nil
}

func TestLoadConfig_ExpanderSeesOnlyPlaceholderScalars(t *testing.T) {
	const doc = `
ingest:
  lookback_days: 3
adapters:
  storage:
    type: memory
    bucket_name: $bucket
`
	cfg, err := LoadConfig(LoadOptions{Embedded: EmbeddedConfig(doc), Expander: upperExpander{}})
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Ingest.LookbackDays)
	props, err := cfg.AdapterProperties(StorageAdapterName)
	require.NoError(t, err)
	assert.Equal(t, "memory", props["type"])
	assert.Equal(t, "$BUCKET", props["bucket_name"])
}
