// Package config holds the forecastpipe configuration model and its loader.
package config

import (
	"fmt"
	"time"
)

// EmbeddedConfig holds the raw bytes of the application YAML, typically embedded by main.
type EmbeddedConfig []byte

// Adapter section names under `adapters:`.
const (
	StorageAdapterName  = "storage"
	DatabaseAdapterName = "database"
)

// Config is the root configuration for every forecastpipe command.
type Config struct {
	System    SystemConfig    `yaml:"system"`
	Forecast  ForecastConfig  `yaml:"forecast"`
	Secret    SecretConfig    `yaml:"secret"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Migration MigrationConfig `yaml:"migration"`
	Server    ServerConfig    `yaml:"server"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	// Adapters holds loosely typed adapter sections ("storage", "database") that are
	// bound to their adapter's own config struct with configbinder.
	Adapters map[string]interface{} `yaml:"adapters"`
}

// SystemConfig holds process-wide settings.
type SystemConfig struct {
	// Timezone is the IANA zone used for the ingestion window and as the fallback
	// zone for rendering forecast timestamps.
	Timezone string        `yaml:"timezone" validate:"required"`
	Logging  LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// ForecastConfig configures the upstream One Call request.
type ForecastConfig struct {
	Endpoint       string        `yaml:"endpoint" validate:"required,url"`
	Latitude       float64       `yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude      float64       `yaml:"longitude" validate:"gte=-180,lte=180"`
	Exclude        string        `yaml:"exclude"`
	Units          string        `yaml:"units" validate:"required"`
	APIKey         string        `yaml:"api_key"`
	TimeoutSeconds int           `yaml:"timeout_seconds" validate:"gt=0"`
	Breaker        BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the upstream circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold int `yaml:"failure_threshold" validate:"gte=1"`
	// OpenSeconds is how long the breaker stays open before a trial request is allowed.
	OpenSeconds int `yaml:"open_seconds" validate:"gte=1"`
}

// SecretConfig locates the upstream API key.
type SecretConfig struct {
	// Provider is "gcp" (Secret Manager) or "env" (Forecast.APIKey).
	Provider  string `yaml:"provider" validate:"oneof=gcp env"`
	ProjectID string `yaml:"project_id" validate:"required_if=Provider gcp"`
	Name      string `yaml:"name" validate:"required_if=Provider gcp"`
	Version   string `yaml:"version"`
}

// IngestConfig configures the ingestion run.
type IngestConfig struct {
	Grains       []string `yaml:"grains" validate:"min=1,dive,oneof=current daily hourly"`
	LookbackDays int      `yaml:"lookback_days" validate:"gte=0"`
	MinRows      int      `yaml:"min_rows" validate:"gte=0"`
	MaxRows      int      `yaml:"max_rows" validate:"gtefield=MinRows"`
	BulkSize     int      `yaml:"bulk_size" validate:"gt=0"`
	TablePrefix  string   `yaml:"table_prefix" validate:"required"`
}

// MigrationConfig controls schema migrations.
type MigrationConfig struct {
	// Auto applies pending migrations before serving or ingesting.
	Auto  bool   `yaml:"auto"`
	Table string `yaml:"table" validate:"required"`
}

// ServerConfig configures the HTTP invocation server.
type ServerConfig struct {
	Address string `yaml:"address" validate:"required"`
}

// ScheduleConfig holds optional cron expressions for in-process scheduling.
// An empty expression disables that schedule.
type ScheduleConfig struct {
	Fetch  string `yaml:"fetch"`
	Ingest string `yaml:"ingest"`
}

// TelemetryConfig configures tracing.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name"`
	// OTLPEndpoint enables the OTLP/HTTP trace exporter when set (host:port).
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		System: SystemConfig{
			Timezone: "UTC",
			Logging:  LoggingConfig{Level: "INFO", Format: "text"},
		},
		Forecast: ForecastConfig{
			Endpoint:       "https://api.openweathermap.org/data/3.0/onecall",
			Latitude:       33.17,
			Longitude:      96.95,
			Exclude:        "alerts",
			Units:          "standard",
			TimeoutSeconds: 30,
			Breaker:        BreakerConfig{FailureThreshold: 3, OpenSeconds: 300},
		},
		Secret: SecretConfig{
			Provider:  "gcp",
			ProjectID: "weather-data-podpechan",
			Name:      "weather_api",
			Version:   "latest",
		},
		Ingest: IngestConfig{
			Grains:       []string{"current"},
			LookbackDays: 7,
			MinRows:      1,
			MaxRows:      10000,
			BulkSize:     500,
			TablePrefix:  "weather_data_",
		},
		Migration: MigrationConfig{Table: "schema_migrations"},
		Server:    ServerConfig{Address: ":8080"},
		Telemetry: TelemetryConfig{ServiceName: "forecastpipe"},
		Adapters:  map[string]interface{}{},
	}
}

// Location resolves the configured timezone.
//
// Returns:
//
//	The *time.Location for Timezone, or an error if the zone is unknown.
func (c SystemConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
	}
	return loc, nil
}

// AdapterProperties returns the raw properties of the named adapter section.
//
// Parameters:
//
//	name: The section name under `adapters:`, e.g. AdapterDatabase.
//
// Returns:
//
//	The section's properties, or an error if the section is missing or is not a mapping.
func (c *Config) AdapterProperties(name string) (map[string]interface{}, error) {
	raw, ok := c.Adapters[name]
	if !ok || raw == nil {
		return nil, fmt.Errorf("adapter configuration '%s' not found", name)
	}
	props, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("adapter configuration '%s' must be a mapping, got %T", name, raw)
	}
	return props, nil
}
