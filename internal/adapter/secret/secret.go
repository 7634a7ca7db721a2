// Package secret resolves the upstream API key from a secret store.
package secret

import (
	"context"
	"fmt"
	"strings"

	"github.com/tigerroll/forecastpipe/internal/config"
	"github.com/tigerroll/forecastpipe/internal/support/exception"
)

const moduleName = "secret"

// Source reads a secret value by name.
type Source interface {
	Access(ctx context.Context, name string) (string, error)
}

// StaticSource returns a fixed value for every name. It serves the "env" provider,
// where the key is supplied through configuration.
type StaticSource struct {
	value string
}

// NewStaticSource creates a StaticSource.
func NewStaticSource(value string) *StaticSource {
	return &StaticSource{value: value}
}

// Access implements Source.
func (s *StaticSource) Access(_ context.Context, name string) (string, error) {
	if s.value == "" {
		return "", exception.Newf(moduleName, exception.KindSecret, "secret '%s' is empty; set forecast.api_key", name)
	}
	return s.value, nil
}

// VersionName builds the Secret Manager resource name of a secret version.
// An empty version selects "latest".
func VersionName(projectID, name, version string) string {
	if version == "" {
		version = "latest"
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", projectID, name, version)
}

// Resolve reads the API key named by cfg from src.
func Resolve(ctx context.Context, src Source, cfg config.SecretConfig) (string, error) {
	name := cfg.Name
	if cfg.Provider == "gcp" {
		name = VersionName(cfg.ProjectID, cfg.Name, cfg.Version)
	}
	value, err := src.Access(ctx, name)
	if err != nil {
		if exception.KindOf(err) == exception.KindSecret {
			return "", err
		}
		return "", exception.Newf(moduleName, exception.KindSecret, "failed to access secret '%s'", name, err)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", exception.Newf(moduleName, exception.KindSecret, "secret '%s' has an empty payload", name)
	}
	return value, nil
}
