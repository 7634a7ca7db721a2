package config

import (
	"os"
)

// EnvironmentExpander expands environment variable placeholders in configuration values.
type EnvironmentExpander interface {
	// Expand replaces ${VAR} and $VAR placeholders in a single string value.
	//
	// Parameters:
	//
	//	value: A string scalar taken from the parsed configuration document.
	//
	// Returns:
	//
	//	The expanded value and an error if expansion failed.
	Expand(value string) (string, error)
}

// OsEnvironmentExpander expands placeholders with os.ExpandEnv.
// Unset variables expand to the empty string.
type OsEnvironmentExpander struct{}

// NewOsEnvironmentExpander creates an OsEnvironmentExpander.
func NewOsEnvironmentExpander() *OsEnvironmentExpander {
	return &OsEnvironmentExpander{}
}

// Expand implements EnvironmentExpander. It never returns an error.
func (e *OsEnvironmentExpander) Expand(value string) (string, error) {
	return os.ExpandEnv(value), nil
}
