package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tigerroll/forecastpipe/internal/support/configbinder"
	"github.com/tigerroll/forecastpipe/internal/support/logger"
)

// Factory opens a Connection for a backend type.
type Factory func(ctx context.Context, cfg Config, name string) (Connection, error)

var (
	factoryRegistry = make(map[string]Factory)
	factoryMutex    sync.RWMutex
)

// RegisterFactory registers the Factory for a backend type.
// Backends call it from their init functions. A second registration for the
// same type replaces the first and logs a warning.
//
// Parameters:
//
//	storageType: The backend type, matched against Config.Type.
//	factory: The function that opens connections of this type.
func RegisterFactory(storageType string, factory Factory) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	if _, exists := factoryRegistry[storageType]; exists {
		logger.Warnf("Storage factory for type '%s' already registered. Overwriting.", storageType)
	}
	factoryRegistry[storageType] = factory
}

// RegisteredTypes lists the registered backend types in sorted order.
func RegisteredTypes() []string {
	factoryMutex.RLock()
	defer factoryMutex.RUnlock()
	types := make([]string, 0, len(factoryRegistry))
	for t := range factoryRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Open creates a connection using the factory registered for cfg.Type.
//
// Parameters:
//
//	ctx: The context passed to the factory.
//	cfg: The storage configuration.
//	name: The connection name, used in logs and returned by Connection.Name.
//
// Returns:
//
//	The opened Connection, or an error if no factory is registered for the
//	type or the factory fails.
func Open(ctx context.Context, cfg Config, name string) (Connection, error) {
	factoryMutex.RLock()
	factory, ok := factoryRegistry[cfg.Type]
	factoryMutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no storage factory registered for type '%s' (registered: %v)", cfg.Type, RegisteredTypes())
	}
	conn, err := factory(ctx, cfg, name)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage connection '%s' (%s): %w", name, cfg.Type, err)
	}
	logger.Infof("Opened storage connection: %s (%s)", name, cfg.Type)
	return conn, nil
}

// OpenFromProperties binds raw adapter properties to Config and opens the connection.
//
// Parameters:
//
//	ctx: The context passed to the factory.
//	props: The adapter properties from the application configuration.
//	name: The connection name.
//
// Returns:
//
//	The opened Connection, or an error if the properties cannot be bound or
//	the connection cannot be opened.
func OpenFromProperties(ctx context.Context, props map[string]interface{}, name string) (Connection, error) {
	var cfg Config
	if err := configbinder.BindProperties(props, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}
	return Open(ctx, cfg, name)
}

// ResolveBucket returns bucket, or the default bucket when bucket is empty.
//
// Parameters:
//
//	bucket: The bucket requested by the caller, possibly empty.
//	defaultBucket: The connection's configured default bucket.
//
// Returns:
//
//	The bucket to use, or an error if both are empty.
func ResolveBucket(bucket, defaultBucket string) (string, error) {
	if bucket != "" {
		return bucket, nil
	}
	if defaultBucket == "" {
		return "", fmt.Errorf("no bucket given and no default bucket configured")
	}
	return defaultBucket, nil
}
