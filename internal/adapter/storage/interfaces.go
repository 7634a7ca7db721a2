// Package storage defines the blob storage abstraction used to persist forecast
// CSV objects and to read them back during ingestion. Concrete backends (GCS,
// local file system, in-memory) live in sub-packages and register themselves
// with RegisterFactory from their init functions.
package storage

import (
	"context"
	"io"
)

// Executor defines generic storage operations.
// It is embedded into Connection together with the connection lifecycle methods.
type Executor interface {
	// Upload writes data to the named object, replacing any existing object.
	// An empty bucket selects the connection's default bucket. 'contentType' is the MIME type of data.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download opens the named object for reading.
	// It returns a ReadCloser which must be closed by the caller after use.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for every object whose name starts with prefix, in
	// lexicographic name order. Returning an error from fn stops the listing.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
}

// Connection is a named storage connection.
// Connections are opened through Open and closed by the fx lifecycle that owns them.
type Connection interface {
	Executor
	// Close releases the underlying client.
	Close() error
	// Type returns the backend type (e.g. "gcs", "local", "memory").
	Type() string
	// Name returns the connection name.
	Name() string
}
