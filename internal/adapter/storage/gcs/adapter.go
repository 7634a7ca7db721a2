// Package gcs provides a Google Cloud Storage implementation of storage.Connection.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/tigerroll/forecastpipe/internal/adapter/storage"
	"github.com/tigerroll/forecastpipe/internal/support/logger"
)

// ProviderType is the storage type handled by this package.
const ProviderType = "gcs"

func init() {
	storage.RegisterFactory(ProviderType, NewAdapter)
}

type gcsAdapter struct {
	client *gcstorage.Client
	cfg    storage.Config
	name   string
}

var _ storage.Connection = (*gcsAdapter)(nil)

// NewAdapter creates a GCS client.
//
// Credentials come from CredentialsFile when set, otherwise from Application
// Default Credentials. When Endpoint is set the client talks to that endpoint
// without authentication.
//
// Parameters:
//
//	ctx: The context used to create the client.
//	cfg: The storage configuration; BucketName is the default bucket.
//	name: The connection name, used in logs.
//
// Returns:
//
//	A storage.Connection backed by GCS, or an error if the client cannot be created.
func NewAdapter(ctx context.Context, cfg storage.Config, name string) (storage.Connection, error) {
	var opts []option.ClientOption
	switch {
	case cfg.Endpoint != "":
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs storage adapter '%s': failed to create client: %w", name, err)
	}
	return &gcsAdapter{client: client, cfg: cfg, name: name}, nil
}

func (a *gcsAdapter) Close() error {
	logger.Debugf("Closing GCS storage adapter '%s'.", a.name)
	return a.client.Close()
}

func (a *gcsAdapter) Type() string { return ProviderType }

func (a *gcsAdapter) Name() string { return a.name }

func (a *gcsAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	b, err := storage.ResolveBucket(bucket, a.cfg.BucketName)
	if err != nil {
		return err
	}
	// Cancelling the writer's context aborts the upload, so a failed copy never
	// commits a partial object.
	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := a.client.Bucket(b).Object(objectName).NewWriter(writeCtx)
	w.ContentType = contentType
	if _, err := io.Copy(w, data); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("failed to write gs://%s/%s: %w", b, objectName, err)
	}
	// The object is committed on Close.
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize gs://%s/%s: %w", b, objectName, err)
	}
	logger.Debugf("Uploaded gs://%s/%s (%s).", b, objectName, contentType)
	return nil
}

func (a *gcsAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	b, err := storage.ResolveBucket(bucket, a.cfg.BucketName)
	if err != nil {
		return nil, err
	}
	r, err := a.client.Bucket(b).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", b, objectName, err)
	}
	return r, nil
}

func (a *gcsAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	b, err := storage.ResolveBucket(bucket, a.cfg.BucketName)
	if err != nil {
		return err
	}
	it := a.client.Bucket(b).Objects(ctx, &gcstorage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list gs://%s/%s: %w", b, prefix, err)
		}
		if err := fn(attrs.Name); err != nil {
			return err
		}
	}
}
