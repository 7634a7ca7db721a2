// Package memory provides an in-process storage.Connection, used for dry runs and tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/tigerroll/forecastpipe/internal/adapter/storage"
)

// ProviderType is the storage type handled by this package.
const ProviderType = "memory"

func init() {
	storage.RegisterFactory(ProviderType, func(_ context.Context, cfg storage.Config, name string) (storage.Connection, error) {
		return NewAdapter(cfg, name), nil
	})
}

// Object is a stored blob.
type Object struct {
	Data        []byte
	ContentType string
}

// Adapter keeps objects in a map keyed by bucket and name.
type Adapter struct {
	cfg     storage.Config
	name    string
	mu      sync.RWMutex
	objects map[string]map[string]Object
	uploads int
}

var _ storage.Connection = (*Adapter)(nil)

// NewAdapter creates an empty in-memory adapter.
func NewAdapter(cfg storage.Config, name string) *Adapter {
	return &Adapter{cfg: cfg, name: name, objects: make(map[string]map[string]Object)}
}

func (a *Adapter) Close() error { return nil }

func (a *Adapter) Type() string { return ProviderType }

func (a *Adapter) Name() string { return a.name }

// Upload stores a copy of data, replacing any existing object of the same name.
func (a *Adapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	b, err := storage.ResolveBucket(bucket, a.cfg.BucketName)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("failed to read upload body for '%s': %w", objectName, err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.objects[b] == nil {
		a.objects[b] = make(map[string]Object)
	}
	a.objects[b][objectName] = Object{Data: body, ContentType: contentType}
	a.uploads++
	return nil
}

func (a *Adapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	obj, ok := a.Get(bucket, objectName)
	if !ok {
		return nil, fmt.Errorf("object '%s' not found in bucket '%s'", objectName, bucket)
	}
	return io.NopCloser(bytes.NewReader(obj.Data)), nil
}

// ListObjects lists in lexicographic order, matching GCS listing order.
func (a *Adapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	b, err := storage.ResolveBucket(bucket, a.cfg.BucketName)
	if err != nil {
		return err
	}
	a.mu.RLock()
	names := make([]string, 0, len(a.objects[b]))
	for name := range a.objects[b] {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	a.mu.RUnlock()

	sort.Strings(names)
	for _, name := range names {
		if err := fn(name); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a stored object.
func (a *Adapter) Get(bucket, objectName string) (Object, bool) {
	b, err := storage.ResolveBucket(bucket, a.cfg.BucketName)
	if err != nil {
		return Object{}, false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	obj, ok := a.objects[b][objectName]
	return obj, ok
}

// UploadCount returns the number of Upload calls that succeeded, including overwrites.
func (a *Adapter) UploadCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.uploads
}
