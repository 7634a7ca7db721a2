// Package local provides a file-system implementation of storage.Connection.
// A bucket is a sub-directory of BaseDir; object names are slash-separated
// paths relative to the bucket directory.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tigerroll/forecastpipe/internal/adapter/storage"
	"github.com/tigerroll/forecastpipe/internal/support/logger"
)

// ProviderType is the storage type handled by this package.
const ProviderType = "local"

func init() {
	storage.RegisterFactory(ProviderType, func(_ context.Context, cfg storage.Config, name string) (storage.Connection, error) {
		return NewLocalAdapter(cfg, name)
	})
}

type localAdapter struct {
	cfg  storage.Config
	name string
}

var _ storage.Connection = (*localAdapter)(nil)

// NewLocalAdapter creates a local adapter, creating BaseDir if it does not exist.
//
// Parameters:
//
//	cfg: The storage configuration. BaseDir is required and BucketName is the default bucket.
//	name: The connection name.
//
// Returns:
//
//	A storage.Connection rooted at BaseDir, or an error if BaseDir is empty or
//	cannot be created.
func NewLocalAdapter(cfg storage.Config, name string) (storage.Connection, error) {
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("local storage adapter '%s': base_dir must be specified", name)
	}
	info, err := os.Stat(cfg.BaseDir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
			return nil, fmt.Errorf("local storage adapter '%s': failed to create base_dir '%s': %w", name, cfg.BaseDir, err)
		}
	case err != nil:
		return nil, fmt.Errorf("local storage adapter '%s': failed to stat base_dir '%s': %w", name, cfg.BaseDir, err)
	case !info.IsDir():
		return nil, fmt.Errorf("local storage adapter '%s': base_dir '%s' is not a directory", name, cfg.BaseDir)
	}
	return &localAdapter{cfg: cfg, name: name}, nil
}

func (a *localAdapter) Close() error {
	logger.Debugf("Local storage adapter '%s' closed.", a.name)
	return nil
}

func (a *localAdapter) Type() string { return ProviderType }

func (a *localAdapter) Name() string { return a.name }

// Upload writes the object, creating intermediate directories. An existing object is replaced.
func (a *localAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	fullPath, err := a.resolvePath(bucket, objectName)
	if err != nil {
		return fmt.Errorf("failed to resolve path for upload: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for '%s': %w", fullPath, err)
	}

	// Write to a temp file and rename so readers never see a partial object.
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for '%s': %w", fullPath, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data to '%s': %w", fullPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for '%s': %w", fullPath, err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("failed to move upload into place at '%s': %w", fullPath, err)
	}
	logger.Debugf("Uploaded '%s' (%s) via local adapter '%s'.", fullPath, contentType, a.name)
	return nil
}

func (a *localAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	fullPath, err := a.resolvePath(bucket, objectName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path for download: %w", err)
	}
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file '%s': %w", fullPath, err)
	}
	return file, nil
}

// ListObjects walks the bucket directory in lexical order. A missing bucket directory lists nothing.
func (a *localAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	basePath, err := a.resolvePath(bucket, "")
	if err != nil {
		return fmt.Errorf("failed to resolve base path for listing: %w", err)
	}
	if _, err := os.Stat(basePath); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	err = filepath.WalkDir(basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(basePath, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path for '%s': %w", path, err)
		}
		objectName := filepath.ToSlash(rel)
		if !strings.HasPrefix(objectName, prefix) {
			return nil
		}
		return fn(objectName)
	})
	if err != nil {
		return fmt.Errorf("failed to list objects in '%s' with prefix '%s': %w", basePath, prefix, err)
	}
	return nil
}

// resolvePath maps bucket and object name to a path under BaseDir, rejecting
// names that would escape it.
func (a *localAdapter) resolvePath(bucket, objectName string) (string, error) {
	if bucket == "" {
		bucket = a.cfg.BucketName
	}
	base, err := filepath.Abs(a.cfg.BaseDir)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(base, bucket, filepath.FromSlash(objectName))
	if fullPath != base && !strings.HasPrefix(fullPath, base+string(os.PathSeparator)) {
		return "", fmt.Errorf("path '%s' escapes base_dir '%s'", objectName, a.cfg.BaseDir)
	}
	return fullPath, nil
}
