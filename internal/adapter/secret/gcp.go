package secret

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"github.com/tigerroll/forecastpipe/internal/support/logger"
)

// versionAccessor is the subset of the Secret Manager client used here.
type versionAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// GCPSource reads secret versions from Google Secret Manager.
type GCPSource struct {
	client versionAccessor
}

// NewGCPSource creates a Secret Manager client using Application Default Credentials
// unless client options say otherwise.
func NewGCPSource(ctx context.Context, opts ...option.ClientOption) (*GCPSource, error) {
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}
	return &GCPSource{client: client}, nil
}

// Access implements Source. name is the full secret version resource name.
func (s *GCPSource) Access(ctx context.Context, name string) (string, error) {
	logger.Debugf("Accessing secret version %s", name)
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", err
	}
	return string(resp.GetPayload().GetData()), nil
}

// Close releases the client.
func (s *GCPSource) Close() error {
	return s.client.Close()
}
