package secret

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/forecastpipe/internal/config"
	"github.com/tigerroll/forecastpipe/internal/support/exception"
)

type fakeAccessor struct {
	requested string
	data      []byte
	err       error
}

func (f *fakeAccessor) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.requested = req.GetName()
	if f.err != nil {
		return nil, f.err
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    req.GetName(),
		Payload: &secretmanagerpb.SecretPayload{Data: f.data},
	}, nil
}

func (f *fakeAccessor) Close() error { return nil }

func TestVersionName(t *testing.T) {
	assert.Equal(t, "projects/p/secrets/weather_api/versions/latest", VersionName("p", "weather_api", ""))
	assert.Equal(t, "projects/p/secrets/weather_api/versions/1", VersionName("p", "weather_api", "1"))
}

func TestResolve_GCP(t *testing.T) {
	accessor := &fakeAccessor{data: []byte("abc123\n")}
	src := &GCPSource{client: accessor}

	key, err := Resolve(context.Background(), src, config.SecretConfig{
		Provider: "gcp", ProjectID: "weather-data-podpechan", Name: "weather_api", Version: "latest",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", key)
	assert.Equal(t, "projects/weather-data-podpechan/secrets/weather_api/versions/latest", accessor.requested)
}

func TestResolve_GCPFailure(t *testing.T) {
	src := &GCPSource{client: &fakeAccessor{err: errors.New("permission denied")}}

	_, err := Resolve(context.Background(), src, config.SecretConfig{Provider: "gcp", ProjectID: "p", Name: "n"})
	require.Error(t, err)
	assert.Equal(t, exception.KindSecret, exception.KindOf(err))
	assert.Contains(t, err.Error(), "permission denied")
}

func TestResolve_EmptyPayload(t *testing.T) {
	src := &GCPSource{client: &fakeAccessor{data: []byte("  ")}}

	_, err := Resolve(context.Background(), src, config.SecretConfig{Provider: "gcp", ProjectID: "p", Name: "n"})
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindSecret))
}

func TestResolve_Static(t *testing.T) {
	key, err := Resolve(context.Background(), NewStaticSource("k"), config.SecretConfig{Provider: "env"})
	require.NoError(t, err)
	assert.Equal(t, "k", key)

	_, err = Resolve(context.Background(), NewStaticSource(""), config.SecretConfig{Provider: "env"})
	assert.True(t, exception.IsKind(err, exception.KindSecret))
}
