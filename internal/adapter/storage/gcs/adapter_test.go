package gcs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/forecastpipe/internal/adapter/storage"
)

// failingReader returns a first chunk of data, then fails.
type failingReader struct {
	sent bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.sent {
		return 0, errors.New("source stream reset")
	}
	r.sent = true
	return copy(p, "id,lat,lon\n1700000000,33.17,"), nil
}

func newTestAdapter(t *testing.T) (storage.Connection, *int32) {
	t.Helper()
	var uploads int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/upload/") {
			atomic.AddInt32(&uploads, 1)
			_, _ = io.Copy(io.Discard, r.Body)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"bucket":"weather_payload","name":"1700000000_forecast_current.csv"}`))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)

	conn, err := NewAdapter(context.Background(), storage.Config{
		Type:       ProviderType,
		BucketName: "weather_payload",
		Endpoint:   server.URL + "/storage/v1/",
	}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, &uploads
}

func TestGCSAdapter_UploadCommitsObject(t *testing.T) {
	conn, uploads := newTestAdapter(t)

	err := conn.Upload(context.Background(), "", "1700000000_forecast_current.csv", strings.NewReader("id\n1\n"), "text/csv")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(uploads))
}

func TestGCSAdapter_FailedCopyCommitsNothing(t *testing.T) {
	conn, uploads := newTestAdapter(t)

	err := conn.Upload(context.Background(), "", "1700000000_forecast_current.csv", &failingReader{}, "text/csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source stream reset")
	assert.Zero(t, atomic.LoadInt32(uploads))
}

func TestGCSAdapter_RequiresBucket(t *testing.T) {
	conn, err := NewAdapter(context.Background(), storage.Config{Type: ProviderType, Endpoint: "http://127.0.0.1:1/storage/v1/"}, "test")
	require.NoError(t, err)
	defer conn.Close()

	err = conn.Upload(context.Background(), "", "a.csv", strings.NewReader("x"), "text/csv")
	require.Error(t, err)
}
