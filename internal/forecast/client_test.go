package forecast

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/forecastpipe/internal/config"
	"github.com/tigerroll/forecastpipe/internal/support/exception"
)

func staticKey(key string) KeyFunc {
	return func(context.Context) (string, error) { return key, nil }
}

func testForecastConfig(endpoint string) config.ForecastConfig {
	cfg := config.NewConfig().Forecast
	cfg.Endpoint = endpoint
	cfg.Breaker = config.BreakerConfig{FailureThreshold: 2, OpenSeconds: 60}
	return cfg
}

func TestOpenWeatherClient_Fetch(t *testing.T) {
	payload, err := os.ReadFile("testdata/onecall.json")
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "33.17", q.Get("lat"))
		assert.Equal(t, "96.95", q.Get("lon"))
		assert.Equal(t, "alerts", q.Get("exclude"))
		assert.Equal(t, "secret-key", q.Get("appid"))
		assert.Empty(t, q.Get("units"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	client := NewOpenWeatherClient(testForecastConfig(server.URL), staticKey("secret-key"), server.Client())
	snap, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap.Timezone)
	assert.Equal(t, "America/Chicago", *snap.Timezone)
	assert.Len(t, snap.Hourly, 3)
}

func TestOpenWeatherClient_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"cod":401,"message":"Invalid API key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewOpenWeatherClient(testForecastConfig(server.URL), staticKey("bad"), server.Client())
	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, exception.KindUpstream, exception.KindOf(err))
	assert.ErrorIs(t, err, errUnexpectedStatus)
	assert.Contains(t, err.Error(), "401")
}

func TestOpenWeatherClient_DecodeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer server.Close()

	client := NewOpenWeatherClient(testForecastConfig(server.URL), staticKey("k"), server.Client())
	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindUpstream))
	assert.Contains(t, err.Error(), "decode")
}

func TestOpenWeatherClient_BreakerOpensWithoutRetrying(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewOpenWeatherClient(testForecastConfig(server.URL), staticKey("k"), server.Client())
	ctx := context.Background()

	_, err := client.Fetch(ctx)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err = client.Fetch(ctx)
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, client.BreakerState())

	_, err = client.Fetch(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestOpenWeatherClient_KeyFailureSkipsRequest(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	keyErr := exception.New("secret", exception.KindSecret, "denied", nil)
	client := NewOpenWeatherClient(testForecastConfig(server.URL), func(context.Context) (string, error) {
		return "", keyErr
	}, server.Client())

	_, err := client.Fetch(context.Background())
	assert.True(t, errors.Is(err, keyErr))
	assert.Zero(t, atomic.LoadInt32(&calls))
}
