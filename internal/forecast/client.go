package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tigerroll/forecastpipe/internal/config"
	"github.com/tigerroll/forecastpipe/internal/support/exception"
)

// Client retrieves one forecast snapshot.
type Client interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}

// KeyFunc resolves the API key for a request.
type KeyFunc func(ctx context.Context) (string, error)

var errUnexpectedStatus = errors.New("unexpected status code")

// OpenWeatherClient calls the One Call endpoint once per Fetch, behind a circuit
// breaker that fails fast after consecutive failures. It never retries.
type OpenWeatherClient struct {
	httpClient *http.Client
	endpoint   string
	latitude   float64
	longitude  float64
	exclude    string
	units      string
	apiKey     KeyFunc
	breaker    *gobreaker.CircuitBreaker
}

// NewOpenWeatherClient creates a client. A nil httpClient gets one with the
// configured timeout.
func NewOpenWeatherClient(cfg config.ForecastConfig, apiKey KeyFunc, httpClient *http.Client) *OpenWeatherClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	}
	threshold := uint32(cfg.Breaker.FailureThreshold)
	if threshold == 0 {
		threshold = 1
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 1,
		Timeout:     time.Duration(cfg.Breaker.OpenSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})
	return &OpenWeatherClient{
		httpClient: httpClient,
		endpoint:   cfg.Endpoint,
		latitude:   cfg.Latitude,
		longitude:  cfg.Longitude,
		exclude:    cfg.Exclude,
		units:      cfg.Units,
		apiKey:     apiKey,
		breaker:    breaker,
	}
}

// BreakerState reports the circuit breaker state.
func (c *OpenWeatherClient) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// Fetch implements Client.
func (c *OpenWeatherClient) Fetch(ctx context.Context) (*Snapshot, error) {
	key, err := c.apiKey(ctx)
	if err != nil {
		return nil, err
	}
	reqURL, err := c.requestURL(key)
	if err != nil {
		return nil, exception.New(moduleName, exception.KindConfig, "invalid forecast endpoint", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, reqURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, exception.New(moduleName, exception.KindUpstream, "forecast API circuit breaker is open", err)
		}
		return nil, exception.New(moduleName, exception.KindUpstream, "forecast request failed", err)
	}
	snap, ok := result.(*Snapshot)
	if !ok {
		return nil, exception.Newf(moduleName, exception.KindUpstream, "unexpected result type from circuit breaker: %T", result)
	}
	return snap, nil
}

func (c *OpenWeatherClient) requestURL(key string) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", err
	}
	values := u.Query()
	values.Set("lat", strconv.FormatFloat(c.latitude, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(c.longitude, 'f', -1, 64))
	if c.exclude != "" {
		values.Set("exclude", c.exclude)
	}
	// standard is the API default.
	if c.units != "" && c.units != "standard" {
		values.Set("units", c.units)
	}
	values.Set("appid", key)
	u.RawQuery = values.Encode()
	return u.String(), nil
}

func (c *OpenWeatherClient) do(ctx context.Context, reqURL string) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, redact(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %d: %s", errUnexpectedStatus, resp.StatusCode, string(body))
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode forecast response: %w", err)
	}
	return &snap, nil
}

// redact strips the request URL, which carries the API key, from transport errors.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request failed: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
