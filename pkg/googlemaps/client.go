// Package googlemaps provides the device position and marker labels the map
// capture needs, backed by the Google Geolocation and Geocoding APIs.
package googlemaps

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrNoAPIKey is returned by every call when no key was configured.
var ErrNoAPIKey = errors.New("google Maps API key not configured")

const (
	defaultGeolocationURL = "https://www.googleapis.com"
	defaultGeocodingURL   = "https://maps.googleapis.com"
	labelTTL              = 24 * time.Hour
)

// Location represents a geographic location with coordinates.
type Location struct {
	Latitude  float64
	Longitude float64
}

// HTTPClient interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points both APIs at one host. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.geolocationURL = u
		c.geocodingURL = u
	}
}

// WithCacheDir persists resolved labels under dir between runs.
func WithCacheDir(dir string) Option {
	return func(c *Client) {
		c.cacheDir = dir
	}
}

// Client handles Google Maps API operations.
type Client struct {
	httpClient     HTTPClient
	logger         *slog.Logger
	labels         *labelCache
	apiKey         string
	geolocationURL string
	geocodingURL   string
	cacheDir       string
	retryDelay     time.Duration
	attempts       uint
}

// NewClient creates a new Google Maps API client.
func NewClient(apiKey string, httpClient HTTPClient, logger *slog.Logger, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		apiKey:         apiKey,
		httpClient:     httpClient,
		logger:         logger,
		geolocationURL: defaultGeolocationURL,
		geocodingURL:   defaultGeocodingURL,
		retryDelay:     500 * time.Millisecond,
		attempts:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.labels = newLabelCache(c.cacheDir, labelTTL, logger)
	return c
}

// Close writes the label cache to disk when a cache directory is configured.
func (c *Client) Close() error {
	return c.labels.save()
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Debug("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}

	bodyPreviewLen := min(len(body), 200)
	c.logger.Debug("maps API raw response", "path", req.URL.Path, "status", resp.StatusCode,
		"body_preview", string(body[:bodyPreviewLen]))
	return body, resp.StatusCode, nil
}
