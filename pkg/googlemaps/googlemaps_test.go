package googlemaps

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("test-key", srv.Client(), nil, append([]Option{WithBaseURL(srv.URL)}, opts...)...)
	c.retryDelay = time.Millisecond
	return c
}

func TestCurrentPosition(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/geolocation/v1/geolocate" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("Expected API key in query, got %q", r.URL.RawQuery)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"considerIp":true}` {
			t.Errorf("Unexpected body %s", body)
		}
		_, _ = w.Write([]byte(`{"location":{"lat":38.72,"lng":-9.14},"accuracy":1200}`))
	})

	loc, err := c.CurrentPosition(context.Background())
	if err != nil {
		t.Fatalf("CurrentPosition returned error: %v", err)
	}
	if loc.Latitude != 38.72 || loc.Longitude != -9.14 {
		t.Errorf("Expected 38.72,-9.14, got %+v", loc)
	}
}

func TestCurrentPositionRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"location":{"lat":1,"lng":2}}`))
	})

	loc, err := c.CurrentPosition(context.Background())
	if err != nil {
		t.Fatalf("CurrentPosition returned error: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls.Load())
	}
	if loc.Latitude != 1 || loc.Longitude != 2 {
		t.Errorf("Expected 1,2, got %+v", loc)
	}
}

func TestCurrentPositionClientErrorIsFinal(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
	})

	if _, err := c.CurrentPosition(context.Background()); err == nil {
		t.Fatal("Expected error for 404")
	}
	if calls.Load() != 1 {
		t.Errorf("Expected a single attempt, got %d", calls.Load())
	}
}

func TestNoAPIKey(t *testing.T) {
	c := NewClient("", nil, nil)
	if _, err := c.CurrentPosition(context.Background()); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}
	if _, err := c.Label(context.Background(), 1, 2); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}
}

func TestLabel(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/maps/api/geocode/json" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("latlng") == "" {
			t.Error("Expected latlng parameter")
		}
		_, _ = w.Write([]byte(`{"status":"OK","results":[
			{"formatted_address":"Praça do Comércio, 1100-148 Lisboa, Portugal"},
			{"formatted_address":"Lisboa, Portugal"}]}`))
	})

	label, err := c.Label(context.Background(), 38.70757, -9.13656)
	if err != nil {
		t.Fatalf("Label returned error: %v", err)
	}
	if label != "Praça do Comércio" {
		t.Errorf("Expected %q, got %q", "Praça do Comércio", label)
	}

	// Within rounding distance the cache answers.
	if _, err := c.Label(context.Background(), 38.70758, -9.13657); err != nil {
		t.Fatalf("cached Label returned error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected one API call, got %d", calls.Load())
	}
}

func TestLabelZeroResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})
	if _, err := c.Label(context.Background(), 0, 0); err == nil {
		t.Error("Expected error for ZERO_RESULTS")
	}
}

func TestLabelCachePersists(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	handler := func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"Cacém, Portugal"}]}`))
	}

	first := newTestClient(t, handler, WithCacheDir(dir))
	if _, err := first.Label(context.Background(), 38.77, -9.3); err != nil {
		t.Fatalf("Label returned error: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	second := newTestClient(t, handler, WithCacheDir(dir))
	label, err := second.Label(context.Background(), 38.77, -9.3)
	if err != nil {
		t.Fatalf("Label returned error: %v", err)
	}
	if label != "Cacém" {
		t.Errorf("Expected Cacém, got %q", label)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected label served from disk cache, got %d API calls", calls.Load())
	}
}

func TestShortLabel(t *testing.T) {
	tests := map[string]string{
		"Rua Augusta 10, Lisboa": "Rua Augusta 10",
		"  Sintra  ":             "Sintra",
		"":                       "",
	}
	for in, want := range tests {
		if got := shortLabel(in); got != want {
			t.Errorf("shortLabel(%q) = %q, expected %q", in, got, want)
		}
	}
}
