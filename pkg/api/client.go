// Package api talks to the ic19 recommendation backend.
//
// Every call is a single attempt: retries are always a user decision.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/codeGROOVE-dev/ic19/pkg/commute"
)

// DefaultBaseURL is where a local backend listens.
const DefaultBaseURL = "http://localhost:8000"

// HTTPClient interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Body       string
	StatusCode int
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Client is the backend boundary used by onboarding and the session.
type Client struct {
	httpClient HTTPClient
	logger     *slog.Logger
	validate   *validator.Validate
	baseURL    string
}

// NewClient creates a new backend client. A nil httpClient gets a 30s timeout client.
func NewClient(baseURL string, httpClient HTTPClient, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		validate:   validator.New(),
	}
}

type signupResponse struct {
	UserID commute.UserID `json:"user_id" validate:"required,gt=0"`
}

// Signup registers profile and returns the new user identifier.
func (c *Client) Signup(ctx context.Context, profile commute.CommuteProfile) (commute.UserID, error) {
	raw, err := c.do(ctx, http.MethodPost, "/signup", profile)
	if err != nil {
		return 0, fmt.Errorf("signup: %w", err)
	}
	var out signupResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Debug("signup response unreadable", "error", err)
		return 0, fmt.Errorf("signup: %w", commute.ErrUnexpectedResponse)
	}
	if err := c.validate.Struct(out); err != nil {
		c.logger.Debug("signup response rejected", "error", err)
		return 0, fmt.Errorf("signup: %w", commute.ErrUnexpectedResponse)
	}
	return out.UserID, nil
}

// Recommendations returns the ranked slots for user on date (YYYY-MM-DD).
func (c *Client) Recommendations(ctx context.Context, user commute.UserID, date string) ([]commute.Slot, error) {
	path := "/recommendations/" + strconv.FormatInt(int64(user), 10) + "?" + url.Values{"date_str": {date}}.Encode()

	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching recommendations: %w", err)
	}
	var slots []commute.Slot
	if err := json.Unmarshal(raw, &slots); err != nil {
		c.logger.Debug("recommendations unreadable", "error", err)
		return nil, fmt.Errorf("fetching recommendations: %w", commute.ErrUnexpectedResponse)
	}
	for i := range slots {
		if err := c.validate.Struct(slots[i]); err != nil {
			c.logger.Debug("recommendation rejected", "index", i, "slot", slots[i].SlotISO, "error", err)
			return nil, fmt.Errorf("fetching recommendations: slot %d: %w", i, commute.ErrUnexpectedResponse)
		}
	}
	if slots == nil {
		slots = []commute.Slot{}
	}
	return slots, nil
}

type acceptRequest struct {
	Date    string         `json:"date"`
	SlotISO string         `json:"slot_iso"`
	UserID  commute.UserID `json:"user_id"`
}

type acceptResponse struct {
	Accepted *bool  `json:"accepted"`
	Reason   string `json:"reason"`
}

// Accept records the user's choice of slot for date.
// Any 2xx counts as accepted unless the body explicitly says otherwise.
func (c *Client) Accept(ctx context.Context, user commute.UserID, date, slotISO string) error {
	req := acceptRequest{UserID: user, Date: date, SlotISO: slotISO}
	raw, err := c.do(ctx, http.MethodPost, "/accept", req)
	if err != nil {
		return fmt.Errorf("accepting slot: %w", err)
	}
	var out acceptResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		// No particular body is required.
		return nil
	}
	if out.Accepted != nil && !*out.Accepted {
		c.logger.Debug("accept declined", "slot", slotISO, "reason", out.Reason)
		return fmt.Errorf("accepting slot %s: %w", slotISO, commute.ErrNotAccepted)
	}
	return nil
}

// do sends one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, in any) ([]byte, error) {
	var body io.Reader = http.NoBody
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	c.logger.Debug("making API request", "method", method, "path", path, "request_id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("API request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "error", closeErr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("API request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		preview := strings.TrimSpace(string(raw))
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: preview}
	}
	return raw, nil
}
