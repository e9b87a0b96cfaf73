package googlemaps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/codeGROOVE-dev/retry"
)

// CurrentPosition estimates where the device is using the Geolocation API.
// Transport failures and 5xx answers are retried; any other rejection is final.
func (c *Client) CurrentPosition(ctx context.Context) (Location, error) {
	if c.apiKey == "" {
		return Location{}, ErrNoAPIKey
	}

	apiURL := fmt.Sprintf("%s/geolocation/v1/geolocate?key=%s", c.geolocationURL, c.apiKey)
	payload := []byte(`{"considerIp":true}`)

	var loc Location
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Content-Type", "application/json")

			body, status, err := c.do(req)
			if err != nil {
				return err
			}
			if status >= 500 {
				return fmt.Errorf("geolocation API server error: %d", status)
			}

			var result struct {
				Error *struct {
					Message string `json:"message"`
					Code    int    `json:"code"`
				} `json:"error"`
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
				Accuracy float64 `json:"accuracy"`
			}
			if err := json.Unmarshal(body, &result); err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to parse geolocation response: %w", err))
			}
			if result.Error != nil {
				return retry.Unrecoverable(fmt.Errorf("geolocation API failed (%d): %s", result.Error.Code, result.Error.Message))
			}
			if status != http.StatusOK {
				return retry.Unrecoverable(fmt.Errorf("geolocation API failed with status %d", status))
			}

			loc = Location{Latitude: result.Location.Lat, Longitude: result.Location.Lng}
			c.logger.Debug("position acquired", "lat", loc.Latitude, "lng", loc.Longitude, "accuracy_m", result.Accuracy)
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying position lookup", "attempt", n+1, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return Location{}, err
	}
	return loc, nil
}
