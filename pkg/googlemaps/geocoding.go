package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Label reverse-geocodes a coordinate into a short zone name: the leading
// component of the first formatted address Google returns. Results are cached
// per rounded coordinate.
func (c *Client) Label(ctx context.Context, lat, lng float64) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	key := cacheKey(lat, lng)
	if label, ok := c.labels.get(key); ok {
		c.logger.Debug("label cache hit", "key", key, "label", label)
		return label, nil
	}

	apiURL := fmt.Sprintf("%s/maps/api/geocode/json?latlng=%f,%f&key=%s", c.geocodingURL, lat, lng, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return "", err
	}

	body, status, err := c.do(req)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("geocoding API failed with status %d", status)
	}

	var result struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
		Results      []struct {
			FormattedAddress string `json:"formatted_address"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse geocoding response: %w", err)
	}
	if result.Status != "OK" || len(result.Results) == 0 {
		if result.ErrorMessage != "" {
			return "", fmt.Errorf("reverse geocoding failed: %s", result.ErrorMessage)
		}
		return "", fmt.Errorf("reverse geocoding failed for %s: %s", key, result.Status)
	}

	label := shortLabel(result.Results[0].FormattedAddress)
	if label == "" {
		return "", fmt.Errorf("reverse geocoding returned an empty address for %s", key)
	}
	c.labels.set(key, label)
	return label, nil
}

// shortLabel keeps the first comma-separated part of an address.
func shortLabel(address string) string {
	first, _, _ := strings.Cut(address, ",")
	return strings.TrimSpace(first)
}

// cacheKey rounds to four decimals, roughly ten meters.
func cacheKey(lat, lng float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lng)
}
