// Package commute defines the data shared by the ic19 client components.
package commute

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrUnexpectedResponse is returned when the backend answers with a shape the client cannot use.
	ErrUnexpectedResponse = errors.New("unexpected response from server")

	// ErrNotAccepted is returned when the backend explicitly declines an accept request.
	ErrNotAccepted = errors.New("slot not accepted")
)

// UserID is the opaque identifier the backend assigns at signup.
type UserID int64

// GeoPoint is either a map coordinate or a purely textual zone.
// Textual points carry zero coordinates and a mandatory label.
type GeoPoint struct {
	Label     string  `json:"label,omitempty"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// TextPoint builds a textual zone point.
func TextPoint(label string) GeoPoint {
	return GeoPoint{Label: strings.TrimSpace(label)}
}

// IsTextual reports whether the point only carries a zone label.
func (p GeoPoint) IsTextual() bool {
	return p.Latitude == 0 && p.Longitude == 0 && p.Label != ""
}

// Preferences holds the optional points captured during onboarding.
type Preferences struct {
	Origin      *GeoPoint `json:"origin"`
	Destination *GeoPoint `json:"destination"`
}

// CommuteProfile is the signup payload.
type CommuteProfile struct {
	EmployerName *string     `json:"employer_name"`
	HomeZone     string      `json:"home_zone"`
	WorkZone     string      `json:"work_zone"`
	Preferences  Preferences `json:"preferences_json"`
	FlexMinusMin int         `json:"flex_minus_min"`
	FlexPlusMin  int         `json:"flex_plus_min"`
}

// Slot is one ranked departure candidate for a given date.
type Slot struct {
	SlotISO string  `json:"slot_iso" validate:"required"`
	EtaMin  float64 `json:"eta_min" validate:"gte=0"`
	Rank    int     `json:"rank" validate:"gte=1"`
	Chosen  bool    `json:"chosen"`
}

var slotLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05.999999",
}

// Time parses SlotISO. Timestamps without an offset are read in loc;
// timestamps with one are converted to loc.
func (s Slot) Time(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339Nano, s.SlotISO); err == nil {
		return t.In(loc), nil
	}
	var lastErr error
	for _, layout := range slotLayouts {
		t, err := time.ParseInLocation(layout, s.SlotISO, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
