// Package location captures an origin/destination pair for a commute.
//
// Two variants implement Capturer: MapCapture drives an interactive map
// surface seeded from the device position, TextCapture falls back to two free
// text zone fields. Select picks one once, from the capabilities the host has.
package location

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/codeGROOVE-dev/ic19/pkg/commute"
)

var (
	// ErrCancelled is returned when the user closes the capture without confirming.
	ErrCancelled = errors.New("capture cancelled")

	// ErrMissingData marks a confirm attempt before both points exist.
	// Capturers report it to their surface and keep going; it never escapes Capture.
	ErrMissingData = errors.New("missing data")

	// ErrNoPosition is returned by a Device without a position source.
	ErrNoPosition = errors.New("no position source")
)

// Source tells which variant produced a Selection.
type Source int

const (
	SourceMap Source = iota + 1
	SourceText
)

func (s Source) String() string {
	switch s {
	case SourceMap:
		return "map"
	case SourceText:
		return "text"
	default:
		return "unknown"
	}
}

// Selection is a confirmed origin/destination pair.
type Selection struct {
	Origin      commute.GeoPoint
	Destination commute.GeoPoint
	Source      Source
}

// Capturer produces a Selection, or ErrCancelled.
// The initial points may be nil.
type Capturer interface {
	Capture(ctx context.Context, origin, destination *commute.GeoPoint) (Selection, error)
}

// Coordinates is a bare position fix.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Locator is the device location capability. Both calls may fail; callers
// decide how much that matters.
type Locator interface {
	RequestPermission(ctx context.Context) (bool, error)
	CurrentPosition(ctx context.Context) (Coordinates, error)
}

// Labeler turns a coordinate into a human readable zone label.
type Labeler interface {
	Label(ctx context.Context, lat, lng float64) (string, error)
}

// LabelFunc adapts a function to Labeler.
type LabelFunc func(ctx context.Context, lat, lng float64) (string, error)

func (f LabelFunc) Label(ctx context.Context, lat, lng float64) (string, error) {
	return f(ctx, lat, lng)
}

// Platform lists the capture capabilities a host offers.
type Platform struct {
	Surface Surface
	Locator Locator
	Labeler Labeler
	Form    Form
	Logger  *slog.Logger
}

// HasMap reports whether the map variant can run.
func (p Platform) HasMap() bool {
	return p.Surface != nil && p.Locator != nil
}

// Select returns the map variant when the platform can render a map, and the
// text variant otherwise.
func Select(p Platform) Capturer {
	if p.HasMap() {
		return NewMapCapture(p.Locator, p.Surface, p.Labeler, p.Logger)
	}
	return NewTextCapture(p.Form, p.Logger)
}

func labelOf(p *commute.GeoPoint) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.Label)
}
