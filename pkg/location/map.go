package location

import (
	"context"
	"errors"
	"log/slog"

	"github.com/codeGROOVE-dev/ic19/pkg/commute"
)

// Default map framing: Greater Lisbon, zoomed in once a position fix exists.
const (
	DefaultLatitude  = 38.757
	DefaultLongitude = -9.18
	wideSpan         = 0.25
	zoomedSpan       = 0.1
)

// Marker labels used until a Labeler provides something better.
const (
	LabelOrigin          = "Origin"
	LabelDestination     = "Destination"
	LabelCurrentLocation = "Current location"
)

// GestureKind enumerates what the map surface can report.
type GestureKind int

const (
	GestureTap GestureKind = iota + 1
	GestureDragOrigin
	GestureDragDestination
	GestureConfirm
	GestureCancel
)

// Gesture is one user action on the map surface. Point is unused for confirm
// and cancel.
type Gesture struct {
	Point Coordinates
	Kind  GestureKind
}

// View is what the surface should currently render.
type View struct {
	Origin      *commute.GeoPoint
	Destination *commute.GeoPoint
	Center      Coordinates
	Span        float64
	// Ready is false while confirm would be rejected.
	Ready bool
}

// Surface is an interactive map the user taps and drags on.
type Surface interface {
	Show(v View)
	Next(ctx context.Context) (Gesture, error)
	Warn(msg string)
}

// MapCapture is the map-backed Capturer.
type MapCapture struct {
	locator Locator
	surface Surface
	labeler Labeler
	logger  *slog.Logger
}

// NewMapCapture builds the map variant. labeler may be nil.
func NewMapCapture(locator Locator, surface Surface, labeler Labeler, logger *slog.Logger) *MapCapture {
	if logger == nil {
		logger = slog.Default()
	}
	return &MapCapture{
		locator: locator,
		surface: surface,
		labeler: labeler,
		logger:  logger,
	}
}

// Capture runs the map interaction until confirm or cancel.
func (m *MapCapture) Capture(ctx context.Context, origin, destination *commute.GeoPoint) (Selection, error) {
	st := newMapState(origin, destination)
	m.seed(ctx, st)

	for {
		m.surface.Show(st.view())

		g, err := m.surface.Next(ctx)
		if err != nil {
			return Selection{}, err
		}

		switch g.Kind {
		case GestureTap:
			st.tap(g.Point)
		case GestureDragOrigin:
			st.dragOrigin(g.Point)
		case GestureDragDestination:
			st.dragDestination(g.Point)
		case GestureCancel:
			return Selection{}, ErrCancelled
		case GestureConfirm:
			sel, err := st.confirm()
			if errors.Is(err, ErrMissingData) {
				m.surface.Warn("missing data: place both the origin and the destination markers")
				continue
			}
			m.relabel(ctx, st, &sel)
			return sel, nil
		default:
			m.logger.Debug("ignoring unknown gesture", "kind", g.Kind)
		}
	}
}

// seed centers the map on the device. Any failure leaves the default framing.
func (m *MapCapture) seed(ctx context.Context, st *mapState) {
	granted, err := m.locator.RequestPermission(ctx)
	if err != nil {
		m.logger.Debug("location permission request failed", "error", err)
		return
	}
	if !granted {
		m.logger.Debug("location permission denied")
		return
	}

	pos, err := m.locator.CurrentPosition(ctx)
	if err != nil {
		m.logger.Debug("current position unavailable", "error", err)
		return
	}
	st.locate(pos)
}

func (m *MapCapture) relabel(ctx context.Context, st *mapState, sel *Selection) {
	if m.labeler == nil {
		return
	}
	if st.origin.stale {
		sel.Origin.Label = m.label(ctx, sel.Origin)
	}
	if st.destination.stale {
		sel.Destination.Label = m.label(ctx, sel.Destination)
	}
}

func (m *MapCapture) label(ctx context.Context, p commute.GeoPoint) string {
	label, err := m.labeler.Label(ctx, p.Latitude, p.Longitude)
	if err != nil || label == "" {
		m.logger.Debug("keeping default marker label", "label", p.Label, "error", err)
		return p.Label
	}
	return label
}

// marker is a placed point. stale means its label no longer describes
// where it sits.
type marker struct {
	point commute.GeoPoint
	stale bool
}

type mapState struct {
	origin      *marker
	destination *marker
	center      Coordinates
	span        float64
}

func newMapState(origin, destination *commute.GeoPoint) *mapState {
	st := &mapState{
		center: Coordinates{Latitude: DefaultLatitude, Longitude: DefaultLongitude},
		span:   wideSpan,
	}
	// Textual points have no position to draw.
	if origin != nil && !origin.IsTextual() {
		st.origin = &marker{point: *origin}
		st.center = Coordinates{Latitude: origin.Latitude, Longitude: origin.Longitude}
	}
	if destination != nil && !destination.IsTextual() {
		st.destination = &marker{point: *destination}
	}
	return st
}

func (s *mapState) locate(pos Coordinates) {
	s.center = pos
	s.span = zoomedSpan
	if s.origin == nil {
		s.origin = &marker{
			point: commute.GeoPoint{Latitude: pos.Latitude, Longitude: pos.Longitude, Label: LabelCurrentLocation},
			stale: true,
		}
	}
}

// tap places the origin first and the destination on every later tap.
func (s *mapState) tap(p Coordinates) {
	if s.origin == nil {
		s.origin = &marker{
			point: commute.GeoPoint{Latitude: p.Latitude, Longitude: p.Longitude, Label: LabelOrigin},
			stale: true,
		}
		return
	}
	s.destination = &marker{
		point: commute.GeoPoint{Latitude: p.Latitude, Longitude: p.Longitude, Label: LabelDestination},
		stale: true,
	}
}

func (s *mapState) dragOrigin(p Coordinates) {
	if s.origin == nil {
		return
	}
	s.origin.point.Latitude, s.origin.point.Longitude = p.Latitude, p.Longitude
	s.origin.stale = true
}

func (s *mapState) dragDestination(p Coordinates) {
	if s.destination == nil {
		return
	}
	s.destination.point.Latitude, s.destination.point.Longitude = p.Latitude, p.Longitude
	s.destination.stale = true
}

func (s *mapState) ready() bool {
	return s.origin != nil && s.destination != nil
}

func (s *mapState) confirm() (Selection, error) {
	if !s.ready() {
		return Selection{}, ErrMissingData
	}
	return Selection{
		Origin:      s.origin.point,
		Destination: s.destination.point,
		Source:      SourceMap,
	}, nil
}

func (s *mapState) view() View {
	v := View{Center: s.center, Span: s.span, Ready: s.ready()}
	if s.origin != nil {
		o := s.origin.point
		v.Origin = &o
	}
	if s.destination != nil {
		d := s.destination.point
		v.Destination = &d
	}
	return v
}
