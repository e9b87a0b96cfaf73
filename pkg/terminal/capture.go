package terminal

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/codeGROOVE-dev/ic19/pkg/commute"
	"github.com/codeGROOVE-dev/ic19/pkg/location"
)

// Form returns the console as a location.Form.
func (c *Console) Form() location.Form {
	return textForm{c: c}
}

// Surface returns the console as a location.Surface.
func (c *Console) Surface() location.Surface {
	return mapSurface{c: c}
}

type textForm struct {
	c *Console
}

func (f textForm) Show(origin, destination string) {
	c := f.c
	c.colorf(c.accent, "\nZones\n")
	c.printf("  origin:      %s\n", orPlaceholder(origin))
	c.printf("  destination: %s\n", orPlaceholder(destination))
	c.colorf(c.dim, "  origin <text> | destination <text> | ok | cancel\n")
	c.prompt()
}

func (f textForm) Next(ctx context.Context) (location.FormEvent, error) {
	for {
		line, err := f.c.readLine(ctx)
		if err != nil {
			return location.FormEvent{}, err
		}
		if ev, ok := parseFormEvent(line); ok {
			return ev, nil
		}
		f.c.Warn(fmt.Sprintf("unknown command %q", line))
		f.c.prompt()
	}
}

func (f textForm) Warn(msg string) {
	f.c.Warn(msg)
}

func parseFormEvent(line string) (location.FormEvent, bool) {
	cmd, arg := splitCommand(line)
	switch cmd {
	case "origin":
		return location.FormEvent{Kind: location.FormOrigin, Text: arg}, true
	case "destination":
		return location.FormEvent{Kind: location.FormDestination, Text: arg}, true
	case "ok":
		return location.FormEvent{Kind: location.FormConfirm}, true
	case "cancel":
		return location.FormEvent{Kind: location.FormCancel}, true
	default:
		return location.FormEvent{}, false
	}
}

type mapSurface struct {
	c *Console
}

func (m mapSurface) Show(v location.View) {
	c := m.c
	c.colorf(c.accent, "\nMap")
	c.colorf(c.dim, "  centre %.4f, %.4f  span %.2f°\n", v.Center.Latitude, v.Center.Longitude, v.Span)
	c.printf("  origin:      %s\n", describeMarker(v.Origin))
	c.printf("  destination: %s\n", describeMarker(v.Destination))
	if v.Ready {
		c.colorf(c.good, "  ready to confirm\n")
	}
	c.colorf(c.dim, "  tap <lat> <lng> | drag origin|destination <lat> <lng> | ok | cancel\n")
	c.prompt()
}

func (m mapSurface) Next(ctx context.Context) (location.Gesture, error) {
	for {
		line, err := m.c.readLine(ctx)
		if err != nil {
			return location.Gesture{}, err
		}
		g, err := parseGesture(line)
		if err == nil {
			return g, nil
		}
		m.c.Warn(err.Error())
		m.c.prompt()
	}
}

func (m mapSurface) Warn(msg string) {
	m.c.Warn(msg)
}

func parseGesture(line string) (location.Gesture, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return location.Gesture{}, fmt.Errorf("empty command")
	}
	switch fields[0] {
	case "ok":
		return location.Gesture{Kind: location.GestureConfirm}, nil
	case "cancel":
		return location.Gesture{Kind: location.GestureCancel}, nil
	case "tap":
		p, err := parseCoordinates(fields[1:])
		if err != nil {
			return location.Gesture{}, err
		}
		return location.Gesture{Kind: location.GestureTap, Point: p}, nil
	case "drag":
		if len(fields) < 2 {
			return location.Gesture{}, fmt.Errorf("usage: drag origin|destination <lat> <lng>")
		}
		p, err := parseCoordinates(fields[2:])
		if err != nil {
			return location.Gesture{}, err
		}
		switch fields[1] {
		case "origin":
			return location.Gesture{Kind: location.GestureDragOrigin, Point: p}, nil
		case "destination":
			return location.Gesture{Kind: location.GestureDragDestination, Point: p}, nil
		}
		return location.Gesture{}, fmt.Errorf("usage: drag origin|destination <lat> <lng>")
	default:
		return location.Gesture{}, fmt.Errorf("unknown command %q", line)
	}
}

func parseCoordinates(args []string) (location.Coordinates, error) {
	if len(args) != 2 {
		return location.Coordinates{}, fmt.Errorf("expected <lat> <lng>")
	}
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil || lat < -90 || lat > 90 {
		return location.Coordinates{}, fmt.Errorf("invalid latitude %q", args[0])
	}
	lng, err := strconv.ParseFloat(args[1], 64)
	if err != nil || lng < -180 || lng > 180 {
		return location.Coordinates{}, fmt.Errorf("invalid longitude %q", args[1])
	}
	return location.Coordinates{Latitude: lat, Longitude: lng}, nil
}

func describeMarker(p *commute.GeoPoint) string {
	if p == nil {
		return "(not placed)"
	}
	return fmt.Sprintf("%s (%.5f, %.5f)", p.Label, p.Latitude, p.Longitude)
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(empty)"
	}
	return s
}
