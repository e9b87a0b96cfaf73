package location

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/codeGROOVE-dev/ic19/pkg/commute"
)

// FormEventKind enumerates what the text form can report.
type FormEventKind int

const (
	FormOrigin FormEventKind = iota + 1
	FormDestination
	FormConfirm
	FormCancel
)

// FormEvent is one edit or button press on the text form.
type FormEvent struct {
	Text string
	Kind FormEventKind
}

// Form is the two-field fallback used when no map can be rendered.
type Form interface {
	Show(origin, destination string)
	Next(ctx context.Context) (FormEvent, error)
	Warn(msg string)
}

// TextCapture is the free-text Capturer. Confirmed points carry zero
// coordinates and the typed labels.
type TextCapture struct {
	form   Form
	logger *slog.Logger
}

// NewTextCapture builds the text variant.
func NewTextCapture(form Form, logger *slog.Logger) *TextCapture {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextCapture{form: form, logger: logger}
}

// Capture runs the form until confirm or cancel.
func (c *TextCapture) Capture(ctx context.Context, origin, destination *commute.GeoPoint) (Selection, error) {
	st := &textState{origin: labelOf(origin), destination: labelOf(destination)}

	for {
		c.form.Show(st.origin, st.destination)

		ev, err := c.form.Next(ctx)
		if err != nil {
			return Selection{}, err
		}

		switch ev.Kind {
		case FormOrigin:
			st.origin = ev.Text
		case FormDestination:
			st.destination = ev.Text
		case FormCancel:
			return Selection{}, ErrCancelled
		case FormConfirm:
			sel, err := st.confirm()
			if errors.Is(err, ErrMissingData) {
				c.form.Warn("missing data: fill in both the origin and the destination zone")
				continue
			}
			return sel, nil
		default:
			c.logger.Debug("ignoring unknown form event", "kind", ev.Kind)
		}
	}
}

type textState struct {
	origin      string
	destination string
}

func (s *textState) confirm() (Selection, error) {
	o, d := strings.TrimSpace(s.origin), strings.TrimSpace(s.destination)
	if o == "" || d == "" {
		return Selection{}, ErrMissingData
	}
	return Selection{
		Origin:      commute.TextPoint(o),
		Destination: commute.TextPoint(d),
		Source:      SourceText,
	}, nil
}
