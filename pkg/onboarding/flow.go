// Package onboarding collects a commute profile and registers it.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/codeGROOVE-dev/ic19/pkg/commute"
	"github.com/codeGROOVE-dev/ic19/pkg/location"
)

// Placeholder values a fresh form starts with.
const (
	DefaultHomeZone  = "Sintra-Noroeste"
	DefaultWorkZone  = "Lisboa-Centro"
	DefaultFlexMinus = "10"
	DefaultFlexPlus  = "20"
)

// ErrBusy is returned when the form is already mapping or submitting.
var ErrBusy = errors.New("onboarding is busy")

// State is where the flow currently is. A failed submit lands back in StateEditing.
type State int

const (
	StateEditing State = iota
	StateMapping
	StateSubmitting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateMapping:
		return "mapping"
	case StateSubmitting:
		return "submitting"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Registrar creates a user from a commute profile.
type Registrar interface {
	Signup(ctx context.Context, profile commute.CommuteProfile) (commute.UserID, error)
}

// IdentitySaver persists the new identifier.
type IdentitySaver interface {
	Save(id commute.UserID)
}

// Notifier surfaces acknowledgments to the user.
type Notifier interface {
	Success(title, msg string)
	Failure(title, msg string)
}

// Fields are the raw text inputs of the form.
type Fields struct {
	HomeZone  string
	WorkZone  string
	FlexMinus string
	FlexPlus  string
	Employer  string
}

// Flow is the onboarding state machine.
type Flow struct {
	capturer    location.Capturer
	registrar   Registrar
	store       IdentitySaver
	notifier    Notifier
	logger      *slog.Logger
	done        chan struct{}
	origin      *commute.GeoPoint
	destination *commute.GeoPoint
	fields      Fields
	state       State
	id          commute.UserID
	mu          sync.Mutex
}

// New returns a flow in StateEditing with the placeholder fields.
func New(capturer location.Capturer, registrar Registrar, store IdentitySaver, notifier Notifier, logger *slog.Logger) *Flow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flow{
		capturer:  capturer,
		registrar: registrar,
		store:     store,
		notifier:  notifier,
		logger:    logger,
		done:      make(chan struct{}),
		fields: Fields{
			HomeZone:  DefaultHomeZone,
			WorkZone:  DefaultWorkZone,
			FlexMinus: DefaultFlexMinus,
			FlexPlus:  DefaultFlexPlus,
		},
	}
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Fields returns a copy of the text inputs.
func (f *Flow) Fields() Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

// Points returns the captured origin and destination, if any.
func (f *Flow) Points() (origin, destination *commute.GeoPoint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return clonePoint(f.origin), clonePoint(f.destination)
}

// Edit applies fn to the text inputs. Edits are ignored outside StateEditing.
func (f *Flow) Edit(fn func(*Fields)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateEditing {
		return
	}
	fn(&f.fields)
}

// Done is closed once signup succeeded and the identifier was saved.
func (f *Flow) Done() <-chan struct{} {
	return f.done
}

// UserID returns the identifier obtained at signup, if done.
func (f *Flow) UserID() (commute.UserID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id, f.state == StateDone
}

// Map opens location capture. A confirmed selection replaces the stored points
// and the zone text; cancelling keeps everything as it was.
func (f *Flow) Map(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateEditing {
		f.mu.Unlock()
		return ErrBusy
	}
	f.state = StateMapping
	origin, destination := f.initialPoints()
	f.mu.Unlock()

	sel, err := f.capturer.Capture(ctx, origin, destination)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateEditing
	if err != nil {
		if errors.Is(err, location.ErrCancelled) {
			f.logger.Debug("location capture cancelled")
			return nil
		}
		return fmt.Errorf("capturing location: %w", err)
	}

	f.origin, f.destination = &sel.Origin, &sel.Destination
	if sel.Origin.Label != "" {
		f.fields.HomeZone = sel.Origin.Label
	}
	if sel.Destination.Label != "" {
		f.fields.WorkZone = sel.Destination.Label
	}
	f.logger.Debug("location captured", "source", sel.Source, "home", f.fields.HomeZone, "work", f.fields.WorkZone)
	return nil
}

// initialPoints hands the capturer what it should start from. Before any map
// capture the zone text seeds the points, so the text variant edits the
// same values the form shows.
func (f *Flow) initialPoints() (origin, destination *commute.GeoPoint) {
	origin, destination = clonePoint(f.origin), clonePoint(f.destination)
	if origin == nil || origin.IsTextual() {
		p := commute.TextPoint(f.fields.HomeZone)
		origin = &p
	}
	if destination == nil || destination.IsTextual() {
		p := commute.TextPoint(f.fields.WorkZone)
		destination = &p
	}
	return origin, destination
}

// Submit registers the profile with exactly one Signup call. On failure the
// form goes back to editing with every value kept.
func (f *Flow) Submit(ctx context.Context) (commute.UserID, error) {
	f.mu.Lock()
	if f.state != StateEditing {
		f.mu.Unlock()
		return 0, ErrBusy
	}
	f.state = StateSubmitting
	profile := f.profile()
	f.mu.Unlock()

	id, err := f.registrar.Signup(ctx, profile)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StateEditing
		f.logger.Error("signup failed", "error", err)
		if errors.Is(err, commute.ErrUnexpectedResponse) {
			f.notifier.Failure("Error", "Unexpected response from the server. Please try again.")
		} else {
			f.notifier.Failure("Error", "Could not create the account. Please try again later.")
		}
		return 0, err
	}

	f.store.Save(id)
	f.id = id
	f.state = StateDone
	f.notifier.Success("Account created", "Recommendations will be generated for tomorrow.")
	close(f.done)
	return id, nil
}

func (f *Flow) profile() commute.CommuteProfile {
	p := commute.CommuteProfile{
		HomeZone:     strings.TrimSpace(f.fields.HomeZone),
		WorkZone:     strings.TrimSpace(f.fields.WorkZone),
		FlexMinusMin: ParseMinutes(f.fields.FlexMinus),
		FlexPlusMin:  ParseMinutes(f.fields.FlexPlus),
		Preferences: commute.Preferences{
			Origin:      clonePoint(f.origin),
			Destination: clonePoint(f.destination),
		},
	}
	if employer := strings.TrimSpace(f.fields.Employer); employer != "" {
		p.EmployerName = &employer
	}
	return p
}

// ParseMinutes reads a flexibility field. Empty, non-numeric and negative
// input all yield 0; fractional input is truncated.
func ParseMinutes(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return max(n, 0)
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && v > 0 && v < float64(1<<31) {
		return int(v)
	}
	return 0
}

func clonePoint(p *commute.GeoPoint) *commute.GeoPoint {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
