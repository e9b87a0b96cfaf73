// Package session is the top-level controller of the ic19 client.
//
// A Session resolves the stored identity, loads tomorrow's recommendations
// and handles accepting one of them. It exclusively owns the slot set it
// displays; callers only ever get copies.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/ic19/pkg/commute"
)

var (
	// ErrBusy is returned when an accept is already in flight.
	ErrBusy = errors.New("another accept is in progress")

	// ErrNoIdentity is returned when no user identifier has been resolved.
	ErrNoIdentity = errors.New("no user identity")

	// ErrUnknownSlot is returned when accepting a slot that is not displayed.
	ErrUnknownSlot = errors.New("slot is not in the current recommendations")
)

// State is the session's top-level state.
type State int

const (
	StateBooting State = iota
	StateNeedsOnboarding
	StateReady
)

func (s State) String() string {
	switch s {
	case StateBooting:
		return "booting"
	case StateNeedsOnboarding:
		return "needs_onboarding"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Recommender is the part of the backend the session uses.
type Recommender interface {
	Recommendations(ctx context.Context, user commute.UserID, date string) ([]commute.Slot, error)
	Accept(ctx context.Context, user commute.UserID, date, slotISO string) error
}

// IdentityStore reads and clears the persisted identifier.
type IdentityStore interface {
	Get() (commute.UserID, bool)
	Clear()
}

// Notifier surfaces acknowledgments to the user.
type Notifier interface {
	Success(title, msg string)
	Failure(title, msg string)
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithLocation sets the zone slot hours are read in. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *Session) {
		s.loc = loc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// Session holds the resolved identity and the displayed slot set.
type Session struct {
	client   Recommender
	store    IdentityStore
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	loc      *time.Location
	// accepted remembers slots accepted for date so a re-fetch keeps them chosen.
	accepted map[string]bool
	date     string
	slots    []commute.Slot
	user     commute.UserID
	state    State
	hasUser  bool
	busy     bool
	mu       sync.Mutex
}

// New returns a session in StateBooting.
func New(client Recommender, store IdentityStore, notifier Notifier, opts ...Option) *Session {
	s := &Session{
		client:   client,
		store:    store,
		notifier: notifier,
		logger:   slog.Default(),
		now:      time.Now,
		loc:      time.Local,
		accepted: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Boot reads the identity store. Without an identity the session needs
// onboarding and nothing is fetched; with one it fetches tomorrow's
// recommendations and becomes ready whatever the fetch outcome.
func (s *Session) Boot(ctx context.Context) State {
	s.mu.Lock()
	s.state = StateBooting
	s.mu.Unlock()
	return s.resolve(ctx, 0)
}

// Resume re-reads the identity store once onboarding has signalled completion.
func (s *Session) Resume(ctx context.Context) State {
	return s.resolve(ctx, 0)
}

// Adopt resumes after onboarding registered id. The stored identity wins; when
// the store comes back empty because saving failed, id is kept for this run so
// the user is not sent through signup again.
func (s *Session) Adopt(ctx context.Context, id commute.UserID) State {
	return s.resolve(ctx, id)
}

func (s *Session) resolve(ctx context.Context, fallback commute.UserID) State {
	id, ok := s.store.Get()
	if !ok && fallback > 0 {
		s.logger.Warn("identity was not persisted, keeping it for this run only", "user", fallback)
		id, ok = fallback, true
	}

	s.mu.Lock()
	if !ok {
		s.state = StateNeedsOnboarding
		s.hasUser = false
		s.slots = nil
		s.mu.Unlock()
		s.logger.Debug("no stored identity, onboarding required")
		return StateNeedsOnboarding
	}
	if s.hasUser && s.user != id {
		s.accepted = make(map[string]bool)
	}
	s.user, s.hasUser = id, true
	s.mu.Unlock()

	if err := s.Fetch(ctx); err != nil {
		s.logger.Debug("boot continues without recommendations", "error", err)
	}

	s.mu.Lock()
	s.state = StateReady
	s.mu.Unlock()
	return StateReady
}

// Fetch replaces the slot set with tomorrow's recommendations. Every slot
// starts unchosen except those accepted during this session for that date.
// On failure the current set is left untouched.
func (s *Session) Fetch(ctx context.Context) error {
	s.mu.Lock()
	user, ok := s.user, s.hasUser
	date := TargetDate(s.now())
	s.mu.Unlock()
	if !ok {
		return ErrNoIdentity
	}

	slots, err := s.client.Recommendations(ctx, user, date)
	if err != nil {
		s.logger.Error("fetching recommendations failed", "user", user, "date", date, "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != user || !s.hasUser {
		// Signed out or switched while the request was in flight.
		return ErrNoIdentity
	}
	if date != s.date {
		s.accepted = make(map[string]bool)
		s.date = date
	}
	fresh := make([]commute.Slot, len(slots))
	for i, slot := range slots {
		slot.Chosen = s.accepted[slot.SlotISO]
		fresh[i] = slot
	}
	s.slots = fresh
	s.logger.Debug("recommendations loaded", "user", user, "date", date, "count", len(fresh))
	return nil
}

// Accept confirms slotISO with the backend and, only once that succeeded,
// marks that slot chosen. A single accept may be in flight; others get ErrBusy.
func (s *Session) Accept(ctx context.Context, slotISO string) error {
	s.mu.Lock()
	if !s.hasUser {
		s.mu.Unlock()
		return ErrNoIdentity
	}
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.indexOf(slotISO) < 0 {
		s.mu.Unlock()
		return ErrUnknownSlot
	}
	s.busy = true
	user, date := s.user, s.date
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	if err := s.client.Accept(ctx, user, date, slotISO); err != nil {
		s.logger.Error("accept failed", "user", user, "date", date, "slot", slotISO, "error", err)
		s.notifier.Failure("Error", "Could not accept this departure time. Please try again.")
		return err
	}

	s.mu.Lock()
	if s.user == user && s.date == date {
		s.accepted[slotISO] = true
		if i := s.indexOf(slotISO); i >= 0 {
			s.slots[i].Chosen = true
		}
	}
	s.mu.Unlock()

	s.notifier.Success("Accepted", fmt.Sprintf("Departure at %s confirmed.", s.clock(slotISO)))
	return nil
}

// SignOut clears the stored identity and drops everything tied to it.
func (s *Session) SignOut() {
	s.store.Clear()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateNeedsOnboarding
	s.hasUser = false
	s.user = 0
	s.date = ""
	s.slots = nil
	s.accepted = make(map[string]bool)
}

// State returns the current top-level state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UserID returns the resolved identifier.
func (s *Session) UserID() (commute.UserID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.hasUser
}

// Date returns the date the displayed slots belong to, or the date the next
// fetch will ask for when nothing was loaded yet.
func (s *Session) Date() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.date == "" {
		return TargetDate(s.now())
	}
	return s.date
}

// Busy reports whether an accept is in flight. Every accept action should be
// disabled while it is.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Slots returns a copy of the displayed slot set.
func (s *Session) Slots() []commute.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]commute.Slot, len(s.slots))
	copy(out, s.slots)
	return out
}

// Groups partitions the displayed slots into morning and afternoon.
func (s *Session) Groups() Groups {
	return Partition(s.Slots(), s.loc)
}

func (s *Session) indexOf(slotISO string) int {
	for i := range s.slots {
		if s.slots[i].SlotISO == slotISO {
			return i
		}
	}
	return -1
}

func (s *Session) clock(slotISO string) string {
	t, err := commute.Slot{SlotISO: slotISO}.Time(s.loc)
	if err != nil {
		return slotISO
	}
	return t.Format("15:04")
}
