package terminal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/ic19/pkg/commute"
	"github.com/codeGROOVE-dev/ic19/pkg/location"
	"github.com/codeGROOVE-dev/ic19/pkg/onboarding"
	"github.com/codeGROOVE-dev/ic19/pkg/session"
)

func newConsole(input string) (*Console, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return New(strings.NewReader(input), out, WithoutColor(), WithLocation(time.UTC)), out
}

func TestParseGesture(t *testing.T) {
	tests := []struct {
		line    string
		want    location.Gesture
		wantErr bool
	}{
		{line: "ok", want: location.Gesture{Kind: location.GestureConfirm}},
		{line: "CANCEL", want: location.Gesture{Kind: location.GestureCancel}},
		{line: "tap 38.7 -9.1", want: location.Gesture{Kind: location.GestureTap, Point: location.Coordinates{Latitude: 38.7, Longitude: -9.1}}},
		{line: "drag origin 1 2", want: location.Gesture{Kind: location.GestureDragOrigin, Point: location.Coordinates{Latitude: 1, Longitude: 2}}},
		{line: "drag destination 3 4", want: location.Gesture{Kind: location.GestureDragDestination, Point: location.Coordinates{Latitude: 3, Longitude: 4}}},
		{line: "drag middle 3 4", wantErr: true},
		{line: "tap 91 0", wantErr: true},
		{line: "tap 1", wantErr: true},
		{line: "tap x y", wantErr: true},
		{line: "", wantErr: true},
		{line: "zoom", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseGesture(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestParseFormEvent(t *testing.T) {
	tests := map[string]location.FormEvent{
		"origin Cacém":          {Kind: location.FormOrigin, Text: "Cacém"},
		"destination  Saldanha": {Kind: location.FormDestination, Text: "Saldanha"},
		"origin":                {Kind: location.FormOrigin},
		"ok":                    {Kind: location.FormConfirm},
		"cancel":                {Kind: location.FormCancel},
	}
	for line, want := range tests {
		got, ok := parseFormEvent(line)
		if !ok || got != want {
			t.Errorf("parseFormEvent(%q) = %+v, %v; expected %+v", line, got, ok, want)
		}
	}
	if _, ok := parseFormEvent("help"); ok {
		t.Error("Expected unknown command to be rejected")
	}
}

func TestFormDrivesTextCapture(t *testing.T) {
	c, out := newConsole("origin Cacém\nok\nbogus\ndestination Saldanha\nok\n")

	sel, err := location.NewTextCapture(c.Form(), nil).Capture(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if sel.Origin.Label != "Cacém" || sel.Destination.Label != "Saldanha" {
		t.Errorf("Expected Cacém/Saldanha, got %+v", sel)
	}
	if !strings.Contains(out.String(), "missing data") {
		t.Errorf("Expected missing data warning in output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), `unknown command "bogus"`) {
		t.Errorf("Expected unknown command warning in output:\n%s", out.String())
	}
}

func TestSurfaceDrivesMapCapture(t *testing.T) {
	c, out := newConsole("ok\ntap 38.8 -9.3\ntap 38.7 -9.1\nok\n")

	sel, err := location.NewMapCapture(location.Device{}, c.Surface(), nil, nil).Capture(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}
	if sel.Origin.Latitude != 38.8 || sel.Destination.Latitude != 38.7 {
		t.Errorf("Expected origin 38.8 and destination 38.7, got %+v", sel)
	}
	if !strings.Contains(out.String(), "ready to confirm") {
		t.Errorf("Expected ready indicator in output:\n%s", out.String())
	}
}

func TestMapCaptureEndsWithInput(t *testing.T) {
	c, _ := newConsole("tap 38.8 -9.3\n")
	_, err := location.NewMapCapture(location.Device{}, c.Surface(), nil, nil).Capture(context.Background(), nil, nil)
	if !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestPermission(t *testing.T) {
	tests := map[string]bool{
		"y\n":   true,
		"Yes\n": true,
		"n\n":   false,
		"\n":    false,
	}
	for in, want := range tests {
		c, _ := newConsole(in)
		got, err := c.Permission(context.Background())
		if err != nil {
			t.Fatalf("Permission(%q) returned error: %v", in, err)
		}
		if got != want {
			t.Errorf("Permission(%q) = %v, expected %v", in, got, want)
		}
	}
}

func TestReadLineHonoursContext(t *testing.T) {
	r, w := io.Pipe()
	defer func() { _ = w.Close() }()
	c := New(r, io.Discard, WithoutColor())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.readLine(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestAcknowledgments(t *testing.T) {
	c, out := newConsole("")
	c.Success("Accepted", "Departure at 07:30 confirmed.")
	c.Failure("Error", "Could not accept this departure time. Please try again.")

	got := out.String()
	if !strings.Contains(got, "✓ Accepted: Departure at 07:30 confirmed.") {
		t.Errorf("Expected success line, got:\n%s", got)
	}
	if !strings.Contains(got, "✗ Error: Could not accept") {
		t.Errorf("Expected failure line, got:\n%s", got)
	}
}

func TestRenderGroups(t *testing.T) {
	c, out := newConsole("")
	g := session.Groups{
		Morning: []commute.Slot{
			{SlotISO: "2024-01-02T07:30:00", EtaMin: 25, Rank: 2},
			{SlotISO: "2024-01-02T08:00:00", EtaMin: 31, Rank: 1, Chosen: true},
		},
		Afternoon: []commute.Slot{},
	}

	listed := c.RenderGroups("2024-01-02", g, false)

	if len(listed) != 2 || listed[0].SlotISO != "2024-01-02T07:30:00" {
		t.Errorf("Expected morning slots numbered in order, got %+v", listed)
	}
	got := out.String()
	for _, want := range []string{"Departure suggestions for 2024-01-02", "Morning", "Afternoon", "no suggestions", " 1. 07:30", " 2. 08:00", "✓ accepted", "<n> accept"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %q in output:\n%s", want, got)
		}
	}

	out.Reset()
	c.RenderGroups("2024-01-02", g, true)
	if strings.Contains(out.String(), "<n> accept") {
		t.Error("Expected accept hint hidden while busy")
	}
}

type fakeRecommendations struct {
	fetchErr error
	groups   session.Groups
	accepted []string
	fetches  int
}

func (f *fakeRecommendations) Date() string           { return "2024-01-02" }
func (f *fakeRecommendations) Groups() session.Groups { return f.groups }
func (f *fakeRecommendations) Busy() bool             { return false }
func (f *fakeRecommendations) Fetch(context.Context) error {
	f.fetches++
	return f.fetchErr
}

func (f *fakeRecommendations) Accept(_ context.Context, slotISO string) error {
	f.accepted = append(f.accepted, slotISO)
	return nil
}

func TestRecommendLoop(t *testing.T) {
	recs := &fakeRecommendations{groups: session.Groups{
		Morning:   []commute.Slot{{SlotISO: "2024-01-02T07:30:00", Rank: 1}},
		Afternoon: []commute.Slot{{SlotISO: "2024-01-02T14:00:00", Rank: 2}},
	}}

	t.Run("accept refresh quit", func(t *testing.T) {
		c, out := newConsole("2\n9\nr\nq\n")
		if err := c.Recommend(context.Background(), recs); err != nil {
			t.Fatalf("Recommend returned error: %v", err)
		}
		if len(recs.accepted) != 1 || recs.accepted[0] != "2024-01-02T14:00:00" {
			t.Errorf("Expected the 14:00 slot accepted, got %v", recs.accepted)
		}
		if recs.fetches != 1 {
			t.Errorf("Expected one refresh, got %d", recs.fetches)
		}
		if !strings.Contains(out.String(), `unknown command "9"`) {
			t.Errorf("Expected out of range number rejected:\n%s", out.String())
		}
	})

	t.Run("sign out", func(t *testing.T) {
		c, _ := newConsole("signout\n")
		if err := c.Recommend(context.Background(), recs); !errors.Is(err, ErrSignOut) {
			t.Errorf("Expected ErrSignOut, got %v", err)
		}
	})

	t.Run("input ends", func(t *testing.T) {
		c, _ := newConsole("")
		if err := c.Recommend(context.Background(), recs); !errors.Is(err, io.EOF) {
			t.Errorf("Expected io.EOF, got %v", err)
		}
	})
}

type stubRegistrar struct {
	profiles []commute.CommuteProfile
}

func (r *stubRegistrar) Signup(_ context.Context, p commute.CommuteProfile) (commute.UserID, error) {
	r.profiles = append(r.profiles, p)
	return 7, nil
}

type stubSaver struct {
	id commute.UserID
}

func (s *stubSaver) Save(id commute.UserID) { s.id = id }

func TestOnboard(t *testing.T) {
	c, out := newConsole(strings.Join([]string{
		"home Cacém",
		"before 5",
		"employer Hospital de Santa Maria",
		"map",
		"origin Queluz",
		"ok",
		"submit",
	}, "\n") + "\n")
	registrar := &stubRegistrar{}
	saver := &stubSaver{}
	flow := onboarding.New(location.NewTextCapture(c.Form(), nil), registrar, saver, c, nil)

	if err := c.Onboard(context.Background(), flow); err != nil {
		t.Fatalf("Onboard returned error: %v", err)
	}
	if saver.id != 7 {
		t.Errorf("Expected identity 7 saved, got %d", saver.id)
	}
	if len(registrar.profiles) != 1 {
		t.Fatalf("Expected one signup, got %d", len(registrar.profiles))
	}
	p := registrar.profiles[0]
	if p.HomeZone != "Queluz" || p.WorkZone != onboarding.DefaultWorkZone {
		t.Errorf("Expected Queluz/%s, got %s/%s", onboarding.DefaultWorkZone, p.HomeZone, p.WorkZone)
	}
	if p.FlexMinusMin != 5 || p.FlexPlusMin != 20 {
		t.Errorf("Expected flex 5/20, got %d/%d", p.FlexMinusMin, p.FlexPlusMin)
	}
	if p.EmployerName == nil || *p.EmployerName != "Hospital de Santa Maria" {
		t.Errorf("Expected employer, got %v", p.EmployerName)
	}
	if !strings.Contains(out.String(), "✓ Account created") {
		t.Errorf("Expected success acknowledgment:\n%s", out.String())
	}
}

func TestOnboardQuit(t *testing.T) {
	c, _ := newConsole("quit\n")
	flow := onboarding.New(location.NewTextCapture(c.Form(), nil), &stubRegistrar{}, &stubSaver{}, c, nil)
	if err := c.Onboard(context.Background(), flow); !errors.Is(err, ErrQuit) {
		t.Errorf("Expected ErrQuit, got %v", err)
	}
}

type unfinishedFlow struct {
	done    chan struct{}
	submits int
}

func (f *unfinishedFlow) Fields() onboarding.Fields         { return onboarding.Fields{} }
func (f *unfinishedFlow) Edit(func(*onboarding.Fields))     {}
func (f *unfinishedFlow) Map(context.Context) error         { return nil }
func (f *unfinishedFlow) Done() <-chan struct{}             { return f.done }
func (f *unfinishedFlow) Submit(context.Context) (commute.UserID, error) {
	f.submits++
	return 0, nil
}

func TestOnboardWaitsForDone(t *testing.T) {
	c, _ := newConsole("submit\nsubmit\n")
	flow := &unfinishedFlow{done: make(chan struct{})}

	if err := c.Onboard(context.Background(), flow); !errors.Is(err, io.EOF) {
		t.Errorf("Expected the loop to keep going until input ends, got %v", err)
	}
	if flow.submits != 2 {
		t.Errorf("Expected 2 submits, got %d", flow.submits)
	}
}
