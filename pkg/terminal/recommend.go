package terminal

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/codeGROOVE-dev/ic19/pkg/commute"
	"github.com/codeGROOVE-dev/ic19/pkg/session"
)

// ErrSignOut is returned when the user asks to forget the stored identity.
var ErrSignOut = errors.New("sign out requested")

// Recommendations is the part of session.Session the console drives.
type Recommendations interface {
	Date() string
	Groups() session.Groups
	Busy() bool
	Fetch(ctx context.Context) error
	Accept(ctx context.Context, slotISO string) error
}

// Recommend shows tomorrow's departure slots and handles accept, refresh,
// sign out and quit. Quitting returns nil.
func (c *Console) Recommend(ctx context.Context, s Recommendations) error {
	for {
		listed := c.RenderGroups(s.Date(), s.Groups(), s.Busy())
		line, err := c.readLine(ctx)
		if err != nil {
			return err
		}

		cmd, _ := splitCommand(line)
		switch cmd {
		case "":
		case "q", "quit":
			return nil
		case "r", "refresh":
			if err := s.Fetch(ctx); err != nil {
				c.colorf(c.dim, "refresh failed, showing the last suggestions\n")
			}
		case "signout":
			return ErrSignOut
		default:
			n, err := strconv.Atoi(cmd)
			if err != nil || n < 1 || n > len(listed) {
				c.Warn(fmt.Sprintf("unknown command %q", line))
				continue
			}
			err = s.Accept(ctx, listed[n-1].SlotISO)
			if errors.Is(err, session.ErrBusy) {
				c.Warn("an accept is already in progress")
			}
			// Other failures were acknowledged by the session.
		}
	}
}

// RenderGroups prints the morning and afternoon groups with a running number
// per slot and returns the slots in that numbering.
func (c *Console) RenderGroups(date string, g session.Groups, busy bool) []commute.Slot {
	c.colorf(c.accent, "\nDeparture suggestions for %s\n", date)

	listed := make([]commute.Slot, 0, len(g.Morning)+len(g.Afternoon))
	for _, group := range []struct {
		title string
		slots []commute.Slot
	}{
		{"Morning", g.Morning},
		{"Afternoon", g.Afternoon},
	} {
		c.colorf(c.accent, "%s\n", group.title)
		if len(group.slots) == 0 {
			c.colorf(c.dim, "  no suggestions\n")
			continue
		}
		for _, slot := range group.slots {
			listed = append(listed, slot)
			c.renderSlot(len(listed), slot)
		}
	}

	if busy {
		c.colorf(c.dim, "  accepting...\n")
	} else if len(listed) > 0 {
		c.colorf(c.dim, "  <n> accept | r refresh | signout | q quit\n")
	} else {
		c.colorf(c.dim, "  r refresh | signout | q quit\n")
	}
	c.prompt()
	return listed
}

func (c *Console) renderSlot(n int, slot commute.Slot) {
	when := slot.SlotISO
	if t, err := slot.Time(c.loc); err == nil {
		when = t.Format("15:04")
	}
	c.printf("  %2d. %s  %3.0f min  ", n, when, slot.EtaMin)
	switch {
	case slot.Chosen:
		c.colorf(c.good, "✓ accepted\n")
	case slot.Rank == 1:
		c.colorf(c.warn, "★ best\n")
	default:
		c.colorf(c.dim, "rank %d\n", slot.Rank)
	}
}
