package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/codeGROOVE-dev/ic19/pkg/commute"
	"github.com/codeGROOVE-dev/ic19/pkg/onboarding"
)

// ErrQuit is returned when the user leaves an interactive loop before finishing it.
var ErrQuit = errors.New("quit")

// Onboarder is the part of onboarding.Flow the console drives.
type Onboarder interface {
	Fields() onboarding.Fields
	Edit(fn func(*onboarding.Fields))
	Map(ctx context.Context) error
	Submit(ctx context.Context) (commute.UserID, error)
	Done() <-chan struct{}
}

// Onboard edits the onboarding form until the flow signals completion on
// Done. Submit failures are acknowledged by the flow and leave the form open
// for another try.
func (c *Console) Onboard(ctx context.Context, flow Onboarder) error {
	c.colorf(c.accent, "\nWelcome to ic19\n")
	c.printf("Tell us about your commute so we can suggest departure times for tomorrow.\n")

	for {
		c.showFields(flow.Fields())
		line, err := c.readLine(ctx)
		if err != nil {
			return err
		}

		cmd, arg := splitCommand(line)
		switch cmd {
		case "":
		case "home":
			flow.Edit(func(f *onboarding.Fields) { f.HomeZone = arg })
		case "work":
			flow.Edit(func(f *onboarding.Fields) { f.WorkZone = arg })
		case "before":
			flow.Edit(func(f *onboarding.Fields) { f.FlexMinus = arg })
		case "after":
			flow.Edit(func(f *onboarding.Fields) { f.FlexPlus = arg })
		case "employer":
			flow.Edit(func(f *onboarding.Fields) { f.Employer = arg })
		case "map":
			if err := flow.Map(ctx); err != nil {
				if errors.Is(err, io.EOF) || ctx.Err() != nil {
					return err
				}
				c.Warn(fmt.Sprintf("location capture failed: %v", err))
			}
		case "submit":
			if _, err := flow.Submit(ctx); err != nil {
				c.logger.Debug("submit failed", "error", err)
			}
			select {
			case <-flow.Done():
				return nil
			default:
			}
		case "quit", "q":
			return ErrQuit
		default:
			c.Warn(fmt.Sprintf("unknown command %q", line))
		}
	}
}

func (c *Console) showFields(f onboarding.Fields) {
	c.colorf(c.accent, "\nCommute profile\n")
	c.printf("  home zone:  %s\n", orPlaceholder(f.HomeZone))
	c.printf("  work zone:  %s\n", orPlaceholder(f.WorkZone))
	c.printf("  flexibility: %s min earlier, %s min later\n", orPlaceholder(f.FlexMinus), orPlaceholder(f.FlexPlus))
	c.printf("  employer:   %s\n", orPlaceholder(f.Employer))
	c.colorf(c.dim, "  home <zone> | work <zone> | before <min> | after <min> | employer <name> | map | submit | quit\n")
	c.prompt()
}
