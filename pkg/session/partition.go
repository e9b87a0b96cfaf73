package session

import (
	"time"

	"github.com/codeGROOVE-dev/ic19/pkg/commute"
)

const dateLayout = "2006-01-02"

// TargetDate returns the calendar day after now (in UTC) as YYYY-MM-DD.
func TargetDate(now time.Time) string {
	return now.UTC().AddDate(0, 0, 1).Format(dateLayout)
}

// Groups splits slots into the two halves of the day.
type Groups struct {
	Morning   []commute.Slot
	Afternoon []commute.Slot
}

// Partition puts slots whose local hour is before noon in Morning and the rest
// in Afternoon, keeping the incoming order in each. A slot whose timestamp
// cannot be read goes to Afternoon so that nothing is dropped.
func Partition(slots []commute.Slot, loc *time.Location) Groups {
	g := Groups{
		Morning:   []commute.Slot{},
		Afternoon: []commute.Slot{},
	}
	for _, s := range slots {
		t, err := s.Time(loc)
		if err == nil && t.Hour() < 12 {
			g.Morning = append(g.Morning, s)
			continue
		}
		g.Afternoon = append(g.Afternoon, s)
	}
	return g
}
