package schedule

import (
	"fmt"
	"time"
)

// Window is a half-open time interval [Start, End) in UTC.
type Window struct {
	Start time.Time
	End   time.Time
}

// New builds the window [start, start+d).
func New(start time.Time, d time.Duration) (Window, error) {
	if d <= 0 {
		return Window{}, fmt.Errorf("window duration must be positive (got %s)", d)
	}
	start = start.UTC()
	return Window{Start: start, End: start.Add(d)}, nil
}

// FromMinutes is New with a duration expressed in whole minutes, the unit bookings use.
func FromMinutes(start time.Time, minutes int) (Window, error) {
	return New(start, time.Duration(minutes)*time.Minute)
}

// Expand widens the window by m on both sides: [Start-m, End+m).
func (w Window) Expand(m time.Duration) Window {
	if m <= 0 {
		return w
	}
	return Window{Start: w.Start.Add(-m), End: w.End.Add(m)}
}

// Overlaps uses the half-open test, so windows that only touch at an
// endpoint do not overlap.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

func (w Window) Duration() time.Duration { return w.End.Sub(w.Start) }

func (w Window) String() string {
	return w.Start.Format(time.RFC3339) + ".." + w.End.Format(time.RFC3339)
}
