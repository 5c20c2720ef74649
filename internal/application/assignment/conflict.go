package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/example/cleaner-scheduler/internal/domain/cleaner"
	"github.com/example/cleaner-scheduler/internal/domain/schedule"
	"github.com/google/uuid"
)

// Verdict is the conflict checker's answer for one cleaner.
type Verdict struct {
	Free bool

	// Set when Free is false.
	ConflictingBookingID *uuid.UUID

	// Commitments starting at or after now. Only complete when Free, since
	// the scan stops at the first conflict.
	Upcoming int
}

// ConflictChecker tests a target window against a cleaner's commitments.
type ConflictChecker struct {
	Store         Store
	DefaultBuffer time.Duration
	Lookahead     time.Duration
	Now           func() time.Time
}

// Check expands every commitment by the cleaner's margin and reports the
// first one overlapping the target. The target itself is not expanded, so a
// gap of exactly the margin is free. Commitments of the target booking
// itself are ignored.
func (cc ConflictChecker) Check(ctx context.Context, c cleaner.Cleaner, bookingID uuid.UUID, target schedule.Window) (Verdict, error) {
	from := target.Start.Add(-cc.Lookahead)
	to := target.End.Add(cc.Lookahead)
	commitments, err := cc.Store.Commitments(ctx, c.ID, from, to)
	if err != nil {
		return Verdict{}, fmt.Errorf("commitments for cleaner %s: %w", c.ID, err)
	}

	m := c.Buffer(cc.DefaultBuffer)
	now := cc.now()

	v := Verdict{Free: true}
	for _, cm := range commitments {
		if cm.BookingID == bookingID {
			continue
		}
		if target.Overlaps(cm.Window.Expand(m)) {
			id := cm.BookingID
			return Verdict{ConflictingBookingID: &id}, nil
		}
		if !cm.Window.Start.Before(now) {
			v.Upcoming++
		}
	}
	return v, nil
}

func (cc ConflictChecker) now() time.Time {
	if cc.Now != nil {
		return cc.Now()
	}
	return time.Now()
}
