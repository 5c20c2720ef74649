package assignment

import (
	"context"
	"time"

	"github.com/example/cleaner-scheduler/internal/domain/booking"
	"github.com/example/cleaner-scheduler/internal/domain/cleaner"
	"github.com/google/uuid"
)

// Store is the narrow view of the booking store and cleaner directory the
// engine depends on. Implementations report missing rows as
// internaltypes.ErrNotFound and timeouts as internaltypes.ErrTransient.
type Store interface {
	GetBookingDetails(ctx context.Context, id uuid.UUID) (booking.Details, error)
	ListActiveCleaners(ctx context.Context) ([]cleaner.Cleaner, error)

	// Commitments returns the cleaner's ASSIGNED/IN_PROGRESS bookings that
	// start in [from, to).
	Commitments(ctx context.Context, cleanerID uuid.UUID, from, to time.Time) ([]booking.Commitment, error)

	// AssignIfAwaiting sets the cleaner and moves the booking to ASSIGNED only
	// if it is still AWAITING_ASSIGNMENT. It reports whether a row changed.
	AssignIfAwaiting(ctx context.Context, bookingID, cleanerID uuid.UUID) (bool, error)
}

// TxStore runs fn against a Store bound to a single transaction. fn's error
// rolls the transaction back.
type TxStore interface {
	Store
	Transact(ctx context.Context, fn func(Store) error) error
}

// EventPublisher tells collaborators about committed assignments.
type EventPublisher interface {
	PublishAssigned(ctx context.Context, ev booking.AssignedEvent) error
}

// Recorder receives engine metrics.
type Recorder interface {
	ObserveAttempt(op, outcome string, d time.Duration)
	ObserveCandidates(op string, n int)
}

type nopPublisher struct{}

func (nopPublisher) PublishAssigned(context.Context, booking.AssignedEvent) error { return nil }

type nopRecorder struct{}

func (nopRecorder) ObserveAttempt(string, string, time.Duration) {}
func (nopRecorder) ObserveCandidates(string, int)                {}
