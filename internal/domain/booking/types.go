package booking

import (
	"time"

	"github.com/example/cleaner-scheduler/internal/domain/schedule"
	"github.com/google/uuid"
)

type Status string

const (
	StatusPending            Status = "PENDING"
	StatusAwaitingAssignment Status = "AWAITING_ASSIGNMENT"
	StatusAssigned           Status = "ASSIGNED"
	StatusInProgress         Status = "IN_PROGRESS"
	StatusCompleted          Status = "COMPLETED"
	StatusCancelled          Status = "CANCELLED"
)

// Committing reports whether a booking in this status occupies its cleaner's time.
func (s Status) Committing() bool {
	return s == StatusAssigned || s == StatusInProgress
}

// HasCleaner reports whether a booking in this status must carry a cleaner reference.
func (s Status) HasCleaner() bool {
	return s == StatusAssigned || s == StatusInProgress || s == StatusCompleted
}

type Booking struct {
	ID              uuid.UUID
	ServiceID       uuid.UUID
	AddressID       uuid.UUID
	ScheduledStart  time.Time
	DurationMinutes int
	Status          Status

	AssignedCleanerID *uuid.UUID
}

func (b Booking) Window() (schedule.Window, error) {
	return schedule.FromMinutes(b.ScheduledStart, b.DurationMinutes)
}

// Details is a booking joined with what eligibility needs from its service and address.
type Details struct {
	Booking

	RequiredTags []string
	AreaTag      string
}

// Commitment is an accepted booking window held by a cleaner.
type Commitment struct {
	BookingID uuid.UUID
	CleanerID uuid.UUID
	Window    schedule.Window
	Status    Status
}
