package booking

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys shared by the publishers and the assignment worker.
const (
	EventAssigned           = "booking.assigned"
	EventAwaitingAssignment = "booking.awaiting_assignment"
)

type AssignedEvent struct {
	BookingID       uuid.UUID `json:"booking_id"`
	CleanerID       uuid.UUID `json:"cleaner_id"`
	ScheduledStart  time.Time `json:"scheduled_start"`
	DurationMinutes int       `json:"duration_minutes"`
	AssignedAt      time.Time `json:"assigned_at"`
}

// AwaitingAssignmentEvent is emitted by the booking lifecycle when a booking
// needs a cleaner.
type AwaitingAssignmentEvent struct {
	BookingID uuid.UUID `json:"booking_id"`
}
