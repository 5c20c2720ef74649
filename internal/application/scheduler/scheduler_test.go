package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/example/cleaner-scheduler/internal/application/assignment"
	"github.com/example/cleaner-scheduler/internal/application/assignment/assignmenttest"
	"github.com/example/cleaner-scheduler/internal/application/scheduler"
	"github.com/example/cleaner-scheduler/internal/domain/booking"
	"github.com/example/cleaner-scheduler/internal/domain/cleaner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestScheduler_TickAssignsAwaitingBookings(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := assignmenttest.New()
	svc := store.AddService("STANDARD")
	addr := store.AddAddress("north")
	store.AddCleaner(cleaner.Cleaner{Active: true, Specializations: []string{"STANDARD"}, Areas: []string{"north"}})

	day := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	first := store.AddBooking(booking.Booking{ServiceID: svc, AddressID: addr, ScheduledStart: day, DurationMinutes: 60, Status: booking.StatusAwaitingAssignment})
	// overlaps first once buffered, so only one of the two can be assigned
	clash := store.AddBooking(booking.Booking{ServiceID: svc, AddressID: addr, ScheduledStart: day.Add(75 * time.Minute), DurationMinutes: 60, Status: booking.StatusAwaitingAssignment})
	// a week later, always assignable
	later := store.AddBooking(booking.Booking{ServiceID: svc, AddressID: addr, ScheduledStart: day.Add(7 * 24 * time.Hour), DurationMinutes: 60, Status: booking.StatusAwaitingAssignment})
	pending := store.AddBooking(booking.Booking{ServiceID: svc, AddressID: addr, ScheduledStart: day, DurationMinutes: 60, Status: booking.StatusPending})

	engine := assignment.NewEngine(store, assignment.Config{}, assignment.WithClock(func() time.Time { return now }), assignment.WithLogger(quiet()))
	s := &scheduler.Scheduler{
		Source: store,
		Engine: engine,
		Policy: assignment.RetryPolicy{MaxAttempts: 5, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond},
		Batch:  10,
		Log:    quiet(),
	}

	assigned := s.Tick(context.Background())
	assert.Equal(t, 2, assigned)

	statuses := map[booking.Status]int{}
	for _, id := range []booking.Booking{first, clash} {
		b, ok := store.Booking(id.ID)
		require.True(t, ok)
		statuses[b.Status]++
	}
	assert.Equal(t, 1, statuses[booking.StatusAssigned])
	assert.Equal(t, 1, statuses[booking.StatusAwaitingAssignment])

	b, _ := store.Booking(later.ID)
	assert.Equal(t, booking.StatusAssigned, b.Status)
	b, _ = store.Booking(pending.ID)
	assert.Equal(t, booking.StatusPending, b.Status)

	// the leftover booking still conflicts, so nothing more happens
	assert.Equal(t, 0, s.Tick(context.Background()))
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	store := assignmenttest.New()
	s := &scheduler.Scheduler{
		Source:   store,
		Engine:   assignment.NewEngine(store, assignment.Config{}, assignment.WithLogger(quiet())),
		Policy:   assignment.DefaultRetryPolicy(),
		Interval: 10 * time.Millisecond,
		Log:      quiet(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_ListFailureIsLogged(t *testing.T) {
	store := assignmenttest.New()
	store.Fail["ListAwaiting"] = assert.AnError
	s := &scheduler.Scheduler{Source: store, Engine: assignment.NewEngine(store, assignment.Config{}), Log: quiet()}
	assert.Equal(t, 0, s.Tick(context.Background()))
}
