// Package assignmenttest provides an in-memory assignment store for tests.
package assignmenttest

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/cleaner-scheduler/internal/application/assignment"
	"github.com/example/cleaner-scheduler/internal/domain/booking"
	"github.com/example/cleaner-scheduler/internal/domain/cleaner"
	"github.com/example/cleaner-scheduler/internal/internaltypes"
	"github.com/google/uuid"
)

var _ assignment.TxStore = (*MemStore)(nil)

// MemStore mirrors the postgres repository's semantics, including the
// status guard on AssignIfAwaiting, behind a single mutex.
type MemStore struct {
	// txMu serializes Transact calls, standing in for SERIALIZABLE isolation.
	txMu sync.Mutex

	mu        sync.Mutex
	bookings  map[uuid.UUID]booking.Booking
	cleaners  map[uuid.UUID]cleaner.Cleaner
	services  map[uuid.UUID][]string
	addresses map[uuid.UUID]string

	// BeforeAssign runs before the guarded update, outside the lock, so a
	// test can slip in a competing write.
	BeforeAssign func(bookingID uuid.UUID)

	// Fail makes the named method return the error.
	Fail map[string]error

	CommitmentCalls int
}

func New() *MemStore {
	return &MemStore{
		bookings:  map[uuid.UUID]booking.Booking{},
		cleaners:  map[uuid.UUID]cleaner.Cleaner{},
		services:  map[uuid.UUID][]string{},
		addresses: map[uuid.UUID]string{},
		Fail:      map[string]error{},
	}
}

func (m *MemStore) AddService(tags ...string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.services[id] = tags
	return id
}

func (m *MemStore) AddAddress(area string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.addresses[id] = area
	return id
}

func (m *MemStore) AddCleaner(c cleaner.Cleaner) cleaner.Cleaner {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.cleaners[c.ID] = c
	return c
}

// AddBooking panics on a row the bookings_cleaner_matches_status constraint
// would reject.
func (m *MemStore) AddBooking(b booking.Booking) booking.Booking {
	if b.Status.HasCleaner() != (b.AssignedCleanerID != nil) {
		panic(fmt.Sprintf("assignmenttest: %s booking with cleaner %v", b.Status, b.AssignedCleanerID))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.ScheduledStart = b.ScheduledStart.UTC()
	m.bookings[b.ID] = b
	return b
}

// Commit gives a cleaner an ASSIGNED booking covering [start, start+minutes).
func (m *MemStore) Commit(cleanerID uuid.UUID, start time.Time, minutes int) booking.Booking {
	id := cleanerID
	return m.AddBooking(booking.Booking{
		ServiceID:         uuid.New(),
		AddressID:         uuid.New(),
		ScheduledStart:    start,
		DurationMinutes:   minutes,
		Status:            booking.StatusAssigned,
		AssignedCleanerID: &id,
	})
}

func (m *MemStore) Booking(id uuid.UUID) (booking.Booking, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	return b, ok
}

func (m *MemStore) SetStatus(id uuid.UUID, s booking.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.bookings[id]
	b.Status = s
	m.bookings[id] = b
}

func (m *MemStore) fail(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Fail[name]
}

func (m *MemStore) Transact(ctx context.Context, fn func(assignment.Store) error) error {
	if err := m.fail("Transact"); err != nil {
		return err
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(m)
}

func (m *MemStore) GetBookingDetails(ctx context.Context, id uuid.UUID) (booking.Details, error) {
	if err := m.fail("GetBookingDetails"); err != nil {
		return booking.Details{}, err
	}
	if err := ctx.Err(); err != nil {
		return booking.Details{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return booking.Details{}, internaltypes.ErrNotFound
	}
	tags, ok := m.services[b.ServiceID]
	if !ok {
		return booking.Details{}, internaltypes.ErrNotFound
	}
	area, ok := m.addresses[b.AddressID]
	if !ok {
		return booking.Details{}, internaltypes.ErrNotFound
	}
	return booking.Details{Booking: b, RequiredTags: tags, AreaTag: area}, nil
}

func (m *MemStore) ListActiveCleaners(ctx context.Context) ([]cleaner.Cleaner, error) {
	if err := m.fail("ListActiveCleaners"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]cleaner.Cleaner, 0, len(m.cleaners))
	for _, c := range m.cleaners {
		if c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
	return out, nil
}

func (m *MemStore) Commitments(ctx context.Context, cleanerID uuid.UUID, from, to time.Time) ([]booking.Commitment, error) {
	if err := m.fail("Commitments"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CommitmentCalls++
	var out []booking.Commitment
	for _, b := range m.bookings {
		if b.AssignedCleanerID == nil || *b.AssignedCleanerID != cleanerID || !b.Status.Committing() {
			continue
		}
		if b.ScheduledStart.Before(from) || !b.ScheduledStart.Before(to) {
			continue
		}
		w, err := b.Window()
		if err != nil {
			return nil, err
		}
		out = append(out, booking.Commitment{BookingID: b.ID, CleanerID: cleanerID, Window: w, Status: b.Status})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Window.Start.Before(out[j].Window.Start) })
	return out, nil
}

func (m *MemStore) AssignIfAwaiting(ctx context.Context, bookingID, cleanerID uuid.UUID) (bool, error) {
	if err := m.fail("AssignIfAwaiting"); err != nil {
		return false, err
	}
	if m.BeforeAssign != nil {
		m.BeforeAssign(bookingID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok || b.Status != booking.StatusAwaitingAssignment {
		return false, nil
	}
	id := cleanerID
	b.AssignedCleanerID = &id
	b.Status = booking.StatusAssigned
	m.bookings[bookingID] = b
	return true, nil
}

// ListAwaiting returns AWAITING_ASSIGNMENT bookings by start time.
func (m *MemStore) ListAwaiting(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if err := m.fail("ListAwaiting"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var bs []booking.Booking
	for _, b := range m.bookings {
		if b.Status == booking.StatusAwaitingAssignment {
			bs = append(bs, b)
		}
	}
	sort.Slice(bs, func(i, j int) bool { return bs[i].ScheduledStart.Before(bs[j].ScheduledStart) })
	if limit > 0 && len(bs) > limit {
		bs = bs[:limit]
	}
	out := make([]uuid.UUID, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.ID)
	}
	return out, nil
}
