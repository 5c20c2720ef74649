package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/cleaner-scheduler/internal/application/assignment"
	"github.com/example/cleaner-scheduler/internal/domain/booking"
	"github.com/example/cleaner-scheduler/internal/internaltypes"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settlement struct {
	acked   bool
	requeue bool
}

type fakeAcker struct {
	mu  sync.Mutex
	got map[uint64]settlement
}

func (a *fakeAcker) record(tag uint64, s settlement) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.got == nil {
		a.got = map[uint64]settlement{}
	}
	a.got[tag] = s
	return nil
}

func (a *fakeAcker) Ack(tag uint64, _ bool) error { return a.record(tag, settlement{acked: true}) }
func (a *fakeAcker) Nack(tag uint64, _ bool, requeue bool) error {
	return a.record(tag, settlement{requeue: requeue})
}
func (a *fakeAcker) Reject(tag uint64, requeue bool) error {
	return a.record(tag, settlement{requeue: requeue})
}

type assignerFunc func(ctx context.Context, id uuid.UUID) (assignment.Outcome, error)

func (f assignerFunc) AutoAssignCleaner(ctx context.Context, id uuid.UUID) (assignment.Outcome, error) {
	return f(ctx, id)
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func fastPolicy() assignment.RetryPolicy {
	return assignment.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func delivery(t *testing.T, acker *fakeAcker, tag uint64, body any) amqp.Delivery {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case []byte:
		raw = b
	default:
		var err error
		raw, err = json.Marshal(b)
		require.NoError(t, err)
	}
	return amqp.Delivery{Acknowledger: acker, DeliveryTag: tag, Body: raw}
}

func TestWorker_SettlesByOutcome(t *testing.T) {
	var (
		assigned    = uuid.New()
		noCandidate = uuid.New()
		missing     = uuid.New()
		contended   = uuid.New()
	)
	calls := map[uuid.UUID]int{}
	var mu sync.Mutex
	engine := assignerFunc(func(_ context.Context, id uuid.UUID) (assignment.Outcome, error) {
		mu.Lock()
		calls[id]++
		mu.Unlock()
		switch id {
		case assigned:
			c := uuid.New()
			return assignment.Outcome{Success: true, BookingID: id, CleanerID: &c}, nil
		case noCandidate:
			return assignment.Outcome{BookingID: id, Reason: assignment.ReasonNoEligibleCandidate}, nil
		case missing:
			return assignment.Outcome{}, fmt.Errorf("load: %w", internaltypes.ErrNotFound)
		default:
			return assignment.Outcome{}, fmt.Errorf("race: %w", internaltypes.ErrConflict)
		}
	})

	acker := &fakeAcker{}
	msgs := make(chan amqp.Delivery, 5)
	msgs <- delivery(t, acker, 1, booking.AwaitingAssignmentEvent{BookingID: assigned})
	msgs <- delivery(t, acker, 2, booking.AwaitingAssignmentEvent{BookingID: noCandidate})
	msgs <- delivery(t, acker, 3, booking.AwaitingAssignmentEvent{BookingID: missing})
	msgs <- delivery(t, acker, 4, booking.AwaitingAssignmentEvent{BookingID: contended})
	msgs <- delivery(t, acker, 5, []byte(`{"booking_id":"not-a-uuid"}`))
	close(msgs)

	w := NewWorker(engine, fastPolicy(), quietLogger())
	err := w.Run(context.Background(), msgs)
	require.Error(t, err)

	assert.Equal(t, settlement{acked: true}, acker.got[1])
	assert.Equal(t, settlement{acked: true}, acker.got[2])
	assert.Equal(t, settlement{acked: true}, acker.got[3])
	assert.Equal(t, settlement{}, acker.got[4], "exhausted retries dead-letter")
	assert.Equal(t, settlement{}, acker.got[5], "malformed payload dead-letters")
	assert.Len(t, acker.got, 5)

	assert.Equal(t, 3, calls[contended])
	assert.Equal(t, 1, calls[missing])
}

func TestWorker_RequeuesOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	engine := assignerFunc(func(ctx context.Context, id uuid.UUID) (assignment.Outcome, error) {
		cancel()
		return assignment.Outcome{}, fmt.Errorf("store: %w", internaltypes.ErrTransient)
	})

	acker := &fakeAcker{}
	w := NewWorker(engine, fastPolicy(), quietLogger())
	d := delivery(t, acker, 7, booking.AwaitingAssignmentEvent{BookingID: uuid.New()})
	w.settle(d, w.process(ctx, d))

	assert.Equal(t, settlement{requeue: true}, acker.got[7])
}

type recordingSender struct {
	exchange, key string
	body          []byte
	err           error
}

func (s *recordingSender) Publish(_ context.Context, exchange, key string, body []byte) error {
	s.exchange, s.key, s.body = exchange, key, body
	return s.err
}

func TestPublisher_PublishAssigned(t *testing.T) {
	s := &recordingSender{}
	p := NewPublisher(s, "bookings_topic")
	ev := booking.AssignedEvent{
		BookingID:       uuid.New(),
		CleanerID:       uuid.New(),
		ScheduledStart:  time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 90,
		AssignedAt:      time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.PublishAssigned(context.Background(), ev))

	assert.Equal(t, "bookings_topic", s.exchange)
	assert.Equal(t, booking.EventAssigned, s.key)
	var got booking.AssignedEvent
	require.NoError(t, json.Unmarshal(s.body, &got))
	assert.Equal(t, ev, got)

	s.err = assert.AnError
	assert.ErrorIs(t, p.PublishAssigned(context.Background(), ev), assert.AnError)
}
