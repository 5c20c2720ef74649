package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/cleaner-scheduler/internal/application/assignment"
	"github.com/example/cleaner-scheduler/internal/domain/booking"
	"github.com/example/cleaner-scheduler/internal/internaltypes"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	errRequeue    = errors.New("requeue")
	errDeadLetter = errors.New("dead_letter")
)

// Worker auto-assigns bookings announced on the awaiting-assignment queue.
type Worker struct {
	engine assignment.AutoAssigner
	policy assignment.RetryPolicy
	log    *slog.Logger
}

func NewWorker(engine assignment.AutoAssigner, policy assignment.RetryPolicy, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{engine: engine, policy: policy, log: log}
}

// Run handles deliveries until ctx is cancelled or the channel closes.
// Messages are acked once settled, requeued on shutdown, and dead-lettered
// when malformed or still failing after the retry budget.
func (w *Worker) Run(ctx context.Context, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.settle(d, w.process(ctx, d))
		}
	}
}

func (w *Worker) settle(d amqp.Delivery, err error) {
	var ackErr error
	switch {
	case err == nil:
		ackErr = d.Ack(false)
	case errors.Is(err, errRequeue):
		ackErr = d.Nack(false, true)
	default:
		ackErr = d.Nack(false, false)
	}
	if ackErr != nil {
		w.log.Error("settle delivery", "delivery_tag", d.DeliveryTag, "err", ackErr)
	}
}

func (w *Worker) process(ctx context.Context, d amqp.Delivery) error {
	var ev booking.AwaitingAssignmentEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil || ev.BookingID == uuid.Nil {
		w.log.Warn("malformed awaiting-assignment message", "delivery_tag", d.DeliveryTag, "err", err)
		return errDeadLetter
	}

	out, err := assignment.RetryAutoAssign(ctx, w.engine, ev.BookingID, w.policy, w.log)
	switch {
	case err == nil:
		w.log.Info("auto-assign settled", "booking_id", ev.BookingID, "success", out.Success, "reason", out.Reason)
		return nil
	case errors.Is(err, internaltypes.ErrNotFound), errors.Is(err, internaltypes.ErrInvalidState):
		w.log.Info("auto-assign skipped", "booking_id", ev.BookingID, "reason", assignment.ReasonFor(err))
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %w", errRequeue, err)
	default:
		w.log.Error("auto-assign failed", "booking_id", ev.BookingID, "reason", assignment.ReasonFor(err), "err", err)
		return fmt.Errorf("%w: %w", errDeadLetter, err)
	}
}
