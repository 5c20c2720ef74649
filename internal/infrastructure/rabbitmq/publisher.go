package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/cleaner-scheduler/internal/application/assignment"
	"github.com/example/cleaner-scheduler/internal/domain/booking"
)

var _ assignment.EventPublisher = (*Publisher)(nil)

type sender interface {
	Publish(ctx context.Context, exchange, key string, body []byte) error
}

// Publisher announces committed assignments on the bookings exchange.
type Publisher struct {
	client   sender
	exchange string
}

func NewPublisher(client sender, exchange string) *Publisher {
	return &Publisher{client: client, exchange: exchange}
}

func (p *Publisher) PublishAssigned(ctx context.Context, ev booking.AssignedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.exchange, booking.EventAssigned, body); err != nil {
		return fmt.Errorf("publish %s for booking %s: %w", booking.EventAssigned, ev.BookingID, err)
	}
	return nil
}
