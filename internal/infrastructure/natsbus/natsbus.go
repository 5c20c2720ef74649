// Package natsbus publishes assignment events over core NATS.
package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/cleaner-scheduler/internal/application/assignment"
	"github.com/example/cleaner-scheduler/internal/domain/booking"
	"github.com/nats-io/nats.go"
)

var _ assignment.EventPublisher = (*Publisher)(nil)

// Connect dials url with reconnects enabled and connection events logged.
func Connect(url string, log *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("cleanersched"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}

type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher publishes on "<prefix>.assigned".
func NewPublisher(nc *nats.Conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = "bookings"
	}
	return &Publisher{nc: nc, subject: prefix + ".assigned"}
}

func (p *Publisher) Subject() string { return p.subject }

// PublishAssigned publishes the event and flushes so a broken connection
// surfaces as an error here.
func (p *Publisher) PublishAssigned(ctx context.Context, ev booking.AssignedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.subject, body); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	if _, ok := ctx.Deadline(); ok {
		err = p.nc.FlushWithContext(ctx)
	} else {
		err = p.nc.Flush()
	}
	if err != nil {
		return fmt.Errorf("flush %s: %w", p.subject, err)
	}
	return nil
}
