// Package scheduler periodically auto-assigns bookings left waiting for a
// cleaner, for deployments that do not deliver awaiting-assignment events.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/cleaner-scheduler/internal/application/assignment"
	"github.com/google/uuid"
)

// Source lists bookings awaiting assignment, earliest start first.
type Source interface {
	ListAwaiting(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// Scheduler sweeps Source on every tick and runs RetryAutoAssign for each
// booking found. Bookings within one tick are handled concurrently; a new
// tick waits for the previous one to finish.
type Scheduler struct {
	Source   Source
	Engine   assignment.AutoAssigner
	Policy   assignment.RetryPolicy
	Interval time.Duration
	Batch    int
	Log      *slog.Logger

	wg sync.WaitGroup
}

func (s *Scheduler) Run(ctx context.Context) error {
	if s.Log == nil {
		s.Log = slog.Default()
	}
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	s.Log.Info("sweeper started", "interval", s.Interval, "batch", s.Batch)

	// kick immediately
	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-t.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one sweep and blocks until every attempt in it has finished.
// It returns the number of bookings that were assigned.
func (s *Scheduler) Tick(ctx context.Context) int {
	log := s.logger()
	batch := s.Batch
	if batch <= 0 {
		batch = 25
	}

	ids, err := s.Source.ListAwaiting(ctx, batch)
	if err != nil {
		log.Error("sweeper: list awaiting bookings", "err", err)
		return 0
	}

	var (
		mu       sync.Mutex
		assigned int
	)
	for _, id := range ids {
		id := id
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			out, err := assignment.RetryAutoAssign(ctx, s.Engine, id, s.Policy, log)
			if err != nil {
				log.Warn("sweeper: auto-assign failed", "booking_id", id, "reason", assignment.ReasonFor(err), "err", err)
				return
			}
			if out.Success {
				mu.Lock()
				assigned++
				mu.Unlock()
			}
		}()
	}
	s.wg.Wait()

	if len(ids) > 0 {
		log.Info("sweep finished", "awaiting", len(ids), "assigned", assigned)
	}
	return assigned
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
