package assignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/cleaner-scheduler/internal/domain/booking"
	"github.com/example/cleaner-scheduler/internal/domain/schedule"
	"github.com/example/cleaner-scheduler/internal/internaltypes"
	"github.com/google/uuid"
)

// NoBuffer turns the travel margin off. A zero Config.Buffer means DefaultBuffer.
const NoBuffer time.Duration = -1

const (
	DefaultBuffer    = 30 * time.Minute
	DefaultLookahead = 60 * 24 * time.Hour
	DefaultTimeout   = 5 * time.Second
)

const (
	opFind   = "find"
	opAssign = "assign"
)

type Reason string

const (
	ReasonNone                Reason = ""
	ReasonNoEligibleCandidate Reason = "no_eligible_candidate"
	ReasonNotFound            Reason = "not_found"
	ReasonInvalidState        Reason = "invalid_state"
	ReasonConflict            Reason = "conflict"
	ReasonTransient           Reason = "transient"
	ReasonError               Reason = "error"
)

// ReasonFor classifies an engine error.
func ReasonFor(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, internaltypes.ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, internaltypes.ErrInvalidState):
		return ReasonInvalidState
	case errors.Is(err, internaltypes.ErrConflict):
		return ReasonConflict
	case errors.Is(err, internaltypes.ErrTransient):
		return ReasonTransient
	default:
		return ReasonError
	}
}

type Config struct {
	Buffer    time.Duration
	Lookahead time.Duration

	// Upper bound for a single operation's store work.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	switch {
	case c.Buffer == 0:
		c.Buffer = DefaultBuffer
	case c.Buffer < 0:
		c.Buffer = 0
	}
	if c.Lookahead <= 0 {
		c.Lookahead = DefaultLookahead
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Availability is what an administrator reviews before assigning.
type Availability struct {
	Booking    booking.Details
	Window     schedule.Window
	Candidates []Candidate
}

// Outcome is the result of an auto-assign attempt. Success is false with
// ReasonNoEligibleCandidate when nobody can take the booking; that case is
// not an error.
type Outcome struct {
	Success   bool
	BookingID uuid.UUID
	CleanerID *uuid.UUID
	Reason    Reason
	Message   string
}

type Option func(*Engine)

func WithPublisher(p EventPublisher) Option { return func(e *Engine) { e.events = p } }
func WithRecorder(r Recorder) Option        { return func(e *Engine) { e.metrics = r } }
func WithLogger(l *slog.Logger) Option      { return func(e *Engine) { e.log = l } }
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// Engine finds and commits cleaner assignments. It keeps no scheduling state
// between calls; double assignment is prevented by the store's guarded update.
type Engine struct {
	store   TxStore
	cfg     Config
	events  EventPublisher
	metrics Recorder
	log     *slog.Logger
	now     func() time.Time
}

func NewEngine(store TxStore, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		cfg:     cfg.withDefaults(),
		events:  nopPublisher{},
		metrics: nopRecorder{},
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// FindAvailableCleaners lists eligible, conflict-free cleaners for a booking
// that is awaiting assignment, in the order AutoAssignCleaner would try them.
func (e *Engine) FindAvailableCleaners(ctx context.Context, bookingID uuid.UUID) (Availability, error) {
	started := e.now()
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	av, err := e.findAvailable(ctx, bookingID)
	err = normalize(err)
	e.metrics.ObserveAttempt(opFind, outcomeLabel(err, len(av.Candidates) > 0), e.now().Sub(started))
	if err != nil {
		return Availability{}, err
	}
	e.metrics.ObserveCandidates(opFind, len(av.Candidates))
	return av, nil
}

func (e *Engine) findAvailable(ctx context.Context, bookingID uuid.UUID) (Availability, error) {
	d, err := e.loadAwaiting(ctx, e.store, bookingID)
	if err != nil {
		return Availability{}, err
	}
	win, cands, err := e.candidates(ctx, e.store, d)
	if err != nil {
		return Availability{}, err
	}
	return Availability{Booking: d, Window: win, Candidates: cands}, nil
}

// AutoAssignCleaner picks the top-ranked candidate and commits it with a
// compare-and-set on the booking status. Losing that race yields
// ErrConflict; the engine never retries on its own.
func (e *Engine) AutoAssignCleaner(ctx context.Context, bookingID uuid.UUID) (Outcome, error) {
	started := e.now()
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	var (
		out       Outcome
		window    schedule.Window
		nCands    int
		committed bool
	)
	err := e.store.Transact(ctx, func(s Store) error {
		d, err := e.loadAwaiting(ctx, s, bookingID)
		if err != nil {
			return err
		}
		win, cands, err := e.candidates(ctx, s, d)
		if err != nil {
			return err
		}
		window, nCands = win, len(cands)
		if len(cands) == 0 {
			out = Outcome{
				BookingID: bookingID,
				Reason:    ReasonNoEligibleCandidate,
				Message:   "no eligible cleaner is free for this booking",
			}
			return nil
		}

		top := cands[0].Cleaner.ID
		ok, err := s.AssignIfAwaiting(ctx, bookingID, top)
		if err != nil {
			return fmt.Errorf("assign booking %s: %w", bookingID, err)
		}
		if !ok {
			return fmt.Errorf("booking %s changed before assignment: %w", bookingID, internaltypes.ErrConflict)
		}
		committed = true
		out = Outcome{
			Success:   true,
			BookingID: bookingID,
			CleanerID: &top,
			Message:   fmt.Sprintf("assigned cleaner %s", top),
		}
		return nil
	})
	err = normalize(err)
	e.metrics.ObserveAttempt(opAssign, outcomeLabel(err, out.Success), e.now().Sub(started))
	if err != nil {
		e.log.Warn("auto-assign failed", "booking_id", bookingID, "reason", ReasonFor(err), "err", err)
		return Outcome{BookingID: bookingID, Reason: ReasonFor(err), Message: err.Error()}, err
	}
	e.metrics.ObserveCandidates(opAssign, nCands)

	if !committed {
		e.log.Info("no eligible cleaner", "booking_id", bookingID, "window", window.String())
		return out, nil
	}
	e.log.Info("cleaner assigned", "booking_id", bookingID, "cleaner_id", *out.CleanerID, "window", window.String(), "candidates", nCands)
	e.publish(ctx, booking.AssignedEvent{
		BookingID:       bookingID,
		CleanerID:       *out.CleanerID,
		ScheduledStart:  window.Start,
		DurationMinutes: int(window.Duration() / time.Minute),
		AssignedAt:      e.now().UTC(),
	})
	return out, nil
}

// publish runs after commit, so it must not fail the assignment.
func (e *Engine) publish(ctx context.Context, ev booking.AssignedEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.Timeout)
	defer cancel()
	if err := e.events.PublishAssigned(ctx, ev); err != nil {
		e.log.Error("publish assigned event", "booking_id", ev.BookingID, "err", err)
	}
}

func (e *Engine) loadAwaiting(ctx context.Context, s Store, bookingID uuid.UUID) (booking.Details, error) {
	d, err := s.GetBookingDetails(ctx, bookingID)
	if err != nil {
		return booking.Details{}, fmt.Errorf("load booking %s: %w", bookingID, err)
	}
	if d.Status != booking.StatusAwaitingAssignment {
		return booking.Details{}, fmt.Errorf("booking %s is %s: %w", bookingID, d.Status, internaltypes.ErrInvalidState)
	}
	return d, nil
}

// candidates runs eligibility, then the conflict check, then ranking.
func (e *Engine) candidates(ctx context.Context, s Store, d booking.Details) (schedule.Window, []Candidate, error) {
	win, err := d.Window()
	if err != nil {
		return schedule.Window{}, nil, fmt.Errorf("booking %s: %v: %w", d.ID, err, internaltypes.ErrInvalidState)
	}
	all, err := s.ListActiveCleaners(ctx)
	if err != nil {
		return schedule.Window{}, nil, fmt.Errorf("list cleaners: %w", err)
	}
	eligible := Eligible(all, d.RequiredTags, d.AreaTag)

	checker := ConflictChecker{Store: s, DefaultBuffer: e.cfg.Buffer, Lookahead: e.cfg.Lookahead, Now: e.now}
	cands := make([]Candidate, 0, len(eligible))
	for _, c := range eligible {
		v, err := checker.Check(ctx, c, d.ID, win)
		if err != nil {
			return schedule.Window{}, nil, err
		}
		if !v.Free {
			e.log.Debug("cleaner has conflicting commitment", "booking_id", d.ID, "cleaner_id", c.ID, "conflicting_booking_id", *v.ConflictingBookingID)
			continue
		}
		cands = append(cands, Candidate{Cleaner: c, Upcoming: v.Upcoming, Buffer: c.Buffer(e.cfg.Buffer)})
	}
	return win, Rank(cands), nil
}

// normalize reports deadline expiry as a transient failure.
func normalize(err error) error {
	if err == nil || errors.Is(err, internaltypes.ErrTransient) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", internaltypes.ErrTransient, err)
	}
	return err
}

func outcomeLabel(err error, success bool) string {
	if err != nil {
		return string(ReasonFor(err))
	}
	if !success {
		return string(ReasonNoEligibleCandidate)
	}
	return "success"
}
