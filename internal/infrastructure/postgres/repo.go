package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/cleaner-scheduler/internal/application/assignment"
	"github.com/example/cleaner-scheduler/internal/domain/booking"
	"github.com/example/cleaner-scheduler/internal/domain/cleaner"
	"github.com/example/cleaner-scheduler/internal/domain/schedule"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ assignment.TxStore = (*Repo)(nil)

// Repo is the booking store and cleaner directory. Outside Transact it
// runs each query on the pool.
type Repo struct {
	pool *pgxpool.Pool
	q    querier
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool, q: pool} }

// Transact runs fn in a SERIALIZABLE transaction. Two assignments racing for
// the same cleaner abort one side with a serialization failure, reported as
// ErrConflict.
func (r *Repo) Transact(ctx context.Context, fn func(assignment.Store) error) error {
	if r.pool == nil {
		return errors.New("postgres: nested transaction")
	}
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		return fn(&Repo{q: tx})
	})
	return classify(err)
}

func (r *Repo) GetBookingDetails(ctx context.Context, id uuid.UUID) (booking.Details, error) {
	row := r.q.QueryRow(ctx, `
		SELECT b.id, b.service_id, b.address_id, b.scheduled_start, b.duration_minutes,
		       b.status, b.assigned_cleaner_id, s.required_tags, a.area_tag
		FROM bookings b
		JOIN services s ON s.id = b.service_id
		JOIN addresses a ON a.id = b.address_id
		WHERE b.id = $1
	`, id)

	var (
		d      booking.Details
		status string
	)
	err := row.Scan(&d.ID, &d.ServiceID, &d.AddressID, &d.ScheduledStart, &d.DurationMinutes,
		&status, &d.AssignedCleanerID, &d.RequiredTags, &d.AreaTag)
	if err != nil {
		return booking.Details{}, classify(err)
	}
	d.Status = booking.Status(status)
	d.ScheduledStart = d.ScheduledStart.UTC()
	return d, nil
}

func (r *Repo) ListActiveCleaners(ctx context.Context) ([]cleaner.Cleaner, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, active, specializations, areas, commute_buffer_minutes
		FROM cleaners
		WHERE active
		ORDER BY id
	`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []cleaner.Cleaner
	for rows.Next() {
		var c cleaner.Cleaner
		if err := rows.Scan(&c.ID, &c.Active, &c.Specializations, &c.Areas, &c.CommuteBufferMinutes); err != nil {
			return nil, classify(err)
		}
		out = append(out, c)
	}
	return out, classify(rows.Err())
}

func (r *Repo) Commitments(ctx context.Context, cleanerID uuid.UUID, from, to time.Time) ([]booking.Commitment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, scheduled_start, duration_minutes, status
		FROM bookings
		WHERE assigned_cleaner_id = $1
		  AND status IN ('ASSIGNED', 'IN_PROGRESS')
		  AND scheduled_start >= $2 AND scheduled_start < $3
		ORDER BY scheduled_start
	`, cleanerID, from.UTC(), to.UTC())
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []booking.Commitment
	for rows.Next() {
		var (
			id      uuid.UUID
			start   time.Time
			minutes int
			status  string
		)
		if err := rows.Scan(&id, &start, &minutes, &status); err != nil {
			return nil, classify(err)
		}
		w, err := schedule.FromMinutes(start, minutes)
		if err != nil {
			return nil, fmt.Errorf("booking %s: %w", id, err)
		}
		out = append(out, booking.Commitment{BookingID: id, CleanerID: cleanerID, Window: w, Status: booking.Status(status)})
	}
	return out, classify(rows.Err())
}

func (r *Repo) AssignIfAwaiting(ctx context.Context, bookingID, cleanerID uuid.UUID) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE bookings
		SET assigned_cleaner_id = $2, status = 'ASSIGNED', updated_at = now()
		WHERE id = $1 AND status = 'AWAITING_ASSIGNMENT'
	`, bookingID, cleanerID)
	if err != nil {
		return false, classify(err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListAwaiting returns up to limit AWAITING_ASSIGNMENT booking ids, earliest start first.
func (r *Repo) ListAwaiting(ctx context.Context, limit int) ([]uuid.UUID, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id FROM bookings
		WHERE status = 'AWAITING_ASSIGNMENT'
		ORDER BY scheduled_start, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, classify(err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, classify(err)
	}
	return ids, nil
}
