package assignment_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/example/cleaner-scheduler/internal/application/assignment"
	"github.com/example/cleaner-scheduler/internal/internaltypes"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedAssigner struct {
	results []error
	calls   int
}

func (s *scriptedAssigner) AutoAssignCleaner(_ context.Context, id uuid.UUID) (assignment.Outcome, error) {
	i := s.calls
	s.calls++
	if i >= len(s.results) || s.results[i] == nil {
		cid := uuid.New()
		return assignment.Outcome{Success: true, BookingID: id, CleanerID: &cid}, nil
	}
	err := s.results[i]
	return assignment.Outcome{BookingID: id, Reason: assignment.ReasonFor(err)}, err
}

var fastPolicy = assignment.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func TestRetryAutoAssign_RetriesConflictThenSucceeds(t *testing.T) {
	a := &scriptedAssigner{results: []error{
		fmt.Errorf("x: %w", internaltypes.ErrConflict),
		fmt.Errorf("y: %w", internaltypes.ErrTransient),
	}}

	out, err := assignment.RetryAutoAssign(context.Background(), a, uuid.New(), fastPolicy, nil)

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 3, a.calls)
}

func TestRetryAutoAssign_StopsAtMaxAttempts(t *testing.T) {
	conflict := fmt.Errorf("x: %w", internaltypes.ErrConflict)
	a := &scriptedAssigner{results: []error{conflict, conflict, conflict, conflict}}

	out, err := assignment.RetryAutoAssign(context.Background(), a, uuid.New(), fastPolicy, nil)

	require.ErrorIs(t, err, internaltypes.ErrConflict)
	assert.Equal(t, assignment.ReasonConflict, out.Reason)
	assert.Equal(t, 3, a.calls)
}

func TestRetryAutoAssign_DoesNotRetryInvalidState(t *testing.T) {
	a := &scriptedAssigner{results: []error{fmt.Errorf("x: %w", internaltypes.ErrInvalidState)}}

	_, err := assignment.RetryAutoAssign(context.Background(), a, uuid.New(), fastPolicy, nil)

	require.ErrorIs(t, err, internaltypes.ErrInvalidState)
	assert.Equal(t, 1, a.calls)
}

func TestRetryAutoAssign_SingleAttemptPolicy(t *testing.T) {
	a := &scriptedAssigner{results: []error{fmt.Errorf("x: %w", internaltypes.ErrTransient)}}

	_, err := assignment.RetryAutoAssign(context.Background(), a, uuid.New(), assignment.RetryPolicy{MaxAttempts: 1}, nil)

	require.ErrorIs(t, err, internaltypes.ErrTransient)
	assert.Equal(t, 1, a.calls)
}
