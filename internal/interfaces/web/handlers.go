package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/example/cleaner-scheduler/internal/application/assignment"
	"github.com/example/cleaner-scheduler/internal/internaltypes"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type bookingView struct {
	ID              uuid.UUID `json:"id"`
	Status          string    `json:"status"`
	ScheduledStart  time.Time `json:"scheduled_start"`
	ScheduledEnd    time.Time `json:"scheduled_end"`
	DurationMinutes int       `json:"duration_minutes"`
	RequiredTags    []string  `json:"required_tags"`
	AreaTag         string    `json:"area_tag"`
}

type candidateView struct {
	ID                   uuid.UUID `json:"id"`
	Specializations      []string  `json:"specializations"`
	Areas                []string  `json:"areas"`
	UpcomingCommitments  int       `json:"upcoming_commitments"`
	CommuteBufferMinutes int       `json:"commute_buffer_minutes"`
}

type availabilityResponse struct {
	Booking  bookingView     `json:"booking"`
	Cleaners []candidateView `json:"cleaners"`
}

type assignResponse struct {
	Success   bool       `json:"success"`
	CleanerID *uuid.UUID `json:"cleaner_id,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Message   string     `json:"message"`
	Retryable bool       `json:"retryable"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Reason    string `json:"reason"`
	Retryable bool   `json:"retryable"`
}

func bookingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid booking id", Reason: "invalid_request"})
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleAvailable(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	av, err := s.Engine.FindAvailableCleaners(r.Context(), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	resp := availabilityResponse{
		Booking: bookingView{
			ID:              av.Booking.ID,
			Status:          string(av.Booking.Status),
			ScheduledStart:  av.Window.Start,
			ScheduledEnd:    av.Window.End,
			DurationMinutes: av.Booking.DurationMinutes,
			RequiredTags:    av.Booking.RequiredTags,
			AreaTag:         av.Booking.AreaTag,
		},
		Cleaners: make([]candidateView, 0, len(av.Candidates)),
	}
	for _, c := range av.Candidates {
		resp.Cleaners = append(resp.Cleaners, candidateView{
			ID:                   c.Cleaner.ID,
			Specializations:      c.Cleaner.Specializations,
			Areas:                c.Cleaner.Areas,
			UpcomingCommitments:  c.Upcoming,
			CommuteBufferMinutes: int(c.Buffer / time.Minute),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAutoAssign(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}
	out, err := s.Engine.AutoAssignCleaner(r.Context(), id)
	if err != nil {
		writeJSON(w, statusFor(err), assignResponse{
			Reason:    string(assignment.ReasonFor(err)),
			Message:   err.Error(),
			Retryable: internaltypes.Retryable(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, assignResponse{
		Success:   out.Success,
		CleanerID: out.CleanerID,
		Reason:    string(out.Reason),
		Message:   out.Message,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, internaltypes.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, internaltypes.ErrInvalidState), errors.Is(err, internaltypes.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, internaltypes.ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger().Error("request failed", "err", err)
	}
	writeJSON(w, code, errorResponse{
		Error:     err.Error(),
		Reason:    string(assignment.ReasonFor(err)),
		Retryable: internaltypes.Retryable(err),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
