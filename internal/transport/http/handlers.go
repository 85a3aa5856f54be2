package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"aeroclub/backend/internal/domain"
	"aeroclub/backend/internal/service/scheduling"
	"aeroclub/backend/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

type slotResponse struct {
	EntryID       string  `json:"entry_id,omitempty"`
	ReservationID string  `json:"reservation_id,omitempty"`
	SlotType      string  `json:"slot_type"`
	AircraftID    *string `json:"aircraft_id,omitempty"`
	UserID        *string `json:"user_id,omitempty"`
	PilotID       string  `json:"pilot_id,omitempty"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	Reason        string  `json:"reason,omitempty"`
}

type availabilityResponse struct {
	Slots []slotResponse `json:"slots"`
}

type bookingRequest struct {
	AircraftID   string  `json:"aircraft_id"`
	PilotID      string  `json:"pilot_id"`
	InstructorID *string `json:"instructor_id,omitempty"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
}

type conflictResponse struct {
	Kind          string `json:"kind"`
	ResourceID    string `json:"resource_id,omitempty"`
	EntryID       string `json:"entry_id,omitempty"`
	ReservationID string `json:"reservation_id,omitempty"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Reason        string `json:"reason,omitempty"`
}

type bookingCheckResponse struct {
	OK       bool              `json:"ok"`
	Conflict *conflictResponse `json:"conflict,omitempty"`
}

type reservationResponse struct {
	ID           string  `json:"id"`
	ClubID       string  `json:"club_id"`
	AircraftID   string  `json:"aircraft_id"`
	PilotID      string  `json:"pilot_id"`
	InstructorID *string `json:"instructor_id,omitempty"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	Status       string  `json:"status"`
}

type createReservationResponse struct {
	Reservation *reservationResponse `json:"reservation,omitempty"`
	Conflict    *conflictResponse    `json:"conflict,omitempty"`
}

type slotTimeResponse struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

type slotGridResponse struct {
	Date  string             `json:"date"`
	Slots []slotTimeResponse `json:"slots"`
}

type operatingWindowResponse struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Sunrise  string `json:"sunrise,omitempty"`
	Sunset   string `json:"sunset,omitempty"`
	Fallback bool   `json:"fallback"`
}

type intervalPayload struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason,omitempty"`
}

type mergeRequest struct {
	Intervals []intervalPayload `json:"intervals"`
}

type mergeResponse struct {
	Intervals []intervalPayload `json:"intervals"`
}

func (h *SchedulingHandler) ResolveAvailability(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("route", "ResolveAvailability"))

	clubID, ok := h.clubID(w, r, log)
	if !ok {
		return
	}

	query := r.URL.Query()
	start, err := time.Parse(time.RFC3339, query.Get("start"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "start must be RFC 3339")
		return
	}
	end, err := time.Parse(time.RFC3339, query.Get("end"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "end must be RFC 3339")
		return
	}

	filter := store.ResourceFilter{ClubID: clubID}
	if raw := strings.TrimSpace(query.Get("aircraft_id")); raw != "" {
		aircraftID, err := uuid.Parse(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "aircraft_id must be a UUID")
			return
		}
		filter.AircraftID = &aircraftID
	}
	if raw := strings.TrimSpace(query.Get("instructor_id")); raw != "" {
		filter.UserID = &raw
	}

	slots, err := h.svc.ResolveAvailability(r.Context(), filter, start, end)
	if err != nil {
		h.handleServiceError(w, log, err, "availability resolve failed")
		return
	}

	resp := availabilityResponse{Slots: make([]slotResponse, 0, len(slots))}
	for _, slot := range slots {
		resp.Slots = append(resp.Slots, slotResponse{
			EntryID:       slot.EntryID,
			ReservationID: slot.ReservationID,
			SlotType:      string(slot.SlotType),
			AircraftID:    slot.AircraftID,
			UserID:        slot.UserID,
			PilotID:       slot.PilotID,
			StartTime:     slot.StartTime.Format(time.RFC3339),
			EndTime:       slot.EndTime.Format(time.RFC3339),
			Reason:        slot.Reason,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *SchedulingHandler) CheckBooking(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("route", "CheckBooking"))

	candidate, ok := h.decodeCandidate(w, r, log)
	if !ok {
		return
	}

	check, err := h.svc.CanBook(r.Context(), candidate)
	if err != nil {
		h.handleServiceError(w, log, err, "booking check failed")
		return
	}

	h.writeJSON(w, http.StatusOK, toBookingCheckResponse(check))
}

func (h *SchedulingHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("route", "CreateReservation"))

	candidate, ok := h.decodeCandidate(w, r, log)
	if !ok {
		return
	}
	candidate.IdempotencyKey = strings.TrimSpace(r.Header.Get("Idempotency-Key"))

	reservation, check, err := h.svc.CreateReservation(r.Context(), candidate)
	if err != nil {
		h.handleServiceError(w, log, err, "reservation create failed")
		return
	}
	if !check.OK {
		log.Info("reservation rejected",
			slog.String("club_id", candidate.ClubID.String()),
			slog.String("aircraft_id", candidate.AircraftID.String()),
			slog.String("kind", string(check.Conflict.Kind)),
		)
		h.writeJSON(w, http.StatusConflict, createReservationResponse{Conflict: toConflictResponse(check.Conflict)})
		return
	}

	log.Info("reservation created",
		slog.String("reservation_id", reservation.ID.String()),
		slog.String("aircraft_id", reservation.AircraftID.String()),
		slog.Time("start_time", reservation.StartTime),
		slog.Time("end_time", reservation.EndTime),
	)

	h.writeJSON(w, http.StatusCreated, createReservationResponse{Reservation: toReservationResponse(reservation)})
}

func (h *SchedulingHandler) GenerateSlots(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("route", "GenerateSlots"))

	clubID, ok := h.clubID(w, r, log)
	if !ok {
		return
	}

	query := r.URL.Query()
	date, err := time.Parse("2006-01-02", query.Get("date"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	granularity := domain.GridGranularity
	if raw := strings.TrimSpace(query.Get("granularity_minutes")); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			h.writeError(w, http.StatusBadRequest, "granularity_minutes must be a positive integer")
			return
		}
		granularity = time.Duration(minutes) * time.Minute
	}

	slots, err := h.svc.GenerateSlots(r.Context(), clubID, date, granularity)
	if err != nil {
		h.handleServiceError(w, log, err, "slot generation failed")
		return
	}

	resp := slotGridResponse{
		Date:  date.Format("2006-01-02"),
		Slots: make([]slotTimeResponse, 0, len(slots)),
	}
	for _, slot := range slots {
		resp.Slots = append(resp.Slots, slotTimeResponse{Hour: slot.Hour, Minute: slot.Minute})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *SchedulingHandler) OperatingWindow(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("route", "OperatingWindow"))

	clubID, ok := h.clubID(w, r, log)
	if !ok {
		return
	}

	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	window, err := h.svc.OperatingWindow(r.Context(), clubID, date)
	if err != nil {
		h.handleServiceError(w, log, err, "operating window failed")
		return
	}

	resp := operatingWindowResponse{
		Start:    window.Start.Format(time.RFC3339),
		End:      window.End.Format(time.RFC3339),
		Fallback: window.Fallback,
	}
	if !window.Sunrise.IsZero() {
		resp.Sunrise = window.Sunrise.Format(time.RFC3339)
	}
	if !window.Sunset.IsZero() {
		resp.Sunset = window.Sunset.Format(time.RFC3339)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *SchedulingHandler) MergeIntervals(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("route", "MergeIntervals"))

	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("invalid request", slog.Any("err", err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	intervals := make([]domain.Interval, 0, len(req.Intervals))
	for _, payload := range req.Intervals {
		start, err := time.Parse(time.RFC3339, payload.StartTime)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "start_time must be RFC 3339")
			return
		}
		end, err := time.Parse(time.RFC3339, payload.EndTime)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "end_time must be RFC 3339")
			return
		}
		intervals = append(intervals, domain.Interval{Start: start, End: end, Reason: payload.Reason})
	}

	merged := h.svc.MergeIntervals(intervals)
	resp := mergeResponse{Intervals: make([]intervalPayload, 0, len(merged))}
	for _, interval := range merged {
		resp.Intervals = append(resp.Intervals, intervalPayload{
			StartTime: interval.Start.Format(time.RFC3339),
			EndTime:   interval.End.Format(time.RFC3339),
			Reason:    interval.Reason,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *SchedulingHandler) clubID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "club_id")
	clubID, err := uuid.Parse(raw)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_club_id"), slog.String("club_id", raw))
		h.writeError(w, http.StatusBadRequest, "club_id must be a UUID")
		return uuid.Nil, false
	}
	return clubID, true
}

func (h *SchedulingHandler) decodeCandidate(w http.ResponseWriter, r *http.Request, log *slog.Logger) (scheduling.CandidateBooking, bool) {
	clubID, ok := h.clubID(w, r, log)
	if !ok {
		return scheduling.CandidateBooking{}, false
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("invalid request", slog.Any("err", err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return scheduling.CandidateBooking{}, false
	}

	aircraftID, err := uuid.Parse(req.AircraftID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "aircraft_id must be a UUID")
		return scheduling.CandidateBooking{}, false
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "start_time must be RFC 3339")
		return scheduling.CandidateBooking{}, false
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "end_time must be RFC 3339")
		return scheduling.CandidateBooking{}, false
	}

	return scheduling.CandidateBooking{
		ClubID:       clubID,
		AircraftID:   aircraftID,
		PilotID:      strings.TrimSpace(req.PilotID),
		InstructorID: req.InstructorID,
		StartTime:    start,
		EndTime:      end,
	}, true
}

func (h *SchedulingHandler) handleServiceError(w http.ResponseWriter, log *slog.Logger, err error, msg string) {
	var vErr *scheduling.ValidationError
	if errors.As(err, &vErr) {
		log.Warn("invalid request", slog.Any("err", err))
		h.writeError(w, http.StatusBadRequest, vErr.Error())
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "not found")
		return
	}
	if errors.Is(err, store.ErrIdempotencyConflict) {
		h.writeError(w, http.StatusConflict, "idempotency key already used for a different reservation")
		return
	}
	log.Error(msg, slog.Any("err", err))
	h.writeError(w, http.StatusInternalServerError, "internal error")
}

func (h *SchedulingHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("response encode failed", slog.Any("err", err))
	}
}

func (h *SchedulingHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Error: message})
}

func toBookingCheckResponse(check scheduling.BookingCheck) bookingCheckResponse {
	return bookingCheckResponse{OK: check.OK, Conflict: toConflictResponse(check.Conflict)}
}

func toConflictResponse(conflict *scheduling.BookingConflict) *conflictResponse {
	if conflict == nil {
		return nil
	}
	return &conflictResponse{
		Kind:          string(conflict.Kind),
		ResourceID:    conflict.ResourceID,
		EntryID:       conflict.EntryID,
		ReservationID: conflict.ReservationID,
		StartTime:     conflict.StartTime.Format(time.RFC3339),
		EndTime:       conflict.EndTime.Format(time.RFC3339),
		Reason:        conflict.Reason,
	}
}

func toReservationResponse(reservation domain.Reservation) *reservationResponse {
	return &reservationResponse{
		ID:           reservation.ID.String(),
		ClubID:       reservation.ClubID.String(),
		AircraftID:   reservation.AircraftID.String(),
		PilotID:      reservation.PilotID,
		InstructorID: reservation.InstructorID,
		StartTime:    reservation.StartTime.Format(time.RFC3339),
		EndTime:      reservation.EndTime.Format(time.RFC3339),
		Status:       string(reservation.Status),
	}
}
