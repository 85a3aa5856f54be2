package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"aeroclub/backend/internal/domain"
	"aeroclub/backend/internal/service/scheduling"
	"aeroclub/backend/internal/store"

	"github.com/google/uuid"
)

// schedulingService is the slice of the scheduling engine the transport
// consumes.
type schedulingService interface {
	ResolveAvailability(ctx context.Context, filter store.ResourceFilter, windowStart, windowEnd time.Time) ([]scheduling.ResolvedSlot, error)
	CanBook(ctx context.Context, candidate scheduling.CandidateBooking) (scheduling.BookingCheck, error)
	CreateReservation(ctx context.Context, candidate scheduling.CandidateBooking) (domain.Reservation, scheduling.BookingCheck, error)
	GenerateSlots(ctx context.Context, clubID uuid.UUID, date time.Time, granularity time.Duration) ([]domain.SlotTime, error)
	OperatingWindow(ctx context.Context, clubID uuid.UUID, date time.Time) (domain.OperatingWindow, error)
	MergeIntervals(intervals []domain.Interval) []domain.Interval
}

// SchedulingHandler serves the planning UI's scheduling endpoints.
type SchedulingHandler struct {
	svc schedulingService
	log *slog.Logger
}

func NewSchedulingHandler(svc schedulingService, log *slog.Logger) *SchedulingHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SchedulingHandler{
		svc: svc,
		log: log.With(slog.String("component", "http.scheduling")),
	}
}

// NewRouter wires the scheduling routes behind standard middleware.
func NewRouter(h *SchedulingHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Idempotency-Key"},
		MaxAge:         300,
	}))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/clubs/{club_id}", func(r chi.Router) {
			r.Get("/availability", h.ResolveAvailability)
			r.Get("/slots", h.GenerateSlots)
			r.Get("/operating-window", h.OperatingWindow)
			r.Post("/bookings/check", h.CheckBooking)
			r.Post("/reservations", h.CreateReservation)
		})
		r.Post("/intervals/merge", h.MergeIntervals)
	})

	return r
}
