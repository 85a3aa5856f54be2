package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"aeroclub/backend/internal/domain"
)

// SchedulingTx is the transactional view used while an aircraft's
// calendar is locked. Conflict re-checks and the reservation insert run
// against the same snapshot.
type SchedulingTx interface {
	CreateReservation(ctx context.Context, reservation domain.Reservation) (domain.Reservation, error)
	ListReservations(ctx context.Context, filter ResourceFilter, windowStart, windowEnd time.Time) ([]domain.Reservation, error)
	ListAvailabilityEntries(ctx context.Context, filter ResourceFilter, windowStart, windowEnd time.Time) ([]domain.AvailabilityEntry, error)
	CancelReservation(ctx context.Context, clubID, reservationID uuid.UUID) error
	CreateAvailabilityEntry(ctx context.Context, entry domain.AvailabilityEntry) (domain.AvailabilityEntry, error)
	DeleteAvailabilityEntry(ctx context.Context, clubID, entryID uuid.UUID) error
}
