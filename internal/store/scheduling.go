package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"aeroclub/backend/internal/domain"
)

// ResourceFilter narrows entry and reservation queries to one or both
// resource axes within a club. A nil axis means "do not filter on it".
type ResourceFilter struct {
	ClubID     uuid.UUID
	AircraftID *uuid.UUID
	UserID     *string
}

// SchedulingRepository exposes the persistence operations the
// availability engine consumes. List calls return rows intersecting the
// half-open window [windowStart,windowEnd); for recurring entries the
// window test applies to the anchor date and recurrence end date, the
// engine expands occurrences itself.
type SchedulingRepository interface {
	ListAvailabilityEntries(ctx context.Context, filter ResourceFilter, windowStart, windowEnd time.Time) ([]domain.AvailabilityEntry, error)
	ListReservations(ctx context.Context, filter ResourceFilter, windowStart, windowEnd time.Time) ([]domain.Reservation, error)

	CreateAvailabilityEntry(ctx context.Context, entry domain.AvailabilityEntry) (domain.AvailabilityEntry, error)
	DeleteAvailabilityEntry(ctx context.Context, clubID, entryID uuid.UUID) error

	CreateReservation(ctx context.Context, reservation domain.Reservation) (domain.Reservation, error)
	CancelReservation(ctx context.Context, clubID, reservationID uuid.UUID) error
}

// ClubRepository exposes per-club settings the engine needs: home field
// coordinates and the night-flight flag. GetCoordinates returns
// (nil, nil) when the club has no usable position so callers can apply
// the documented fixed-bounds fallback.
type ClubRepository interface {
	GetClub(ctx context.Context, clubID uuid.UUID) (domain.Club, error)
	GetCoordinates(ctx context.Context, clubID uuid.UUID) (*domain.Coordinates, error)
	GetNightFlightsEnabled(ctx context.Context, clubID uuid.UUID) (bool, error)
}
