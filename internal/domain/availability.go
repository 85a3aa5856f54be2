package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SlotType classifies an availability entry or resolved slot.
type SlotType string

const (
	SlotTypeAvailable   SlotType = "available"
	SlotTypeUnavailable SlotType = "unavailable"
	SlotTypeReservation SlotType = "reservation"
)

// ExternalReasonPrefix marks entries imported by a calendar sync job.
// Entries carrying it are merged per resource before resolution;
// locally authored entries keep their individual reasons.
const ExternalReasonPrefix = "[External]"

// AvailabilityEntry is a free slot or a block on one or both resource
// axes. An entry may target an instructor (UserID), an aircraft
// (AircraftID) or both, e.g. an instructor-on-aircraft constraint.
//
// For recurring entries StartTime/EndTime define the time of day and
// the earliest recurrence date; RecurrenceEndDate is inclusive and nil
// means unbounded.
type AvailabilityEntry struct {
	bun.BaseModel `bun:"table:availability_entries"`

	ID                uuid.UUID  `bun:"id,pk,type:uuid"`
	ClubID            uuid.UUID  `bun:"club_id,notnull,type:uuid"`
	UserID            *string    `bun:"user_id"`
	AircraftID        *uuid.UUID `bun:"aircraft_id,type:uuid"`
	SlotType          SlotType   `bun:"slot_type,notnull"`
	StartTime         time.Time  `bun:"start_time,notnull"`
	EndTime           time.Time  `bun:"end_time,notnull"`
	IsRecurring       bool       `bun:"is_recurring,notnull"`
	RecurrencePattern *string    `bun:"recurrence_pattern"`
	RecurrenceEndDate *time.Time `bun:"recurrence_end_date"`
	Reason            string     `bun:"reason"`
	CreatedAt         time.Time  `bun:"created_at,notnull"`
	UpdatedAt         time.Time  `bun:"updated_at,notnull"`
}

func (e *AvailabilityEntry) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if e.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			e.ID = id
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		e.UpdatedAt = now
	}
	return nil
}

// IsExternal reports whether the entry originates from a synced
// external calendar.
func (e AvailabilityEntry) IsExternal() bool {
	return strings.HasPrefix(e.Reason, ExternalReasonPrefix)
}

// ReservationStatus tracks the lifecycle of a booking.
type ReservationStatus string

const (
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// Reservation is a confirmed booking. Reservations are never recurring
// and never merged with other intervals; they block their aircraft and
// optional instructor for their exact span.
type Reservation struct {
	bun.BaseModel `bun:"table:reservations"`

	ID           uuid.UUID         `bun:"id,pk,type:uuid"`
	ClubID       uuid.UUID         `bun:"club_id,notnull,type:uuid"`
	AircraftID   uuid.UUID         `bun:"aircraft_id,notnull,type:uuid"`
	PilotID      string            `bun:"pilot_id,notnull"`
	InstructorID *string           `bun:"instructor_id"`
	StartTime    time.Time         `bun:"start_time,notnull"`
	EndTime      time.Time         `bun:"end_time,notnull"`
	Status       ReservationStatus `bun:"status,notnull"`
	CreatedAt    time.Time         `bun:"created_at,notnull"`
	UpdatedAt    time.Time         `bun:"updated_at,notnull"`
}

func (r *Reservation) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if r.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			r.ID = id
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		r.UpdatedAt = now
	}
	return nil
}

func uuidPtrToString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
