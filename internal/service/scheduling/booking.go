package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"aeroclub/backend/internal/domain"
	"aeroclub/backend/internal/store"
)

// ConflictKind identifies why a candidate booking was rejected.
type ConflictKind string

const (
	ConflictAircraft              ConflictKind = "aircraft_conflict"
	ConflictInstructor            ConflictKind = "instructor_conflict"
	ConflictOutsideOperatingHours ConflictKind = "outside_operating_hours"
	ConflictPastTimeSlot          ConflictKind = "past_time_slot"
)

// CandidateBooking is a booking attempt to validate.
type CandidateBooking struct {
	ClubID         uuid.UUID
	AircraftID     uuid.UUID
	PilotID        string
	InstructorID   *string
	StartTime      time.Time
	EndTime        time.Time
	IdempotencyKey string
}

// BookingConflict carries enough structure for a UI to highlight the
// exact blocking entity, not just a boolean.
type BookingConflict struct {
	Kind          ConflictKind
	ResourceID    string
	EntryID       string
	ReservationID string
	StartTime     time.Time
	EndTime       time.Time
	Reason        string
}

// BookingCheck is the typed outcome of an advisory conflict check.
// Conflicts are expected, user-facing results, never errors.
type BookingCheck struct {
	OK       bool
	Conflict *BookingConflict
}

// CanBook validates a candidate reservation. Checks run in fixed order
// and return on first failure: aircraft conflicts before instructor
// conflicts before operating hours before past-time, matching dispatch
// priority ("is the plane free" first).
//
// The check is advisory; the storage exclusion constraint remains the
// authoritative arbiter under concurrent writers.
func (s *Service) CanBook(ctx context.Context, candidate CandidateBooking) (BookingCheck, error) {
	if err := validateCandidate(candidate); err != nil {
		return BookingCheck{}, err
	}
	start := candidate.StartTime.UTC()
	end := candidate.EndTime.UTC()

	aircraftID := candidate.AircraftID
	aircraftFilter := store.ResourceFilter{ClubID: candidate.ClubID, AircraftID: &aircraftID}
	if conflict, err := s.findAxisConflict(ctx, aircraftFilter, start, end, ConflictAircraft, aircraftID.String()); err != nil {
		return BookingCheck{}, err
	} else if conflict != nil {
		return BookingCheck{Conflict: conflict}, nil
	}

	if candidate.InstructorID != nil && *candidate.InstructorID != "" {
		instructorFilter := store.ResourceFilter{ClubID: candidate.ClubID, UserID: candidate.InstructorID}
		if conflict, err := s.findAxisConflict(ctx, instructorFilter, start, end, ConflictInstructor, *candidate.InstructorID); err != nil {
			return BookingCheck{}, err
		} else if conflict != nil {
			return BookingCheck{Conflict: conflict}, nil
		}
	}

	window, nightFlights, err := s.operatingWindow(ctx, candidate.ClubID, start)
	if err != nil {
		return BookingCheck{}, err
	}
	if !nightFlights && (start.Before(window.Start) || end.After(window.End)) {
		return BookingCheck{Conflict: &BookingConflict{
			Kind:      ConflictOutsideOperatingHours,
			StartTime: window.Start,
			EndTime:   window.End,
		}}, nil
	}

	now := s.now()
	if sameCalendarDay(start, now, window.Start.Location()) && start.Before(now) {
		return BookingCheck{Conflict: &BookingConflict{
			Kind:      ConflictPastTimeSlot,
			StartTime: start,
			EndTime:   end,
		}}, nil
	}

	return BookingCheck{OK: true}, nil
}

// CreateReservation runs the advisory check and persists the booking.
// A storage-level exclusion violation is treated as the authoritative
// conflict signal: the advisory check is re-run to surface a fresh
// typed reason for the lost race.
func (s *Service) CreateReservation(ctx context.Context, candidate CandidateBooking) (domain.Reservation, BookingCheck, error) {
	check, err := s.CanBook(ctx, candidate)
	if err != nil {
		return domain.Reservation{}, BookingCheck{}, err
	}
	if !check.OK {
		return domain.Reservation{}, check, nil
	}

	if strings.TrimSpace(candidate.PilotID) == "" {
		return domain.Reservation{}, BookingCheck{}, validationError("pilot_id is required")
	}

	reservation := domain.Reservation{
		ClubID:       candidate.ClubID,
		AircraftID:   candidate.AircraftID,
		PilotID:      candidate.PilotID,
		InstructorID: candidate.InstructorID,
		StartTime:    candidate.StartTime.UTC(),
		EndTime:      candidate.EndTime.UTC(),
		Status:       domain.ReservationStatusConfirmed,
	}

	key := strings.TrimSpace(candidate.IdempotencyKey)
	if key != "" {
		if len(key) > 256 {
			return domain.Reservation{}, BookingCheck{}, validationError("idempotency_key too long")
		}
		reservation.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("aeroclub:create_reservation:"+candidate.PilotID+":"+key))
	}

	persisted, err := s.repo.CreateReservation(ctx, reservation)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			recheck, recheckErr := s.CanBook(ctx, candidate)
			if recheckErr == nil && recheck.Conflict != nil {
				return domain.Reservation{}, recheck, nil
			}
			// Lost the race to a writer whose row we cannot see yet.
			return domain.Reservation{}, BookingCheck{Conflict: &BookingConflict{
				Kind:       ConflictAircraft,
				ResourceID: candidate.AircraftID.String(),
				StartTime:  candidate.StartTime.UTC(),
				EndTime:    candidate.EndTime.UTC(),
			}}, nil
		}
		return domain.Reservation{}, BookingCheck{}, err
	}

	return persisted, BookingCheck{OK: true}, nil
}

// GenerateSlots enumerates the bookable grid points for the club day
// containing date, bounded by the aeronautical operating window,
// inclusive of both bounds. Recomputed per call; the window depends on
// date and coordinates.
func (s *Service) GenerateSlots(ctx context.Context, clubID uuid.UUID, date time.Time, granularity time.Duration) ([]domain.SlotTime, error) {
	if clubID == uuid.Nil {
		return nil, validationError("club_id is required")
	}
	window, _, err := s.operatingWindow(ctx, clubID, date)
	if err != nil {
		return nil, err
	}
	return window.SlotTimes(granularity), nil
}

// OperatingWindow exposes the computed aeronautical day for UIs that
// render day/night shading alongside the slot grid.
func (s *Service) OperatingWindow(ctx context.Context, clubID uuid.UUID, date time.Time) (domain.OperatingWindow, error) {
	if clubID == uuid.Nil {
		return domain.OperatingWindow{}, validationError("club_id is required")
	}
	window, _, err := s.operatingWindow(ctx, clubID, date)
	return window, err
}

// MergeIntervals collapses externally synced busy periods. Exposed
// standalone for batch jobs that pre-clean calendars before storage.
func (s *Service) MergeIntervals(intervals []domain.Interval) []domain.Interval {
	return domain.MergeIntervals(intervals)
}

func (s *Service) operatingWindow(ctx context.Context, clubID uuid.UUID, date time.Time) (domain.OperatingWindow, bool, error) {
	club, err := s.clubs.GetClub(ctx, clubID)
	if err != nil {
		return domain.OperatingWindow{}, false, err
	}
	loc := clubLocation(club)

	coords, err := s.clubs.GetCoordinates(ctx, clubID)
	if err != nil {
		return domain.OperatingWindow{}, false, err
	}
	nightFlights, err := s.clubs.GetNightFlightsEnabled(ctx, clubID)
	if err != nil {
		return domain.OperatingWindow{}, false, err
	}

	window := domain.ComputeOperatingWindow(date.In(loc), coords, nightFlights, loc)
	return window, nightFlights, nil
}

func (s *Service) findAxisConflict(ctx context.Context, filter store.ResourceFilter, start, end time.Time, kind ConflictKind, resourceID string) (*BookingConflict, error) {
	slots, err := s.ResolveAvailability(ctx, filter, start, end)
	if err != nil {
		return nil, err
	}
	for _, slot := range slots {
		if slot.SlotType != domain.SlotTypeUnavailable && slot.SlotType != domain.SlotTypeReservation {
			continue
		}
		if !domain.Overlaps(slot.StartTime, slot.EndTime, start, end) {
			continue
		}
		return &BookingConflict{
			Kind:          kind,
			ResourceID:    resourceID,
			EntryID:       slot.EntryID,
			ReservationID: slot.ReservationID,
			StartTime:     slot.StartTime,
			EndTime:       slot.EndTime,
			Reason:        slot.Reason,
		}, nil
	}
	return nil, nil
}

func validateCandidate(candidate CandidateBooking) error {
	if candidate.ClubID == uuid.Nil {
		return validationError("club_id is required")
	}
	if candidate.AircraftID == uuid.Nil {
		return validationError("aircraft_id is required")
	}
	if candidate.StartTime.IsZero() || candidate.EndTime.IsZero() {
		return validationError("start_time and end_time are required")
	}
	if !candidate.StartTime.Before(candidate.EndTime) {
		return validationError("end_time must be after start_time")
	}
	return nil
}

func sameCalendarDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
