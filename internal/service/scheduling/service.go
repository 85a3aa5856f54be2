package scheduling

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"aeroclub/backend/internal/domain"
	"aeroclub/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// Service is the scheduling and availability engine. It is stateless:
// every operation is a pure function of its inputs and whatever the
// store collaborators return at call time.
type Service struct {
	repo  store.SchedulingRepository
	clubs store.ClubRepository
	now   func() time.Time
}

func NewService(repo store.SchedulingRepository, clubs store.ClubRepository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, clubs: clubs, now: now}
}

// ResolvedSlot is one typed interval in a resolved availability view.
// Merged external blocks carry no EntryID; reservation slots retain
// aircraft and instructor identity for display and ownership checks.
type ResolvedSlot struct {
	EntryID       string
	ReservationID string
	SlotType      domain.SlotType
	AircraftID    *string
	UserID        *string
	PilotID       string
	StartTime     time.Time
	EndTime       time.Time
	Reason        string
}

// ResolveAvailability returns every availability entry, expanded
// recurrence occurrence and confirmed reservation intersecting
// [windowStart,windowEnd) for the filtered resources, ordered by start
// time. Entries imported from an external calendar sync are merged per
// resource; locally authored entries keep their individual reasons.
//
// The call is read-only and deterministic: identical inputs and store
// contents produce identical output.
func (s *Service) ResolveAvailability(ctx context.Context, filter store.ResourceFilter, windowStart, windowEnd time.Time) ([]ResolvedSlot, error) {
	if filter.ClubID == uuid.Nil {
		return nil, validationError("club_id is required")
	}
	start := windowStart.UTC()
	end := windowEnd.UTC()
	if !start.Before(end) {
		return nil, validationError("window_end must be after window_start")
	}

	club, err := s.clubs.GetClub(ctx, filter.ClubID)
	if err != nil {
		return nil, err
	}
	loc := clubLocation(club)

	entries, err := s.repo.ListAvailabilityEntries(ctx, filter, start, end)
	if err != nil {
		return nil, err
	}
	reservations, err := s.repo.ListReservations(ctx, filter, start, end)
	if err != nil {
		return nil, err
	}

	slots := make([]ResolvedSlot, 0, len(entries)+len(reservations))
	external := make(map[string][]domain.Interval)
	externalTemplate := make(map[string]ResolvedSlot)

	for _, e := range entries {
		if e.IsRecurring {
			pattern := ""
			if e.RecurrencePattern != nil {
				pattern = *e.RecurrencePattern
			}
			rule, err := domain.ParseRecurrencePattern(pattern)
			if err != nil {
				return nil, err
			}
			for _, occ := range domain.ExpandWeekly(e, rule, start, end, loc) {
				slots = append(slots, ResolvedSlot{
					EntryID:    occ.EntryID,
					SlotType:   occ.SlotType,
					AircraftID: occ.AircraftID,
					UserID:     occ.UserID,
					StartTime:  occ.StartTime.UTC(),
					EndTime:    occ.EndTime.UTC(),
					Reason:     occ.Reason,
				})
			}
			continue
		}

		if !domain.Overlaps(e.StartTime, e.EndTime, start, end) {
			continue
		}

		if e.IsExternal() {
			key := externalGroupKey(e)
			external[key] = append(external[key], domain.Interval{
				Start:  e.StartTime.UTC(),
				End:    e.EndTime.UTC(),
				Reason: e.Reason,
			})
			externalTemplate[key] = entrySlot(e)
			continue
		}

		slots = append(slots, entrySlot(e))
	}

	// Map iteration order is random; walk groups sorted so repeated
	// resolutions are byte-identical.
	groupKeys := make([]string, 0, len(external))
	for key := range external {
		groupKeys = append(groupKeys, key)
	}
	sort.Strings(groupKeys)
	for _, key := range groupKeys {
		template := externalTemplate[key]
		for _, merged := range domain.MergeIntervals(external[key]) {
			slots = append(slots, ResolvedSlot{
				SlotType:   template.SlotType,
				AircraftID: template.AircraftID,
				UserID:     template.UserID,
				StartTime:  merged.Start,
				EndTime:    merged.End,
				Reason:     merged.Reason,
			})
		}
	}

	for _, r := range reservations {
		slots = append(slots, reservationSlot(r))
	}

	sort.SliceStable(slots, func(i, j int) bool {
		if !slots[i].StartTime.Equal(slots[j].StartTime) {
			return slots[i].StartTime.Before(slots[j].StartTime)
		}
		return slotSortID(slots[i]) < slotSortID(slots[j])
	})

	return slots, nil
}

func entrySlot(e domain.AvailabilityEntry) ResolvedSlot {
	var aircraftID *string
	if e.AircraftID != nil {
		id := e.AircraftID.String()
		aircraftID = &id
	}
	return ResolvedSlot{
		EntryID:    e.ID.String(),
		SlotType:   e.SlotType,
		AircraftID: aircraftID,
		UserID:     e.UserID,
		StartTime:  e.StartTime.UTC(),
		EndTime:    e.EndTime.UTC(),
		Reason:     e.Reason,
	}
}

func reservationSlot(r domain.Reservation) ResolvedSlot {
	aircraftID := r.AircraftID.String()
	return ResolvedSlot{
		ReservationID: r.ID.String(),
		SlotType:      domain.SlotTypeReservation,
		AircraftID:    &aircraftID,
		UserID:        r.InstructorID,
		PilotID:       r.PilotID,
		StartTime:     r.StartTime.UTC(),
		EndTime:       r.EndTime.UTC(),
	}
}

func externalGroupKey(e domain.AvailabilityEntry) string {
	aircraft := ""
	if e.AircraftID != nil {
		aircraft = e.AircraftID.String()
	}
	user := ""
	if e.UserID != nil {
		user = *e.UserID
	}
	return strings.Join([]string{aircraft, user, string(e.SlotType)}, "|")
}

func slotSortID(s ResolvedSlot) string {
	if s.EntryID != "" {
		return s.EntryID
	}
	if s.ReservationID != "" {
		return s.ReservationID
	}
	key := ""
	if s.AircraftID != nil {
		key += *s.AircraftID
	}
	if s.UserID != nil {
		key += *s.UserID
	}
	return key
}

func clubLocation(club domain.Club) *time.Location {
	if strings.TrimSpace(club.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(club.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
