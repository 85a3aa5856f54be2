package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// RecurrencePatternPrefix is the only recurrence encoding the platform
// stores. It is a closed weekly-by-day shape, not general RFC 5545.
const RecurrencePatternPrefix = "FREQ=WEEKLY;BYDAY="

var ErrMalformedRecurrencePattern = errors.New("malformed recurrence pattern")

var weekdayCodes = map[string]time.Weekday{
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
	"SU": time.Sunday,
}

var weekdayNames = map[time.Weekday]string{
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
	time.Sunday:    "SU",
}

// WeeklyByDay is the parsed form of a recurrence pattern: the set of
// weekdays an entry repeats on. Patterns are parsed once at the
// repository boundary; the rest of the engine only sees this type.
type WeeklyByDay struct {
	Days []time.Weekday
}

// ParseRecurrencePattern parses "FREQ=WEEKLY;BYDAY=MO,WE,..". An empty
// BYDAY list is valid and expands to no occurrences; unknown weekday
// codes or a different FREQ are rejected.
func ParseRecurrencePattern(pattern string) (WeeklyByDay, error) {
	trimmed := strings.TrimSpace(pattern)
	if !strings.HasPrefix(trimmed, RecurrencePatternPrefix) {
		return WeeklyByDay{}, fmt.Errorf("%w: %q", ErrMalformedRecurrencePattern, pattern)
	}

	byDay := strings.TrimPrefix(trimmed, RecurrencePatternPrefix)
	if byDay == "" {
		return WeeklyByDay{}, nil
	}

	seen := make(map[time.Weekday]struct{}, 7)
	days := make([]time.Weekday, 0, 7)
	for _, code := range strings.Split(byDay, ",") {
		day, ok := weekdayCodes[strings.TrimSpace(code)]
		if !ok {
			return WeeklyByDay{}, fmt.Errorf("%w: unknown weekday %q", ErrMalformedRecurrencePattern, code)
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}

	sort.Slice(days, func(i, j int) bool {
		return mondayFirst(days[i]) < mondayFirst(days[j])
	})

	return WeeklyByDay{Days: days}, nil
}

// Contains reports whether day is part of the rule.
func (r WeeklyByDay) Contains(day time.Weekday) bool {
	for _, d := range r.Days {
		if d == day {
			return true
		}
	}
	return false
}

// String re-encodes the rule in its stored textual form.
func (r WeeklyByDay) String() string {
	codes := make([]string, 0, len(r.Days))
	for _, d := range r.Days {
		codes = append(codes, weekdayNames[d])
	}
	return RecurrencePatternPrefix + strings.Join(codes, ",")
}

func mondayFirst(day time.Weekday) int {
	if day == time.Sunday {
		return 7
	}
	return int(day)
}

// Occurrence is one materialized instance of a recurring availability
// entry for a specific date. Occurrences are derived per query and
// never persisted.
type Occurrence struct {
	EntryID    string
	SlotType   SlotType
	AircraftID *string
	UserID     *string
	Date       time.Time
	StartTime  time.Time
	EndTime    time.Time
	Reason     string
}

// ExpandWeekly materializes the occurrences of a recurring entry that
// intersect the half-open window [windowStart,windowEnd).
//
// The entry's start/end define only the time of day and the earliest
// recurrence date; the recurrence end date is an inclusive day bound.
// Dates are evaluated in loc (UTC when nil), so occurrences track local
// clock time across DST transitions.
func ExpandWeekly(entry AvailabilityEntry, rule WeeklyByDay, windowStart, windowEnd time.Time, loc *time.Location) []Occurrence {
	if loc == nil {
		loc = time.UTC
	}
	if len(rule.Days) == 0 || !windowStart.Before(windowEnd) {
		return nil
	}

	anchor := entry.StartTime.In(loc)
	duration := entry.EndTime.Sub(entry.StartTime)
	if duration <= 0 {
		return nil
	}

	anchorDate := startOfDay(anchor)
	date := startOfDay(windowStart.In(loc))
	if date.Before(anchorDate) {
		date = anchorDate
	}

	var endDate time.Time
	if entry.RecurrenceEndDate != nil {
		endDate = startOfDay(entry.RecurrenceEndDate.In(loc))
	}

	out := make([]Occurrence, 0, 8)
	for date.Before(windowEnd) {
		if !endDate.IsZero() && date.After(endDate) {
			break
		}
		if rule.Contains(date.Weekday()) {
			start := time.Date(date.Year(), date.Month(), date.Day(),
				anchor.Hour(), anchor.Minute(), anchor.Second(), anchor.Nanosecond(), loc)
			end := start.Add(duration)
			if Overlaps(start, end, windowStart, windowEnd) {
				out = append(out, Occurrence{
					EntryID:    entry.ID.String(),
					SlotType:   entry.SlotType,
					AircraftID: uuidPtrToString(entry.AircraftID),
					UserID:     entry.UserID,
					Date:       date,
					StartTime:  start,
					EndTime:    end,
					Reason:     entry.Reason,
				})
			}
		}
		date = date.AddDate(0, 0, 1)
	}

	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
