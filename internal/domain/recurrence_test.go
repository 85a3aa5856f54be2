package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestParseRecurrencePattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    []time.Weekday
		wantErr bool
	}{
		{
			name:    "single day",
			pattern: "FREQ=WEEKLY;BYDAY=MO",
			want:    []time.Weekday{time.Monday},
		},
		{
			name:    "multiple days sorted monday first",
			pattern: "FREQ=WEEKLY;BYDAY=SU,WE,MO",
			want:    []time.Weekday{time.Monday, time.Wednesday, time.Sunday},
		},
		{
			name:    "duplicates collapsed",
			pattern: "FREQ=WEEKLY;BYDAY=TU,TU,FR",
			want:    []time.Weekday{time.Tuesday, time.Friday},
		},
		{
			name:    "empty byday is valid",
			pattern: "FREQ=WEEKLY;BYDAY=",
			want:    nil,
		},
		{
			name:    "daily frequency rejected",
			pattern: "FREQ=DAILY;BYDAY=MO",
			wantErr: true,
		},
		{
			name:    "unknown weekday code rejected",
			pattern: "FREQ=WEEKLY;BYDAY=MO,XX",
			wantErr: true,
		},
		{
			name:    "garbage rejected",
			pattern: "every monday",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := ParseRecurrencePattern(tt.pattern)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedRecurrencePattern) {
					t.Fatalf("error = %v, want ErrMalformedRecurrencePattern", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRecurrencePattern error: %v", err)
			}
			if len(rule.Days) != len(tt.want) {
				t.Fatalf("days = %v, want %v", rule.Days, tt.want)
			}
			for i, d := range tt.want {
				if rule.Days[i] != d {
					t.Fatalf("days = %v, want %v", rule.Days, tt.want)
				}
			}
		})
	}
}

func TestWeeklyByDay_StringRoundTrip(t *testing.T) {
	rule, err := ParseRecurrencePattern("FREQ=WEEKLY;BYDAY=SU,WE,MO")
	if err != nil {
		t.Fatalf("ParseRecurrencePattern error: %v", err)
	}
	if got := rule.String(); got != "FREQ=WEEKLY;BYDAY=MO,WE,SU" {
		t.Fatalf("String() = %q, want %q", got, "FREQ=WEEKLY;BYDAY=MO,WE,SU")
	}
}

func recurringEntry(t *testing.T) AvailabilityEntry {
	t.Helper()
	pattern := "FREQ=WEEKLY;BYDAY=MO,WE"
	endDate := time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC)
	userID := "instructor-1"
	return AvailabilityEntry{
		ID:                uuid.MustParse("00000000-0000-0000-0000-000000000010"),
		SlotType:          SlotTypeUnavailable,
		UserID:            &userID,
		StartTime:         time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		EndTime:           time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		IsRecurring:       true,
		RecurrencePattern: &pattern,
		RecurrenceEndDate: &endDate,
		Reason:            "ground school",
	}
}

func TestExpandWeekly_MaterializesOccurrencesThroughEndDate(t *testing.T) {
	entry := recurringEntry(t)
	rule, err := ParseRecurrencePattern(*entry.RecurrencePattern)
	if err != nil {
		t.Fatalf("ParseRecurrencePattern error: %v", err)
	}

	windowStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

	occs := ExpandWeekly(entry, rule, windowStart, windowEnd, time.UTC)

	wantDays := []int{1, 3, 8, 10, 15, 17}
	if len(occs) != len(wantDays) {
		t.Fatalf("len(occs) = %d, want %d", len(occs), len(wantDays))
	}
	for i, day := range wantDays {
		wantStart := time.Date(2024, 1, day, 9, 0, 0, 0, time.UTC)
		if !occs[i].StartTime.Equal(wantStart) {
			t.Fatalf("occ[%d].StartTime = %v, want %v", i, occs[i].StartTime, wantStart)
		}
		if got := occs[i].EndTime.Sub(occs[i].StartTime); got != time.Hour {
			t.Fatalf("occ[%d] duration = %v, want 1h", i, got)
		}
		if occs[i].SlotType != SlotTypeUnavailable {
			t.Fatalf("occ[%d].SlotType = %q, want %q", i, occs[i].SlotType, SlotTypeUnavailable)
		}
		if occs[i].Reason != "ground school" {
			t.Fatalf("occ[%d].Reason = %q", i, occs[i].Reason)
		}
	}
}

func TestExpandWeekly_BoundedByQueryWindow(t *testing.T) {
	entry := recurringEntry(t)
	entry.RecurrenceEndDate = nil
	rule, err := ParseRecurrencePattern(*entry.RecurrencePattern)
	if err != nil {
		t.Fatalf("ParseRecurrencePattern error: %v", err)
	}

	windowStart := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)

	occs := ExpandWeekly(entry, rule, windowStart, windowEnd, time.UTC)
	if len(occs) != 2 {
		t.Fatalf("len(occs) = %d, want 2", len(occs))
	}
	for _, o := range occs {
		if !o.StartTime.Before(windowEnd) || !o.EndTime.After(windowStart) {
			t.Fatalf("occurrence outside window: %v..%v", o.StartTime, o.EndTime)
		}
	}
}

func TestExpandWeekly_NoOccurrencesBeforeAnchor(t *testing.T) {
	entry := recurringEntry(t)
	rule, err := ParseRecurrencePattern(*entry.RecurrencePattern)
	if err != nil {
		t.Fatalf("ParseRecurrencePattern error: %v", err)
	}

	windowStart := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	occs := ExpandWeekly(entry, rule, windowStart, windowEnd, time.UTC)
	if len(occs) != 1 {
		t.Fatalf("len(occs) = %d, want 1", len(occs))
	}
	if got := occs[0].StartTime; !got.Equal(entry.StartTime) {
		t.Fatalf("first occurrence = %v, want anchor %v", got, entry.StartTime)
	}
}

func TestExpandWeekly_EmptyRuleExpandsToNothing(t *testing.T) {
	entry := recurringEntry(t)
	occs := ExpandWeekly(entry, WeeklyByDay{}, entry.StartTime, entry.StartTime.AddDate(0, 1, 0), time.UTC)
	if len(occs) != 0 {
		t.Fatalf("len(occs) = %d, want 0", len(occs))
	}
}

func TestExpandWeekly_PartialWindowOverlapIncluded(t *testing.T) {
	entry := recurringEntry(t)
	rule, err := ParseRecurrencePattern(*entry.RecurrencePattern)
	if err != nil {
		t.Fatalf("ParseRecurrencePattern error: %v", err)
	}

	// Window covers only the last half hour of the Monday occurrence.
	windowStart := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	windowEnd := time.Date(2024, 1, 1, 9, 45, 0, 0, time.UTC)

	occs := ExpandWeekly(entry, rule, windowStart, windowEnd, time.UTC)
	if len(occs) != 1 {
		t.Fatalf("len(occs) = %d, want 1", len(occs))
	}
}

func TestExpandWeekly_DSTKeepsLocalClockTime(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Fatalf("LoadLocation error: %v", err)
	}

	pattern := "FREQ=WEEKLY;BYDAY=SU"
	entry := AvailabilityEntry{
		ID:                uuid.MustParse("00000000-0000-0000-0000-000000000011"),
		SlotType:          SlotTypeUnavailable,
		StartTime:         time.Date(2024, 3, 24, 9, 0, 0, 0, loc),
		EndTime:           time.Date(2024, 3, 24, 11, 0, 0, 0, loc),
		IsRecurring:       true,
		RecurrencePattern: &pattern,
	}
	rule, err := ParseRecurrencePattern(pattern)
	if err != nil {
		t.Fatalf("ParseRecurrencePattern error: %v", err)
	}

	// The window spans the spring DST transition (2024-03-31 in Paris).
	windowStart := time.Date(2024, 3, 24, 0, 0, 0, 0, loc)
	windowEnd := time.Date(2024, 4, 8, 0, 0, 0, 0, loc)

	occs := ExpandWeekly(entry, rule, windowStart, windowEnd, loc)
	if len(occs) != 3 {
		t.Fatalf("len(occs) = %d, want 3", len(occs))
	}
	for _, o := range occs {
		if got := o.StartTime.In(loc).Hour(); got != 9 {
			t.Fatalf("local start hour = %d, want 9 (start=%v)", got, o.StartTime)
		}
	}
}
