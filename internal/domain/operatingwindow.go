package domain

import (
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// Coordinates locates a club's home field.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Valid reports whether the coordinates are within geographic range.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Civil-twilight margin applied on both sides of sunrise/sunset.
const TwilightMargin = 30 * time.Minute

// Fixed operating bounds used when coordinates are unavailable, and the
// clock bounds night-enabled windows are extended to.
const (
	FallbackStartHour = 7
	FallbackEndHour   = 18
	NightEndHour      = 21
)

// OperatingWindow is the legal operating span for one calendar day at
// one location, snapped to the booking grid. Derived per query, never
// persisted.
type OperatingWindow struct {
	Start    time.Time
	End      time.Time
	Sunrise  time.Time
	Sunset   time.Time
	Fallback bool
}

// ComputeOperatingWindow derives the aeronautical day for the date
// containing `date` in loc (UTC when nil).
//
// With usable coordinates the window is sunrise-30m..sunset+30m snapped
// outward to the 15-minute grid; night-enabled clubs are additionally
// guaranteed at least the 07:00..21:00 clock bounds. Missing or
// out-of-range coordinates degrade to fixed bounds instead of failing:
// 07:00..18:00, or 07:00..21:00 when night flights are enabled.
func ComputeOperatingWindow(date time.Time, coords *Coordinates, nightFlightsEnabled bool, loc *time.Location) OperatingWindow {
	if loc == nil {
		loc = time.UTC
	}
	day := date.In(loc)
	year, month, dayOfMonth := day.Date()

	if coords == nil || !coords.Valid() {
		return fallbackWindow(year, month, dayOfMonth, nightFlightsEnabled, loc)
	}

	rise, set := sunrise.SunriseSunset(coords.Latitude, coords.Longitude, year, month, dayOfMonth)
	if rise.IsZero() || set.IsZero() {
		// Polar day or polar night; no usable sun events.
		return fallbackWindow(year, month, dayOfMonth, nightFlightsEnabled, loc)
	}

	w := OperatingWindow{
		Start:   SnapToGrid(rise.Add(-TwilightMargin).In(loc), GridGranularity, SnapFloor),
		End:     SnapToGrid(set.Add(TwilightMargin).In(loc), GridGranularity, SnapCeil),
		Sunrise: rise.In(loc),
		Sunset:  set.In(loc),
	}

	if nightFlightsEnabled {
		clockStart := time.Date(year, month, dayOfMonth, FallbackStartHour, 0, 0, 0, loc)
		clockEnd := time.Date(year, month, dayOfMonth, NightEndHour, 0, 0, 0, loc)
		if clockStart.Before(w.Start) {
			w.Start = clockStart
		}
		if clockEnd.After(w.End) {
			w.End = clockEnd
		}
	}

	return w
}

func fallbackWindow(year int, month time.Month, day int, nightFlightsEnabled bool, loc *time.Location) OperatingWindow {
	endHour := FallbackEndHour
	if nightFlightsEnabled {
		endHour = NightEndHour
	}
	return OperatingWindow{
		Start:    time.Date(year, month, day, FallbackStartHour, 0, 0, 0, loc),
		End:      time.Date(year, month, day, endHour, 0, 0, 0, loc),
		Fallback: true,
	}
}

// IsNight classifies an instant as outside the operating window.
func (w OperatingWindow) IsNight(t time.Time) bool {
	return t.Before(w.Start) || !t.Before(w.End)
}

// IsFirstNightSlot reports whether t is the first night grid slot after
// the operating window, so UIs can render a single dusk marker.
func (w OperatingWindow) IsFirstNightSlot(t time.Time) bool {
	return w.IsNight(t) && !w.IsNight(t.Add(-GridGranularity))
}

// SlotTime is a discrete grid point within an operating window.
type SlotTime struct {
	Hour   int
	Minute int
}

// SlotTimes enumerates every grid point between the window bounds
// inclusive, stepping by granularity (the platform grid when <= 0).
func (w OperatingWindow) SlotTimes(granularity time.Duration) []SlotTime {
	if granularity <= 0 {
		granularity = GridGranularity
	}
	out := make([]SlotTime, 0, 64)
	for t := w.Start; !t.After(w.End); t = t.Add(granularity) {
		out = append(out, SlotTime{Hour: t.Hour(), Minute: t.Minute()})
	}
	return out
}
