package domain

import "time"

// GridGranularity is the booking grid step shared by slot generation,
// operating-window snapping and the planning UI.
const GridGranularity = 15 * time.Minute

type SnapDirection int

const (
	SnapFloor SnapDirection = iota
	SnapCeil
)

// SnapToGrid rounds t to a grid boundary of the given granularity.
// SnapFloor rounds down, SnapCeil rounds up; instants already on a
// boundary are returned unchanged.
func SnapToGrid(t time.Time, granularity time.Duration, direction SnapDirection) time.Time {
	if granularity <= 0 {
		return t
	}
	snapped := t.Truncate(granularity)
	if direction == SnapCeil && snapped.Before(t) {
		snapped = snapped.Add(granularity)
	}
	return snapped
}

// Overlaps reports whether the half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Contains reports whether t falls within the half-open window
// [windowStart,windowEnd).
func Contains(windowStart, windowEnd, t time.Time) bool {
	return !t.Before(windowStart) && t.Before(windowEnd)
}
