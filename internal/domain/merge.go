package domain

import (
	"sort"
	"time"
)

// Interval is a busy period with a human-readable reason, typically
// sourced from an external calendar sync.
type Interval struct {
	Start  time.Time
	End    time.Time
	Reason string
}

// MergeIntervals collapses an unordered set of intervals into the
// minimal sorted set of non-overlapping intervals. Touching intervals
// coalesce so that back-to-back imports produce a single block.
// Differing reasons are joined with " + "; identical reasons are kept
// once. Merging an already merged set returns it unchanged.
func MergeIntervals(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].End.Before(sorted[j].End)
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	out := make([]Interval, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if next.Start.After(current.End) {
			out = append(out, current)
			current = next
			continue
		}
		if next.End.After(current.End) {
			current.End = next.End
		}
		if next.Reason != "" && next.Reason != current.Reason {
			if current.Reason == "" {
				current.Reason = next.Reason
			} else {
				current.Reason += " + " + next.Reason
			}
		}
	}
	out = append(out, current)

	return out
}
