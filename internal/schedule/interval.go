package schedule

import (
	"sort"
	"time"
)

// Interval is a half-open time span [Start, End). Touching intervals do not
// overlap: a 2:00-3:00 slot does not conflict with a 3:00-4:00 slot.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsValid reports whether the interval has positive length.
func (iv Interval) IsValid() bool {
	return iv.End.After(iv.Start)
}

// Duration returns the interval length.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether two half-open intervals intersect.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether other lies entirely within iv.
func (iv Interval) Contains(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

// WithinAny reports whether iv fits entirely inside one of the given
// intervals. The candidates are expected to be disjoint, so spanning two of
// them is never a fit.
func WithinAny(iv Interval, candidates []Interval) bool {
	for _, c := range candidates {
		if c.Contains(iv) {
			return true
		}
	}
	return false
}

// Merge sorts the given intervals by start and unions overlapping or touching
// ones, so downstream subtraction never double-counts excluded time.
func Merge(intervals []Interval) []Interval {
	valid := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.IsValid() {
			valid = append(valid, iv)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].Start.Before(valid[j].Start) })

	merged := []Interval{valid[0]}
	for _, iv := range valid[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Subtract removes the given blocks from the open interval and returns the
// remaining sorted, non-overlapping spans. Blocks are merged first, so
// overlapping or out-of-order definitions are handled as a union.
func Subtract(open Interval, blocks []Interval) []Interval {
	if !open.IsValid() {
		return nil
	}
	var result []Interval
	cursor := open.Start
	for _, b := range Merge(blocks) {
		if !b.Overlaps(open) {
			continue
		}
		if b.Start.After(cursor) {
			result = append(result, Interval{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}
	if cursor.Before(open.End) {
		result = append(result, Interval{Start: cursor, End: open.End})
	}
	return result
}
