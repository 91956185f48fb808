package timeslot

import (
	"fmt"
	"sort"
)

// Interval is a pair of minutes-since-midnight bounds with start < end.
type Interval struct {
	Start int
	End   int
}

// String renders the interval as "HH:MM-HH:MM".
func (iv Interval) String() string {
	return fmt.Sprintf("%s-%s", FormatClock(iv.Start), FormatClock(iv.End))
}

// Merge collapses an unordered list of intervals into the minimal ordered
// list of disjoint intervals. Pairs with end <= start are discarded.
// Overlapping and adjacent intervals are coalesced; gaps are preserved.
// Merge is idempotent: merging an already-merged list returns it unchanged.
func Merge(intervals []Interval) []Interval {
	valid := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.End > iv.Start && iv.Start >= 0 && iv.End <= MinutesPerDay {
			valid = append(valid, iv)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	sort.Slice(valid, func(i, j int) bool {
		if valid[i].Start != valid[j].Start {
			return valid[i].Start < valid[j].Start
		}
		return valid[i].End < valid[j].End
	})

	merged := valid[:1]
	for _, iv := range valid[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// MergeClock merges (start, end) HH:MM pairs and formats the result as
// "HH:MM-HH:MM" strings. Pairs that fail IsRange are discarded.
func MergeClock(pairs [][2]string) []string {
	intervals := make([]Interval, 0, len(pairs))
	for _, p := range pairs {
		if !IsRange(p[0], p[1]) {
			continue
		}
		s, _ := ParseClock(p[0])
		e, _ := ParseClock(p[1])
		intervals = append(intervals, Interval{Start: s, End: e})
	}

	merged := Merge(intervals)
	if len(merged) == 0 {
		return nil
	}
	out := make([]string, len(merged))
	for i, iv := range merged {
		out[i] = iv.String()
	}
	return out
}
