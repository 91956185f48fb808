package timeslot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ivs(pairs ...[2]int) []Interval {
	out := make([]Interval, len(pairs))
	for i, p := range pairs {
		out[i] = Interval{Start: p[0], End: p[1]}
	}
	return out
}

func TestMerge(t *testing.T) {
	cases := []struct {
		name string
		in   []Interval
		want []Interval
	}{
		{
			name: "empty",
			in:   nil,
			want: nil,
		},
		{
			name: "single",
			in:   ivs([2]int{600, 660}),
			want: ivs([2]int{600, 660}),
		},
		{
			name: "overlap coalesced",
			in:   ivs([2]int{840, 930}, [2]int{900, 960}, [2]int{1080, 1140}),
			want: ivs([2]int{840, 960}, [2]int{1080, 1140}),
		},
		{
			name: "adjacent coalesced",
			in:   ivs([2]int{600, 660}, [2]int{660, 720}),
			want: ivs([2]int{600, 720}),
		},
		{
			name: "unordered input",
			in:   ivs([2]int{1080, 1140}, [2]int{600, 660}, [2]int{630, 700}),
			want: ivs([2]int{600, 700}, [2]int{1080, 1140}),
		},
		{
			name: "contained interval absorbed",
			in:   ivs([2]int{600, 900}, [2]int{660, 720}),
			want: ivs([2]int{600, 900}),
		},
		{
			name: "degenerate pairs discarded",
			in:   ivs([2]int{600, 600}, [2]int{700, 650}, [2]int{800, 860}),
			want: ivs([2]int{800, 860}),
		},
		{
			name: "out of day range discarded",
			in:   ivs([2]int{-10, 60}, [2]int{1400, 1500}, [2]int{600, 660}),
			want: ivs([2]int{600, 660}),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Merge(tc.in)
			assert.Equal(t, tc.want, got)

			// A second pass over merged output must change nothing.
			assert.Equal(t, got, Merge(got), "merge must be idempotent")
		})
	}
}

func TestMergeClock(t *testing.T) {
	got := MergeClock([][2]string{
		{"14:00", "15:30"},
		{"15:00", "16:00"},
		{"18:00", "19:00"},
	})
	assert.Equal(t, []string{"14:00-16:00", "18:00-19:00"}, got)
}

func TestMergeClockDiscardsInvalidPairs(t *testing.T) {
	got := MergeClock([][2]string{
		{"bad", "10:00"},
		{"10:00", "10:00"},
		{"17:00", "09:00"},
		{"09:00", "10:00"},
	})
	assert.Equal(t, []string{"09:00-10:00"}, got)
}

func TestMergeClockEmpty(t *testing.T) {
	assert.Nil(t, MergeClock(nil))
	assert.Nil(t, MergeClock([][2]string{{"10:00", "09:00"}}))
}
