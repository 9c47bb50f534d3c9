package schedule

import (
	"testing"
	"time"
)

func at(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2026-03-10 "+hhmm)
	if err != nil {
		panic(err)
	}
	return t
}

func span(start, end string) Interval {
	return Interval{Start: at(start), End: at(end)}
}

func TestOverlapsHalfOpen(t *testing.T) {
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"disjoint", span("09:00", "10:00"), span("11:00", "12:00"), false},
		{"touching endpoints do not overlap", span("14:00", "15:00"), span("15:00", "16:00"), false},
		{"touching reversed", span("15:00", "16:00"), span("14:00", "15:00"), false},
		{"partial overlap", span("14:00", "15:00"), span("14:30", "15:30"), true},
		{"contained", span("14:00", "16:00"), span("14:30", "15:00"), true},
		{"identical", span("14:00", "15:00"), span("14:00", "15:00"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Overlaps(tc.b); got != tc.want {
				t.Errorf("Overlaps = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMergeUnionsOverlappingAndTouching(t *testing.T) {
	merged := Merge([]Interval{
		span("13:00", "14:00"),
		span("09:00", "10:30"),
		span("10:00", "11:00"),
		span("11:00", "11:30"),
	})
	want := []Interval{span("09:00", "11:30"), span("13:00", "14:00")}
	if len(merged) != len(want) {
		t.Fatalf("got %d intervals, want %d: %+v", len(merged), len(want), merged)
	}
	for i := range want {
		if !merged[i].Start.Equal(want[i].Start) || !merged[i].End.Equal(want[i].End) {
			t.Errorf("interval %d = %v, want %v", i, merged[i], want[i])
		}
	}
}

func TestMergeDropsInvalidIntervals(t *testing.T) {
	merged := Merge([]Interval{span("10:00", "10:00"), span("12:00", "11:00")})
	if merged != nil {
		t.Fatalf("expected no intervals, got %+v", merged)
	}
}

func TestSubtract(t *testing.T) {
	cases := []struct {
		name   string
		open   Interval
		blocks []Interval
		want   []Interval
	}{
		{
			name:   "single middle block",
			open:   span("09:00", "18:00"),
			blocks: []Interval{span("12:00", "13:00")},
			want:   []Interval{span("09:00", "12:00"), span("13:00", "18:00")},
		},
		{
			name:   "overlapping blocks counted once",
			open:   span("09:00", "18:00"),
			blocks: []Interval{span("12:00", "13:00"), span("12:30", "13:30")},
			want:   []Interval{span("09:00", "12:00"), span("13:30", "18:00")},
		},
		{
			name:   "block extends past opening",
			open:   span("09:00", "18:00"),
			blocks: []Interval{span("17:00", "19:00")},
			want:   []Interval{span("09:00", "17:00")},
		},
		{
			name:   "block covers whole day",
			open:   span("09:00", "18:00"),
			blocks: []Interval{span("08:00", "19:00")},
			want:   nil,
		},
		{
			name:   "block outside opening ignored",
			open:   span("09:00", "18:00"),
			blocks: []Interval{span("19:00", "20:00")},
			want:   []Interval{span("09:00", "18:00")},
		},
		{
			name: "no blocks",
			open: span("09:00", "18:00"),
			want: []Interval{span("09:00", "18:00")},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Subtract(tc.open, tc.blocks)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d intervals %+v, want %d", len(got), got, len(tc.want))
			}
			for i := range tc.want {
				if !got[i].Start.Equal(tc.want[i].Start) || !got[i].End.Equal(tc.want[i].End) {
					t.Errorf("interval %d = %v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestWithinAny(t *testing.T) {
	opens := []Interval{span("09:00", "12:00"), span("13:00", "18:00")}
	if !WithinAny(span("09:00", "12:00"), opens) {
		t.Error("exact fit should be within")
	}
	if !WithinAny(span("13:30", "14:15"), opens) {
		t.Error("contained span should be within")
	}
	if WithinAny(span("11:30", "13:30"), opens) {
		t.Error("span bridging the gap should not be within")
	}
	if WithinAny(span("08:00", "09:30"), opens) {
		t.Error("span starting before opening should not be within")
	}
}
