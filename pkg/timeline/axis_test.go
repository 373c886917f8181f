package timeline

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestBuildTicks_SingleDayRange(t *testing.T) {
	axis := BuildTicks([]int64{at(10, 0), at(10, 30)}, 10, time.UTC)

	if got := len(axis.Ticks); got != 11 {
		t.Fatalf("expected 11 boundaries, got %d", got)
	}
	wantStart := float64(day0.Unix()) - StartPadding
	wantEnd := float64(day0.AddDate(0, 0, 1).Unix()) + EndPadding
	if !approx(axis.First(), wantStart, 1e-6) {
		t.Errorf("first = %v, want %v", axis.First(), wantStart)
	}
	if !approx(axis.Last(), wantEnd, 1e-6) {
		t.Errorf("last = %v, want %v", axis.Last(), wantEnd)
	}
	if !approx(axis.SegmentDuration, (wantEnd-wantStart)/10, 1e-6) {
		t.Errorf("segment duration = %v", axis.SegmentDuration)
	}
	if axis.Granularity != GranularityHour {
		t.Errorf("expected hour granularity, got %s", axis.Granularity)
	}
	if axis.Ticks[0].Label != "12-31 23:54" {
		t.Errorf("unexpected first label %q", axis.Ticks[0].Label)
	}
}

func TestBuildTicks_GranularitySwitch(t *testing.T) {
	tests := []struct {
		name     string
		times    []int64
		segments int
		want     Granularity
	}{
		// one day spans ~1.05 days, so a single segment exceeds a day
		{"one day one segment", []int64{at(3, 0)}, 1, GranularityDay},
		{"one day two segments", []int64{at(3, 0)}, 2, GranularityHour},
		{"month few segments", []int64{at(1, 0), day0.AddDate(0, 0, 29).Unix()}, 3, GranularityDay},
		{"month many segments", []int64{at(1, 0), day0.AddDate(0, 0, 29).Unix()}, 40, GranularityHour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			axis := BuildTicks(tt.times, tt.segments, time.UTC)
			if axis.Granularity != tt.want {
				t.Errorf("granularity = %s, want %s", axis.Granularity, tt.want)
			}
			wantLen := len(axis.Ticks[0].Label)
			if tt.want == GranularityDay && wantLen != len("2006-01-02") {
				t.Errorf("day label %q has wrong layout", axis.Ticks[0].Label)
			}
		})
	}
}

func TestBuildTicks_DegenerateInput(t *testing.T) {
	orig := nowFunc
	nowFunc = func() time.Time { return day0.Add(5 * time.Hour) }
	defer func() { nowFunc = orig }()

	for _, segments := range []int{-3, 0, 1} {
		axis := BuildTicks(nil, segments, time.UTC)
		if len(axis.Ticks) != 2 {
			t.Errorf("segments=%d: expected 2 boundaries, got %d", segments, len(axis.Ticks))
		}
		if axis.SegmentDuration <= 0 {
			t.Errorf("segments=%d: non-positive segment duration %v", segments, axis.SegmentDuration)
		}
	}

	// identical timestamps still produce a padded range
	axis := BuildTicks([]int64{at(8, 0), at(8, 0), at(8, 0)}, 5, time.UTC)
	if axis.Span() <= 0 {
		t.Fatalf("expected a non-zero span, got %v", axis.Span())
	}
}

func TestBuildTicks_EvenSpacing(t *testing.T) {
	axis := BuildTicks([]int64{at(0, 0), day0.AddDate(0, 0, 3).Unix()}, 7, time.UTC)
	for i := 1; i < len(axis.Ticks); i++ {
		step := axis.Ticks[i].Timestamp - axis.Ticks[i-1].Timestamp
		if !approx(step, axis.SegmentDuration, 1e-3) {
			t.Fatalf("segment %d has width %v, want %v", i, step, axis.SegmentDuration)
		}
	}
}

func TestBuildTicks_Coverage(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := day0.Unix()
		times := rapid.SliceOfN(rapid.Int64Range(base, base+90*86400), 1, 50).Draw(t, "times")
		segments := rapid.IntRange(1, 60).Draw(t, "segments")

		axis := BuildTicks(times, segments, time.UTC)

		lo, hi := times[0], times[0]
		for _, ts := range times {
			lo = min(lo, ts)
			hi = max(hi, ts)
		}
		if axis.First() > float64(lo) {
			t.Fatalf("first tick %v after earliest record %d", axis.First(), lo)
		}
		if axis.Last() < float64(hi) {
			t.Fatalf("last tick %v before latest record %d", axis.Last(), hi)
		}
		if len(axis.Ticks) != segments+1 {
			t.Fatalf("expected %d boundaries, got %d", segments+1, len(axis.Ticks))
		}
	})
}
