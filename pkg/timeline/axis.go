package timeline

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Axis padding around the covered days, in seconds.
const (
	StartPadding = 0.1 * 3600
	EndPadding   = 3600

	secondsPerDay = 86400
)

// nowFunc is swapped in tests.
var nowFunc = time.Now

// Granularity selects how tick labels are formatted.
type Granularity int

const (
	GranularityHour Granularity = iota
	GranularityDay
)

func (g Granularity) String() string {
	if g == GranularityDay {
		return "day"
	}
	return "hour"
}

// Layout returns the time layout used for labels at this granularity.
func (g Granularity) Layout() string {
	if g == GranularityDay {
		return "2006-01-02"
	}
	return "01-02 15:04"
}

// TickBoundary is one evenly spaced point on the time axis, in epoch seconds.
type TickBoundary struct {
	Timestamp float64 `json:"timestamp"`
	Label     string  `json:"label"`
}

// Axis is the result of a tick build. Ticks always holds at least two
// boundaries and SegmentDuration is always positive.
type Axis struct {
	Ticks           []TickBoundary `json:"ticks"`
	Granularity     Granularity    `json:"granularity"`
	SegmentDuration float64        `json:"segment_duration"`
}

// Segments returns the number of segments between boundaries.
func (a Axis) Segments() int {
	if len(a.Ticks) == 0 {
		return 0
	}
	return len(a.Ticks) - 1
}

// First returns the first boundary timestamp.
func (a Axis) First() float64 {
	if len(a.Ticks) == 0 {
		return 0
	}
	return a.Ticks[0].Timestamp
}

// Last returns the last boundary timestamp.
func (a Axis) Last() float64 {
	if len(a.Ticks) == 0 {
		return 0
	}
	return a.Ticks[len(a.Ticks)-1].Timestamp
}

// Span returns the covered duration in seconds.
func (a Axis) Span() float64 {
	return a.Last() - a.First()
}

// Contains reports whether t lies within the covered range.
func (a Axis) Contains(t float64) bool {
	return len(a.Ticks) > 0 && t >= a.First() && t <= a.Last()
}

// BuildTicks derives segmentCount+1 evenly spaced boundaries covering every
// calendar day (in loc) touched by times. The range starts StartPadding
// before the first day and ends EndPadding after the last day, so a single
// day still yields a non-degenerate range. Labels are hour level when a
// segment spans at most one day, day level otherwise.
func BuildTicks(times []int64, segmentCount int, loc *time.Location) Axis {
	if loc == nil {
		loc = time.Local
	}
	if segmentCount < 1 {
		segmentCount = 1
	}

	days := distinctDays(times, loc)
	if len(days) == 0 {
		days = distinctDays([]int64{nowFunc().Unix()}, loc)
	}
	firstDay := days[0]
	lastDay := days[len(days)-1].AddDate(0, 0, 1)

	rangeStart := float64(firstDay.Unix()) - StartPadding
	rangeEnd := float64(lastDay.Unix()) + EndPadding
	if rangeEnd <= rangeStart {
		rangeEnd = rangeStart + secondsPerDay
	}

	spanInDays := (rangeEnd - rangeStart) / secondsPerDay
	granularity := GranularityDay
	if spanInDays/float64(segmentCount) <= 1 {
		granularity = GranularityHour
	}

	stamps := floats.Span(make([]float64, segmentCount+1), rangeStart, rangeEnd)
	ticks := make([]TickBoundary, len(stamps))
	for i, ts := range stamps {
		ticks[i] = TickBoundary{
			Timestamp: ts,
			Label:     formatTick(ts, granularity, loc),
		}
	}

	return Axis{
		Ticks:           ticks,
		Granularity:     granularity,
		SegmentDuration: (rangeEnd - rangeStart) / float64(segmentCount),
	}
}

func distinctDays(times []int64, loc *time.Location) []time.Time {
	seen := make(map[int64]bool, len(times))
	var days []time.Time
	for _, ts := range times {
		t := time.Unix(ts, 0).In(loc)
		y, m, d := t.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, loc)
		if seen[day.Unix()] {
			continue
		}
		seen[day.Unix()] = true
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

func formatTick(ts float64, g Granularity, loc *time.Location) string {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9)).In(loc).Format(g.Layout())
}
