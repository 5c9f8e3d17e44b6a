package stats

import (
	"fmt"

	"github.com/2beens/runlog/internal/runstats/datekey"
	"github.com/2beens/runlog/internal/runstats/duration"
	"github.com/2beens/runlog/internal/runstats/runs"
)

type Metric string

const (
	MetricDistance Metric = "distance"
	MetricPace     Metric = "pace"
)

// TrendResult compares one metric of the current week against the previous ISO week.
// When HasBaseline is false, Delta is a placeholder and must not be shown as a change.
type TrendResult struct {
	Metric        Metric  `json:"metric"`
	CurrentValue  float64 `json:"currentValue"`
	Current       string  `json:"current"`
	PreviousValue float64 `json:"previousValue"`
	Delta         float64 `json:"delta"`
	IsImprovement bool    `json:"isImprovement"`
	HasBaseline   bool    `json:"hasBaseline"`
}

type Trend struct {
	CurrentWeekID  string      `json:"currentWeekId"`
	PreviousWeekID string      `json:"previousWeekId"`
	CurrentWeek    WeekBucket  `json:"currentWeek"`
	PreviousWeek   WeekBucket  `json:"previousWeek"`
	Distance       TrendResult `json:"distance"`
	Pace           TrendResult `json:"pace"`
}

// ComputeTrend compares the week of the latest record with the ISO week before it.
// Returns nil when there is no usable record.
func ComputeTrend(records []runs.Run) (*Trend, Skipped) {
	sorted, skipped := canonical(records)
	if len(sorted) == 0 {
		return nil, skipped
	}

	currentWeekID := datekey.WeekIdentifier(sorted[len(sorted)-1].Date)
	// an id built by WeekIdentifier always parses; on error no record matches and
	// the trend simply has no baseline
	previousWeekID, _ := datekey.PreviousWeekIdentifier(currentWeekID)

	var current, previous []runs.Run
	for _, r := range sorted {
		switch datekey.WeekIdentifier(r.Date) {
		case currentWeekID:
			current = append(current, r)
		case previousWeekID:
			previous = append(previous, r)
		}
	}

	cur := accumulate(currentWeekID, current)
	prev := accumulate(previousWeekID, previous)

	return &Trend{
		CurrentWeekID:  currentWeekID,
		PreviousWeekID: previousWeekID,
		CurrentWeek:    cur,
		PreviousWeek:   prev,
		Distance:       distanceTrend(cur, prev),
		Pace:           paceTrend(cur, prev),
	}, skipped
}

func distanceTrend(cur, prev WeekBucket) TrendResult {
	t := TrendResult{
		Metric:        MetricDistance,
		CurrentValue:  cur.TotalDistanceKm,
		Current:       fmt.Sprintf("%.1f", cur.TotalDistanceKm),
		PreviousValue: prev.TotalDistanceKm,
		HasBaseline:   prev.TotalDistanceKm > 0,
	}
	if t.HasBaseline {
		t.Delta = cur.TotalDistanceKm - prev.TotalDistanceKm
	}
	// more distance is better, a tie counts as improvement
	t.IsImprovement = t.Delta >= 0
	return t
}

func paceTrend(cur, prev WeekBucket) TrendResult {
	t := TrendResult{
		Metric:        MetricPace,
		CurrentValue:  cur.AvgPaceSecondsPerKm,
		Current:       duration.FormatPace(cur.AvgPaceSecondsPerKm),
		PreviousValue: prev.AvgPaceSecondsPerKm,
		HasBaseline:   prev.AvgPaceSecondsPerKm > 0,
	}
	if cur.AvgPaceSecondsPerKm > 0 && prev.AvgPaceSecondsPerKm > 0 {
		t.Delta = cur.AvgPaceSecondsPerKm - prev.AvgPaceSecondsPerKm
	}
	// lower pace is faster, a tie counts as improvement
	t.IsImprovement = t.Delta <= 0
	return t
}
