package stats

import (
	"math"
	"sort"

	"github.com/2beens/runlog/internal/runstats/datekey"
	"github.com/2beens/runlog/internal/runstats/duration"
	"github.com/2beens/runlog/internal/runstats/runs"
)

// WeekBucket holds the totals of one ISO week. It is derived on every call and never stored.
type WeekBucket struct {
	WeekID              string               `json:"weekId"`
	WeekStart           datekey.CalendarDate `json:"weekStart"`
	Runs                int                  `json:"runs"`
	TotalDistanceKm     float64              `json:"totalDistanceKm"`
	TotalSeconds        int                  `json:"totalSeconds"`
	AvgPaceSecondsPerKm float64              `json:"avgPaceSecondsPerKm"`
	AvgPace             string               `json:"avgPace"`
}

// Skipped reports the records an aggregation left out because they were malformed.
type Skipped struct {
	Count  int   `json:"count"`
	RunIDs []int `json:"runIds,omitempty"`
}

func (s *Skipped) add(runID int) {
	s.Count++
	s.RunIDs = append(s.RunIDs, runID)
}

// usable reports whether a record can take part in an aggregation.
func usable(r runs.Run) bool {
	if !r.Date.Valid() {
		return false
	}
	if math.IsNaN(r.DistanceKm) || math.IsInf(r.DistanceKm, 0) || r.DistanceKm < 0 {
		return false
	}
	return r.DurationSeconds >= 0
}

// canonical returns the usable records sorted by (date, id, distance, seconds), so
// float sums come out the same whatever order the input was in.
func canonical(records []runs.Run) ([]runs.Run, Skipped) {
	var skipped Skipped
	sorted := make([]runs.Run, 0, len(records))
	for _, r := range records {
		if !usable(r) {
			skipped.add(r.ID)
			continue
		}
		sorted = append(sorted, r)
	}
	sort.Ints(skipped.RunIDs)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if c := a.Date.Compare(b.Date); c != 0 {
			return c < 0
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm
		}
		return a.DurationSeconds < b.DurationSeconds
	})
	return sorted, skipped
}

// accumulate sums records that are already in canonical order.
func accumulate(weekID string, records []runs.Run) WeekBucket {
	b := WeekBucket{WeekID: weekID}
	if start, err := datekey.WeekStart(weekID); err == nil {
		b.WeekStart = start
	}
	for _, r := range records {
		b.Runs++
		b.TotalDistanceKm += r.DistanceKm
		b.TotalSeconds += r.DurationSeconds
	}
	b.AvgPaceSecondsPerKm = duration.ComputePace(b.TotalDistanceKm, b.TotalSeconds)
	b.AvgPace = duration.FormatPace(b.AvgPaceSecondsPerKm)
	return b
}

// BucketByWeek groups the records by ISO week. It is pure: the input order does not
// matter and calling it again on the same records gives identical buckets.
func BucketByWeek(records []runs.Run) (map[string]WeekBucket, Skipped) {
	sorted, skipped := canonical(records)

	byWeek := make(map[string][]runs.Run)
	for _, r := range sorted {
		weekID := datekey.WeekIdentifier(r.Date)
		byWeek[weekID] = append(byWeek[weekID], r)
	}

	buckets := make(map[string]WeekBucket, len(byWeek))
	for weekID, weekRuns := range byWeek {
		buckets[weekID] = accumulate(weekID, weekRuns)
	}
	return buckets, skipped
}

// SortedBuckets returns the buckets ordered by week, oldest first.
func SortedBuckets(buckets map[string]WeekBucket) []WeekBucket {
	list := make([]WeekBucket, 0, len(buckets))
	for _, b := range buckets {
		list = append(list, b)
	}
	// "YYYY-Www" sorts lexically
	sort.Slice(list, func(i, j int) bool {
		return list[i].WeekID < list[j].WeekID
	})
	return list
}

// FillGaps inserts empty buckets for the weeks with no runs between the first and
// the last bucket, so a chart series has one point per week.
func FillGaps(sorted []WeekBucket) []WeekBucket {
	if len(sorted) < 2 {
		return sorted
	}

	filled := make([]WeekBucket, 0, len(sorted))
	for i, b := range sorted {
		filled = append(filled, b)
		if i == len(sorted)-1 {
			break
		}
		next := sorted[i+1].WeekID
		weekID, err := datekey.NextWeekIdentifier(b.WeekID)
		for err == nil && weekID < next {
			filled = append(filled, accumulate(weekID, nil))
			weekID, err = datekey.NextWeekIdentifier(weekID)
		}
	}
	return filled
}
