package stats

import (
	"math"

	"github.com/2beens/runlog/internal/runstats/datekey"
	"github.com/2beens/runlog/internal/runstats/duration"
	"github.com/2beens/runlog/internal/runstats/runs"
)

const fiveKm = 5.0

// Summary holds the all-time totals and personal bests of a run collection.
type Summary struct {
	TotalRuns           int     `json:"totalRuns"`
	TotalDistanceKm     float64 `json:"totalDistanceKm"`
	TotalSeconds        int     `json:"totalSeconds"`
	TotalTime           string  `json:"totalTime"`
	AvgDistanceKm       float64 `json:"avgDistanceKm"`
	AvgPaceSecondsPerKm float64 `json:"avgPaceSecondsPerKm"`
	AvgPace             string  `json:"avgPace"`
	AvgRunsPerWeek      float64 `json:"avgRunsPerWeek"`
	MaxRunsInWeek       int     `json:"maxRunsInWeek"`

	LongestRunKm            float64 `json:"longestRunKm"`
	FastestPaceSecondsPerKm float64 `json:"fastestPaceSecondsPerKm"`
	FastestPace             string  `json:"fastestPace"`
	// Fastest5kSeconds is estimated from the best pace of runs of at least 5 km; 0 when there is none.
	Fastest5kSeconds int    `json:"fastest5kSeconds"`
	Fastest5k        string `json:"fastest5k,omitempty"`

	FirstRun datekey.CalendarDate `json:"firstRun"`
	LastRun  datekey.CalendarDate `json:"lastRun"`
}

// Summarize computes the totals and personal bests. Malformed records are skipped
// and reported.
func Summarize(records []runs.Run) (Summary, Skipped) {
	sorted, skipped := canonical(records)
	var s Summary
	if len(sorted) == 0 {
		s.TotalTime = duration.FormatElapsed(0)
		s.AvgPace = duration.FormatPace(0)
		s.FastestPace = duration.FormatPace(0)
		return s, skipped
	}

	perWeek := make(map[string]int)
	for _, r := range sorted {
		s.TotalRuns++
		s.TotalDistanceKm += r.DistanceKm
		s.TotalSeconds += r.DurationSeconds
		s.LongestRunKm = math.Max(s.LongestRunKm, r.DistanceKm)
		perWeek[datekey.WeekIdentifier(r.Date)]++

		pace := r.PaceSecondsPerKm()
		if pace <= 0 {
			continue
		}
		if s.FastestPaceSecondsPerKm == 0 || pace < s.FastestPaceSecondsPerKm {
			s.FastestPaceSecondsPerKm = pace
		}
		if r.DistanceKm >= fiveKm {
			estimate := int(math.Round(pace * fiveKm))
			if s.Fastest5kSeconds == 0 || estimate < s.Fastest5kSeconds {
				s.Fastest5kSeconds = estimate
			}
		}
	}

	for _, n := range perWeek {
		if n > s.MaxRunsInWeek {
			s.MaxRunsInWeek = n
		}
	}

	s.FirstRun = sorted[0].Date
	s.LastRun = sorted[len(sorted)-1].Date
	// inclusive span, never less than one week
	weeks := math.Max(1, float64(s.FirstRun.DaysUntil(s.LastRun)+1)/7)
	s.AvgRunsPerWeek = float64(s.TotalRuns) / weeks

	s.AvgDistanceKm = s.TotalDistanceKm / float64(s.TotalRuns)
	s.AvgPaceSecondsPerKm = duration.ComputePace(s.TotalDistanceKm, s.TotalSeconds)
	s.AvgPace = duration.FormatPace(s.AvgPaceSecondsPerKm)
	s.FastestPace = duration.FormatPace(s.FastestPaceSecondsPerKm)
	s.TotalTime = duration.FormatElapsed(s.TotalSeconds)
	if s.Fastest5kSeconds > 0 {
		s.Fastest5k = duration.FormatElapsed(s.Fastest5kSeconds)
	}

	return s, skipped
}
