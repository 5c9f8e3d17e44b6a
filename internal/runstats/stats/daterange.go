package stats

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/2beens/runlog/internal/runstats/datekey"
	"github.com/2beens/runlog/internal/runstats/runs"
)

var ErrUnknownRange = errors.New("unknown date range")

type DateRange string

const (
	RangeAll        DateRange = "all"
	RangeLast4Weeks DateRange = "last4weeks"
	RangeMonthly    DateRange = "monthly"
	RangeQuarterly  DateRange = "quarterly"
	RangeYearly     DateRange = "yearly"
)

// ParseDateRange accepts the range names; empty means all.
func ParseDateRange(s string) (DateRange, error) {
	switch r := DateRange(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RangeAll, nil
	case RangeAll, RangeLast4Weeks, RangeMonthly, RangeQuarterly, RangeYearly:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRange, s)
	}
}

// Cutoff returns the date runs must be strictly after to fall in the range.
// ok is false for RangeAll.
func (r DateRange) Cutoff(today datekey.CalendarDate) (cutoff datekey.CalendarDate, ok bool) {
	switch r {
	case RangeLast4Weeks:
		return today.AddDays(-28), true
	case RangeMonthly:
		return today.AddDate(0, -1, 0), true
	case RangeQuarterly:
		return today.AddDate(0, -3, 0), true
	case RangeYearly:
		return today.AddDate(-1, 0, 0), true
	default:
		return datekey.CalendarDate{}, false
	}
}

// FilterByRange returns the records inside the range, sorted by date, oldest first.
// The input slice is not modified.
func FilterByRange(records []runs.Run, r DateRange, today datekey.CalendarDate) []runs.Run {
	cutoff, bounded := r.Cutoff(today)

	filtered := make([]runs.Run, 0, len(records))
	for _, run := range records {
		if bounded && !run.Date.After(cutoff) {
			continue
		}
		filtered = append(filtered, run)
	}

	sortByDate(filtered)
	return filtered
}

func sortByDate(records []runs.Run) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})
}
