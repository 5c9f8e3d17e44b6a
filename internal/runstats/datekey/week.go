package datekey

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var ErrInvalidWeekID = errors.New("invalid week identifier")

var weekIDRegex = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// WeekIdentifier returns the ISO-8601 week of d as "YYYY-Www".
// Weeks start on Monday and week 1 holds the year's first Thursday, so the
// ISO year can differ from d.Year around new year.
func WeekIdentifier(d CalendarDate) string {
	isoYear, isoWeek := d.Time(time.UTC).ISOWeek()
	return FormatWeekIdentifier(isoYear, isoWeek)
}

func FormatWeekIdentifier(isoYear, isoWeek int) string {
	return fmt.Sprintf("%04d-W%02d", isoYear, isoWeek)
}

// WeeksInYear returns the number of ISO weeks (52 or 53) in the given ISO year.
// December 28th always falls in the last ISO week of its year.
func WeeksInYear(isoYear int) int {
	_, week := time.Date(isoYear, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return week
}

// ParseWeekIdentifier splits "YYYY-Www" and checks the week exists in that ISO year.
func ParseWeekIdentifier(weekID string) (isoYear, isoWeek int, err error) {
	m := weekIDRegex.FindStringSubmatch(weekID)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidWeekID, weekID)
	}
	isoYear, _ = strconv.Atoi(m[1])
	isoWeek, _ = strconv.Atoi(m[2])
	if isoYear < 1 || isoWeek < 1 || isoWeek > WeeksInYear(isoYear) {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidWeekID, weekID)
	}
	return isoYear, isoWeek, nil
}

// PreviousWeekIdentifier returns the ISO week before weekID, rolling back into the
// last week (52 or 53) of the previous ISO year when needed.
func PreviousWeekIdentifier(weekID string) (string, error) {
	year, week, err := ParseWeekIdentifier(weekID)
	if err != nil {
		return "", err
	}
	week--
	if week < 1 {
		year--
		week = WeeksInYear(year)
	}
	return FormatWeekIdentifier(year, week), nil
}

func NextWeekIdentifier(weekID string) (string, error) {
	year, week, err := ParseWeekIdentifier(weekID)
	if err != nil {
		return "", err
	}
	week++
	if week > WeeksInYear(year) {
		year++
		week = 1
	}
	return FormatWeekIdentifier(year, week), nil
}

// WeekStart returns the Monday that opens the given ISO week.
func WeekStart(weekID string) (CalendarDate, error) {
	year, week, err := ParseWeekIdentifier(weekID)
	if err != nil {
		return CalendarDate{}, err
	}
	// January 4th is always in week 1
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7 // days since Monday
	monday := jan4.AddDate(0, 0, -offset+7*(week-1))
	return FromTime(monday), nil
}
