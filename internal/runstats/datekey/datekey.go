package datekey

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is terminal for the record it belongs to; retrying will not help.
var ErrInvalidDate = errors.New("invalid date")

const dateLayout = "2006-01-02"

var strictDateRegex = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// layouts tried, in order, for non-strict date strings
var generalLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006/01/02",
	time.RFC1123,
	time.RFC1123Z,
	// as printed by javascript Date.toString, after the zone name is cut off
	"Mon Jan 2 2006 15:04:05 GMT-0700",
	"Mon Jan 2 2006",
	"Mon, Jan 2, 2006",
	"Monday, January 2, 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// CalendarDate is a date without time-of-day or timezone semantics.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// NewCalendarDate validates the components against the real calendar,
// so 2025-02-30 is rejected rather than normalized to March 2nd.
func NewCalendarDate(year int, month time.Month, day int) (CalendarDate, error) {
	if year < 1 || year > 9999 {
		return CalendarDate{}, fmt.Errorf("%w: year %d out of range", ErrInvalidDate, year)
	}
	if month < time.January || month > time.December {
		return CalendarDate{}, fmt.Errorf("%w: month %d out of range", ErrInvalidDate, month)
	}
	if day < 1 || day > daysIn(year, month) {
		return CalendarDate{}, fmt.Errorf("%w: day %d out of range for %d-%02d", ErrInvalidDate, day, year, month)
	}
	return CalendarDate{Year: year, Month: month, Day: day}, nil
}

// FromTime takes the wall-clock date of t in t's own location.
func FromTime(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}

// MustParse is meant for tests and constants.
func MustParse(s string) CalendarDate {
	d, err := ToCalendarDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func daysIn(year int, month time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ToCalendarDate canonicalizes a string, time.Time or CalendarDate into a CalendarDate.
//
// Strict YYYY-MM-DD strings are split into their components directly. Routing them through
// an instant parser would treat them as UTC midnight and shift the date back by one day for
// every caller west of UTC.
func ToCalendarDate(input any) (CalendarDate, error) {
	switch v := input.(type) {
	case CalendarDate:
		return NewCalendarDate(v.Year, v.Month, v.Day)
	case *CalendarDate:
		if v == nil {
			return CalendarDate{}, fmt.Errorf("%w: nil date", ErrInvalidDate)
		}
		return NewCalendarDate(v.Year, v.Month, v.Day)
	case time.Time:
		if v.IsZero() {
			return CalendarDate{}, fmt.Errorf("%w: zero time", ErrInvalidDate)
		}
		return FromTime(v), nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return CalendarDate{}, fmt.Errorf("%w: zero time", ErrInvalidDate)
		}
		return FromTime(*v), nil
	case string:
		return parseString(v)
	default:
		return CalendarDate{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidDate, input)
	}
}

func parseString(s string) (CalendarDate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CalendarDate{}, fmt.Errorf("%w: empty string", ErrInvalidDate)
	}

	if m := strictDateRegex.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return NewCalendarDate(year, time.Month(month), day)
	}

	general := s
	if i := strings.IndexByte(general, '('); i > 0 {
		general = strings.TrimSpace(general[:i])
	}
	for _, layout := range generalLayouts {
		if t, err := time.Parse(layout, general); err == nil {
			return FromTime(t), nil
		}
	}

	return CalendarDate{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d CalendarDate) IsZero() bool {
	return d == CalendarDate{}
}

// Valid reports whether d names a real calendar day.
func (d CalendarDate) Valid() bool {
	_, err := NewCalendarDate(d.Year, d.Month, d.Day)
	return err == nil
}

// Time returns midnight of d in loc (UTC when loc is nil).
func (d CalendarDate) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d CalendarDate) Weekday() time.Weekday {
	return d.Time(time.UTC).Weekday()
}

func (d CalendarDate) AddDays(n int) CalendarDate {
	return FromTime(d.Time(time.UTC).AddDate(0, 0, n))
}

// AddDate behaves like time.Time.AddDate, including its month overflow normalization.
func (d CalendarDate) AddDate(years, months, days int) CalendarDate {
	return FromTime(d.Time(time.UTC).AddDate(years, months, days))
}

// Compare returns -1, 0 or +1.
func (d CalendarDate) Compare(other CalendarDate) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func (d CalendarDate) Before(other CalendarDate) bool { return d.Compare(other) < 0 }
func (d CalendarDate) After(other CalendarDate) bool  { return d.Compare(other) > 0 }
func (d CalendarDate) Equal(other CalendarDate) bool  { return d.Compare(other) == 0 }

// DaysUntil returns the number of days from d to other (negative if other is earlier).
func (d CalendarDate) DaysUntil(other CalendarDate) int {
	return int(other.Time(time.UTC).Sub(d.Time(time.UTC)).Hours() / 24)
}

func (d CalendarDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *CalendarDate) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, data)
	}
	if s == "" {
		*d = CalendarDate{}
		return nil
	}
	parsed, err := ToCalendarDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Today returns the current calendar date in loc.
func Today(loc *time.Location) CalendarDate {
	if loc == nil {
		loc = time.Local
	}
	return FromTime(time.Now().In(loc))
}

// ParseDateOnly parses a strict YYYY-MM-DD string. It is a narrower ToCalendarDate
// used for query params where nothing else is accepted.
func ParseDateOnly(s string) (CalendarDate, error) {
	if !strictDateRegex.MatchString(s) {
		return CalendarDate{}, fmt.Errorf("%w: %q, expected %s", ErrInvalidDate, s, dateLayout)
	}
	return parseString(s)
}
