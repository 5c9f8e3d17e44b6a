package importer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/runlog/internal/runstats/datekey"
)

var ErrUnsupportedFormat = errors.New("unsupported date format")

// DateFormat names the layout of the date column of an import file, in the
// notation users pick it by (dd, MM, yyyy, yy).
type DateFormat string

const (
	FormatUS        DateFormat = "MM/dd/yyyy"
	FormatEU        DateFormat = "dd/MM/yyyy"
	FormatISO       DateFormat = "yyyy-MM-dd"
	FormatEUDash    DateFormat = "dd-MM-yyyy"
	FormatUSDash    DateFormat = "MM-dd-yyyy"
	FormatEUDot     DateFormat = "dd.MM.yyyy"
	FormatUSShort   DateFormat = "MM/dd/yy"
	FormatEUShort   DateFormat = "dd/MM/yy"
	DefaultFormat              = FormatUS
	shortYearOffset            = 2000
)

var SupportedFormats = []DateFormat{
	FormatUS,
	FormatEU,
	FormatISO,
	FormatEUDash,
	FormatUSDash,
	FormatEUDot,
	FormatUSShort,
	FormatEUShort,
}

type dateField int

const (
	fieldDay dateField = iota
	fieldMonth
	fieldYear
)

type layout struct {
	sep       string
	order     [3]dateField
	shortYear bool
}

var layouts = map[DateFormat]layout{
	FormatUS:      {sep: "/", order: [3]dateField{fieldMonth, fieldDay, fieldYear}},
	FormatEU:      {sep: "/", order: [3]dateField{fieldDay, fieldMonth, fieldYear}},
	FormatISO:     {sep: "-", order: [3]dateField{fieldYear, fieldMonth, fieldDay}},
	FormatEUDash:  {sep: "-", order: [3]dateField{fieldDay, fieldMonth, fieldYear}},
	FormatUSDash:  {sep: "-", order: [3]dateField{fieldMonth, fieldDay, fieldYear}},
	FormatEUDot:   {sep: ".", order: [3]dateField{fieldDay, fieldMonth, fieldYear}},
	FormatUSShort: {sep: "/", order: [3]dateField{fieldMonth, fieldDay, fieldYear}, shortYear: true},
	FormatEUShort: {sep: "/", order: [3]dateField{fieldDay, fieldMonth, fieldYear}, shortYear: true},
}

func ParseDateFormat(s string) (DateFormat, error) {
	f := DateFormat(strings.TrimSpace(s))
	if f == "" {
		return DefaultFormat, nil
	}
	if _, ok := layouts[f]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
	return f, nil
}

func (f DateFormat) String() string {
	return string(f)
}

// Parse reads text strictly in this format: exact separators, digits only and a
// real calendar date. Nothing is guessed, so "13/01/2025" is an error for
// MM/dd/yyyy rather than a date in another format.
func (f DateFormat) Parse(text string) (datekey.CalendarDate, error) {
	l, ok := layouts[f]
	if !ok {
		return datekey.CalendarDate{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}

	text = strings.TrimSpace(text)
	parts := strings.Split(text, l.sep)
	if len(parts) != 3 {
		return datekey.CalendarDate{}, fmt.Errorf("%w: %q does not match %s", datekey.ErrInvalidDate, text, f)
	}

	var year, month, day int
	for i, field := range l.order {
		minDigits, maxDigits := 1, 2
		if field == fieldYear {
			minDigits, maxDigits = 4, 4
			if l.shortYear {
				minDigits, maxDigits = 2, 2
			}
		}
		v, err := parseDigits(parts[i], minDigits, maxDigits)
		if err != nil {
			return datekey.CalendarDate{}, fmt.Errorf("%w: %q does not match %s", datekey.ErrInvalidDate, text, f)
		}
		switch field {
		case fieldDay:
			day = v
		case fieldMonth:
			month = v
		case fieldYear:
			year = v
			if l.shortYear {
				year += shortYearOffset
			}
		}
	}

	return datekey.NewCalendarDate(year, time.Month(month), day)
}

func parseDigits(s string, minDigits, maxDigits int) (int, error) {
	if len(s) < minDigits || len(s) > maxDigits {
		return 0, fmt.Errorf("expected %d to %d digits, got %q", minDigits, maxDigits, s)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("non digit in %q", s)
		}
	}
	return strconv.Atoi(s)
}
