package importer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/2beens/runlog/internal/runstats/datekey"
	"github.com/2beens/runlog/internal/runstats/duration"
	"github.com/2beens/runlog/internal/runstats/runs"
)

var (
	ErrInvalidDistance = errors.New("invalid distance")
	ErrUnknownField    = errors.New("unknown import field")
	ErrRowNotValid     = errors.New("import row is not valid")
)

const (
	msgInvalidDistance = "Invalid distance"
	msgInvalidDuration = "Invalid duration"
	msgInvalidRoute    = "Invalid route"
	msgAssumedMinutes  = "Duration read as minutes"
)

type Status string

const (
	StatusValid Status = "valid"
	StatusError Status = "error"
)

type Field string

const (
	FieldDate     Field = "date"
	FieldDistance Field = "distance"
	FieldDuration Field = "duration"
	FieldNotes    Field = "notes"
	FieldEffort   Field = "effort"
	FieldRoute    Field = "route"
)

// RawRow is one CSV record keyed by header.
type RawRow map[string]string

// ImportRow is a CSV row under review: the texts as they came in (or as the user
// edited them) next to what they resolved to.
type ImportRow struct {
	Index int `json:"index"`
	// Line is the row's line in the source file, 0 when it did not come from one.
	Line int    `json:"line,omitempty"`
	Raw  RawRow `json:"raw,omitempty"`

	DateText string               `json:"dateText"`
	Date     datekey.CalendarDate `json:"date"`

	DistanceText string  `json:"distanceText"`
	DistanceKm   float64 `json:"distanceKm"`

	DurationText    string `json:"durationText"`
	DurationSeconds int    `json:"durationSeconds"`

	Notes      string `json:"notes,omitempty"`
	EffortText string `json:"effortText,omitempty"`
	Effort     int    `json:"effort,omitempty"`
	RouteText  string `json:"routeText,omitempty"`
	RouteID    *int   `json:"routeId,omitempty"`

	Status   Status   `json:"status"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r ImportRow) Valid() bool {
	return r.Status == StatusValid
}

// Run converts a valid row into a run ready to be stored.
func (r ImportRow) Run() (runs.Run, error) {
	if !r.Valid() {
		return runs.Run{}, fmt.Errorf("%w: row %d: %s", ErrRowNotValid, r.Index, strings.Join(r.Errors, ", "))
	}
	return runs.Run{
		Date:            r.Date,
		RouteID:         r.RouteID,
		DistanceKm:      r.DistanceKm,
		DurationSeconds: r.DurationSeconds,
		DurationText:    r.DurationText,
		Effort:          r.Effort,
		Notes:           r.Notes,
	}, nil
}

func invalidFormatMessage(format DateFormat) string {
	return fmt.Sprintf("Invalid format (expected %s)", format)
}

func invalidEffortMessage() string {
	return fmt.Sprintf("Invalid effort (expected %d-%d)", runs.MinEffort, runs.MaxEffort)
}

// ResolveBatch maps and validates raw rows. Every date is read with the one
// declared format; rows that do not match it are marked as errors, never
// re-read with a different format.
func ResolveBatch(rows []RawRow, cm ColumnMap, format DateFormat) []ImportRow {
	resolved := make([]ImportRow, 0, len(rows))
	for i, raw := range rows {
		row := ImportRow{
			Index:        i,
			Raw:          raw,
			DateText:     cell(raw, cm.Date),
			DistanceText: cell(raw, cm.Distance),
			DurationText: cell(raw, cm.Duration),
			Notes:        cell(raw, cm.Notes),
			EffortText:   cell(raw, cm.Effort),
			RouteText:    cell(raw, cm.Route),
		}
		resolveRow(&row, format)
		resolved = append(resolved, row)
	}
	return resolved
}

// Revalidate applies a manual edit of one cell and resolves the row again with
// the same single format.
func Revalidate(row ImportRow, field Field, value string, format DateFormat) (ImportRow, error) {
	value = strings.TrimSpace(value)
	switch field {
	case FieldDate:
		row.DateText = value
	case FieldDistance:
		row.DistanceText = value
	case FieldDuration:
		row.DurationText = value
	case FieldNotes:
		row.Notes = value
	case FieldEffort:
		row.EffortText = value
	case FieldRoute:
		row.RouteText = value
	default:
		return row, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	resolveRow(&row, format)
	return row, nil
}

func cell(raw RawRow, column string) string {
	if column == "" {
		return ""
	}
	return strings.TrimSpace(raw[column])
}

// resolveRow recomputes every derived field from the texts of the row.
func resolveRow(row *ImportRow, format DateFormat) {
	row.Errors = nil
	row.Warnings = nil
	row.Date = datekey.CalendarDate{}
	row.DistanceKm = 0
	row.DurationSeconds = 0
	row.Effort = 0
	row.RouteID = nil

	if date, err := format.Parse(row.DateText); err != nil {
		row.Errors = append(row.Errors, invalidFormatMessage(format))
	} else {
		row.Date = date
	}

	if km, err := ParseDistance(row.DistanceText); err != nil {
		row.Errors = append(row.Errors, msgInvalidDistance)
	} else {
		row.DistanceKm = km
	}

	if parsed, err := duration.ParseDetailed(row.DurationText); err != nil {
		row.Errors = append(row.Errors, msgInvalidDuration)
	} else {
		row.DurationSeconds = parsed.Seconds
		if parsed.AssumedMinutes {
			row.Warnings = append(row.Warnings, msgAssumedMinutes)
		}
	}

	if row.EffortText != "" {
		effort, err := strconv.Atoi(row.EffortText)
		if err != nil || effort < runs.MinEffort || effort > runs.MaxEffort {
			row.Errors = append(row.Errors, invalidEffortMessage())
		} else {
			row.Effort = effort
		}
	}

	if row.RouteText != "" {
		routeID, err := strconv.Atoi(row.RouteText)
		if err != nil || routeID <= 0 {
			row.Errors = append(row.Errors, msgInvalidRoute)
		} else {
			row.RouteID = &routeID
		}
	}

	row.Status = StatusValid
	if len(row.Errors) > 0 {
		row.Status = StatusError
	}
}

// ParseDistance reads a positive number of kilometers.
func ParseDistance(text string) (float64, error) {
	text = strings.TrimSpace(text)
	km, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(km) || math.IsInf(km, 0) || km <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDistance, text)
	}
	return km, nil
}

// Counts returns how many rows are valid and how many have errors.
func Counts(rows []ImportRow) (valid, invalid int) {
	for _, r := range rows {
		if r.Valid() {
			valid++
		} else {
			invalid++
		}
	}
	return valid, invalid
}
