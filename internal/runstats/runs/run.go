package runs

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/2beens/runlog/internal/runstats/datekey"
	"github.com/2beens/runlog/internal/runstats/duration"
)

var ErrInvalidRun = errors.New("invalid run")

const (
	MinEffort = 1
	MaxEffort = 5
)

var effortLabels = map[int]string{
	1: "Very Easy",
	2: "Easy",
	3: "Moderate",
	4: "Hard",
	5: "Very Hard",
}

// EffortLabel returns the display name of an effort level, or "" when unset/unknown.
func EffortLabel(effort int) string {
	return effortLabels[effort]
}

type Run struct {
	ID              int                  `json:"id"`
	Date            datekey.CalendarDate `json:"date"`
	RouteID         *int                 `json:"routeId"`
	DistanceKm      float64              `json:"distanceKm"`
	DurationSeconds int                  `json:"durationSeconds"`
	// DurationText is the duration as the user typed it, if any.
	DurationText string    `json:"durationText,omitempty"`
	Effort       int       `json:"effort,omitempty"` // 0 means not set
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PaceSecondsPerKm is always derived from distance and duration, never stored.
func (r Run) PaceSecondsPerKm() float64 {
	return duration.ComputePace(r.DistanceKm, r.DurationSeconds)
}

func (r Run) MarshalJSON() ([]byte, error) {
	type alias Run
	return json.Marshal(struct {
		alias
		PaceSecondsPerKm float64 `json:"paceSecondsPerKm"`
		Pace             string  `json:"pace"`
		Duration         string  `json:"duration"`
		EffortLabel      string  `json:"effortLabel,omitempty"`
	}{
		alias:            alias(r),
		PaceSecondsPerKm: r.PaceSecondsPerKm(),
		Pace:             duration.FormatPace(r.PaceSecondsPerKm()),
		Duration:         duration.Format(r.DurationSeconds),
		EffortLabel:      EffortLabel(r.Effort),
	})
}

func (r Run) Validate() error {
	if !r.Date.Valid() {
		return fmt.Errorf("%w: date %q", ErrInvalidRun, r.Date)
	}
	if math.IsNaN(r.DistanceKm) || math.IsInf(r.DistanceKm, 0) || r.DistanceKm <= 0 {
		return fmt.Errorf("%w: distance must be positive", ErrInvalidRun)
	}
	if r.DurationSeconds < 0 {
		return fmt.Errorf("%w: duration must not be negative", ErrInvalidRun)
	}
	if r.Effort != 0 && (r.Effort < MinEffort || r.Effort > MaxEffort) {
		return fmt.Errorf("%w: effort must be between %d and %d", ErrInvalidRun, MinEffort, MaxEffort)
	}
	if r.RouteID != nil && *r.RouteID <= 0 {
		return fmt.Errorf("%w: route id %d", ErrInvalidRun, *r.RouteID)
	}
	return nil
}

// Patch holds a partial update. Nil fields are left as they are.
type Patch struct {
	Date            *datekey.CalendarDate
	RouteID         *int
	ClearRoute      bool
	DistanceKm      *float64
	DurationSeconds *int
	DurationText    *string
	Effort          *int
	Notes           *string
}

// UnmarshalJSON accepts the run fields; "routeId": null clears the route and
// "duration" is parsed as duration text. When both "duration" and
// "durationSeconds" are sent, the text wins.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Patch{}
	for key, value := range raw {
		var err error
		switch key {
		case "date":
			var d datekey.CalendarDate
			err = json.Unmarshal(value, &d)
			p.Date = &d
		case "routeId":
			if string(value) == "null" {
				p.ClearRoute = true
				continue
			}
			var id int
			err = json.Unmarshal(value, &id)
			p.RouteID = &id
		case "distanceKm":
			var km float64
			err = json.Unmarshal(value, &km)
			p.DistanceKm = &km
		case "durationSeconds":
			var seconds int
			err = json.Unmarshal(value, &seconds)
			p.DurationSeconds = &seconds
		case "duration":
			// resolved after the loop, map order is random
			continue
		case "effort":
			var effort int
			if string(value) != "null" {
				err = json.Unmarshal(value, &effort)
			}
			p.Effort = &effort
		case "notes":
			var notes string
			if string(value) != "null" {
				err = json.Unmarshal(value, &notes)
			}
			p.Notes = &notes
		default:
			// unknown fields are ignored
		}
		if err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
	}

	if value, ok := raw["duration"]; ok {
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			return fmt.Errorf("field duration: %w", err)
		}
		seconds, err := duration.Parse(text)
		if err != nil {
			return fmt.Errorf("field duration: %w", err)
		}
		p.DurationText = &text
		p.DurationSeconds = &seconds
	}
	return nil
}

func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// Apply returns a copy of r with the patch applied.
func (p Patch) Apply(r Run) Run {
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.ClearRoute {
		r.RouteID = nil
	} else if p.RouteID != nil {
		id := *p.RouteID
		r.RouteID = &id
	}
	if p.DistanceKm != nil {
		r.DistanceKm = *p.DistanceKm
	}
	if p.DurationSeconds != nil {
		r.DurationSeconds = *p.DurationSeconds
		if p.DurationText == nil {
			r.DurationText = ""
		}
	}
	if p.DurationText != nil {
		r.DurationText = *p.DurationText
	}
	if p.Effort != nil {
		r.Effort = *p.Effort
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	return r
}
