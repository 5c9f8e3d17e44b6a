package duration

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidDuration = errors.New("invalid duration")

// Parsed carries the parse result together with how the text was interpreted.
type Parsed struct {
	Seconds int
	// AssumedMinutes is set when a single bare number was read as whole minutes.
	// "45" could also mean 45 seconds, so callers should surface it to the user.
	AssumedMinutes bool
}

// Parse converts "H:MM:SS", "MM:SS" or a bare number of minutes into seconds.
// Empty input yields 0, which means "no duration entered".
func Parse(text string) (int, error) {
	p, err := ParseDetailed(text)
	if err != nil {
		return 0, err
	}
	return p.Seconds, nil
}

func ParseDetailed(text string) (Parsed, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Parsed{}, nil
	}

	parts := strings.Split(text, ":")
	switch len(parts) {
	case 1:
		minutes, err := strconv.ParseFloat(parts[0], 64)
		if err != nil || math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes < 0 {
			return Parsed{}, fmt.Errorf("%w: %q", ErrInvalidDuration, text)
		}
		return Parsed{
			Seconds:        int(math.Round(minutes * 60)),
			AssumedMinutes: true,
		}, nil
	case 2, 3:
		values := make([]int, len(parts))
		for i, part := range parts {
			v, err := parsePart(part)
			if err != nil {
				return Parsed{}, fmt.Errorf("%w: %q", ErrInvalidDuration, text)
			}
			values[i] = v
		}
		if len(values) == 2 {
			return Parsed{Seconds: values[0]*60 + values[1]}, nil
		}
		return Parsed{Seconds: values[0]*3600 + values[1]*60 + values[2]}, nil
	default:
		return Parsed{}, fmt.Errorf("%w: %q has too many parts", ErrInvalidDuration, text)
	}
}

func parsePart(part string) (int, error) {
	part = strings.TrimSpace(part)
	if part == "" {
		return 0, errors.New("empty part")
	}
	v, err := strconv.Atoi(part)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, errors.New("negative part")
	}
	return v, nil
}

// Format renders seconds as "H:MM:SS", or "MM:SS" when there are no full hours.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// FormatElapsed renders seconds as "1h 2m 3s", dropping the hours when zero.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	return fmt.Sprintf("%dm %ds", m, s)
}

// ComputePace returns seconds per km, or 0 when either input makes pace meaningless.
func ComputePace(distanceKm float64, seconds int) float64 {
	if seconds <= 0 || !(distanceKm > 0) || math.IsInf(distanceKm, 0) {
		return 0
	}
	return float64(seconds) / distanceKm
}

// FormatPace renders seconds per km as "M:SS".
func FormatPace(secondsPerKm float64) string {
	if math.IsNaN(secondsPerKm) || math.IsInf(secondsPerKm, 0) || secondsPerKm <= 0 {
		return "0:00"
	}
	minutes := int(math.Floor(secondsPerKm / 60))
	secs := int(math.Round(secondsPerKm - float64(minutes*60)))
	if secs == 60 {
		minutes++
		secs = 0
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
