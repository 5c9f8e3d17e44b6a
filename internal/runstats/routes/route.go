package routes

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var ErrInvalidRoute = errors.New("invalid route")

// Point is a [lat, lon] pair.
type Point [2]float64

type Route struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	DistanceKm  float64   `json:"distanceKm"`
	MapLink     string    `json:"mapLink,omitempty"`
	Coordinates []Point   `json:"coordinates,omitempty"`
	Location    string    `json:"location,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Normalize trims the text fields and fills in the distance from the
// coordinates when it was not given.
func (r *Route) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.MapLink = strings.TrimSpace(r.MapLink)
	r.Location = strings.TrimSpace(r.Location)
	if r.DistanceKm == 0 && len(r.Coordinates) > 1 {
		r.DistanceKm = math.Round(PathDistanceKm(r.Coordinates)*100) / 100
	}
}

func (r Route) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRoute)
	}
	if math.IsNaN(r.DistanceKm) || math.IsInf(r.DistanceKm, 0) || r.DistanceKm < 0 {
		return fmt.Errorf("%w: distance must not be negative", ErrInvalidRoute)
	}
	for i, p := range r.Coordinates {
		if p[0] < -90 || p[0] > 90 || p[1] < -180 || p[1] > 180 {
			return fmt.Errorf("%w: coordinate %d out of range", ErrInvalidRoute, i)
		}
	}
	return nil
}
