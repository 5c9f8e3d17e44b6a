package routes_test

import (
	"testing"

	"github.com/2beens/runlog/internal/runstats/routes"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	// Alexanderplatz to Brandenburger Tor, Berlin
	d := routes.HaversineKm(52.5219, 13.4132, 52.5163, 13.3777)
	assert.InDelta(t, 2.47, d, 0.15)

	assert.Zero(t, routes.HaversineKm(10, 10, 10, 10))
}

func TestPathDistanceKm(t *testing.T) {
	assert.Zero(t, routes.PathDistanceKm(nil))
	assert.Zero(t, routes.PathDistanceKm([]routes.Point{{1, 1}}))

	// one degree of latitude is ~111.19 km
	path := []routes.Point{{0, 0}, {0.5, 0}, {1, 0}}
	assert.InDelta(t, 111.19, routes.PathDistanceKm(path), 0.05)
}

func TestRoute_Normalize(t *testing.T) {
	r := routes.Route{
		Name:        "  Marina Loop ",
		Coordinates: []routes.Point{{0, 0}, {0.01, 0}},
	}
	r.Normalize()
	assert.Equal(t, "Marina Loop", r.Name)
	assert.Equal(t, 1.11, r.DistanceKm)

	given := routes.Route{Name: "x", DistanceKm: 4.39, Coordinates: []routes.Point{{0, 0}, {1, 0}}}
	given.Normalize()
	assert.Equal(t, 4.39, given.DistanceKm)
}

func TestRoute_Validate(t *testing.T) {
	assert.NoError(t, routes.Route{Name: "Park", DistanceKm: 5}.Validate())
	assert.NoError(t, routes.Route{Name: "No distance yet"}.Validate())
	assert.ErrorIs(t, routes.Route{}.Validate(), routes.ErrInvalidRoute)
	assert.ErrorIs(t, routes.Route{Name: "x", DistanceKm: -1}.Validate(), routes.ErrInvalidRoute)
	assert.ErrorIs(t, routes.Route{Name: "x", Coordinates: []routes.Point{{91, 0}}}.Validate(), routes.ErrInvalidRoute)
}
