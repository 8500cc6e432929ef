package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

var samplePoints = []struct {
	lat, lon float64
}{
	{0, 0},
	{90, 0},
	{-90, 180},
	{45.5, -122.6},
	{-33.9, 151.2},
	{64.2, -180},
	{-23.6, 179.99},
	{51.48, -0.0015},
}

func TestDistanceKm_ZeroForSamePoint(t *testing.T) {
	for _, p := range samplePoints {
		assert.Zero(t, DistanceKm(p.lat, p.lon, p.lat, p.lon), "point %v", p)
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	for _, a := range samplePoints {
		for _, b := range samplePoints {
			assert.Equal(t, DistanceKm(a.lat, a.lon, b.lat, b.lon), DistanceKm(b.lat, b.lon, a.lat, a.lon))
		}
	}
}

func TestDistanceKm_Antipodal(t *testing.T) {
	maxDistance := math.Pi * EarthRadiusKm

	d := DistanceKm(0, 0, 0, 180)
	assert.False(t, math.IsNaN(d))
	assert.InDelta(t, maxDistance, d, 1e-3)

	d = DistanceKm(90, 0, -90, 0)
	assert.False(t, math.IsNaN(d))
	assert.InDelta(t, maxDistance, d, 1e-3)

	d = DistanceKm(37.5, -45, -37.5, 135)
	assert.False(t, math.IsNaN(d))
	assert.InDelta(t, maxDistance, d, 1e-3)
}

func TestDistanceKm_KnownDistances(t *testing.T) {
	// One degree of arc on the equator.
	assert.InDelta(t, EarthRadiusKm*math.Pi/180, DistanceKm(0, 0, 0, 1), 1e-9)

	// Equator to (30, 0): 30 degrees of arc, roughly 3336 km.
	assert.InDelta(t, 3335.85, DistanceKm(0, 0, 30, 0), 0.01)

	// Crossing the antimeridian takes the short way round.
	assert.InDelta(t, DistanceKm(0, 179, 0, 181), DistanceKm(0, 179, 0, -179), 1e-9)
}

func TestEqualAreaCenterLat(t *testing.T) {
	assert.InDelta(t, 0, EqualAreaCenterLat(-30, 30), 1e-12)
	assert.InDelta(t, 30, EqualAreaCenterLat(0, 90), 1e-9)

	// The center splits the band into equal halves.
	south, north := 23.6, 44.4
	c := EqualAreaCenterLat(south, north)
	lower := CellAreaKm2(south, c, 0, 10)
	upper := CellAreaKm2(c, north, 0, 10)
	assert.InEpsilon(t, lower, upper, 1e-12)

	// The equal-area center sits equatorward of the arithmetic midpoint.
	assert.Less(t, c, (south+north)/2)
	assert.Greater(t, EqualAreaCenterLat(-north, -south), -(south+north)/2)
}

func TestCellAreaKm2(t *testing.T) {
	whole := CellAreaKm2(-90, 90, -180, 180)
	assert.InEpsilon(t, SphereAreaKm2(), whole, 1e-12)

	north := CellAreaKm2(0, 90, -180, 180)
	south := CellAreaKm2(-90, 0, -180, 180)
	assert.InEpsilon(t, north, south, 1e-12)
	assert.InEpsilon(t, whole/2, north, 1e-12)
}

func TestLerp(t *testing.T) {
	assert.InDelta(t, 2.0, Lerp(2, 12, 0), 0)
	assert.InDelta(t, 12.0, Lerp(2, 12, 1), 0)
	assert.InDelta(t, 7.0, Lerp(2, 12, 0.5), 1e-12)
	assert.InDelta(t, -4.5, Lerp(-9, 0, 0.5), 1e-12)
}

func TestLinearWeight(t *testing.T) {
	const cutoff = 1200.0

	assert.InDelta(t, 1.0, LinearWeight(0, cutoff), 0)
	assert.InDelta(t, 0.5, LinearWeight(600, cutoff), 1e-12)
	assert.InDelta(t, 0.0, LinearWeight(cutoff, cutoff), 0)
	assert.InDelta(t, 0.0, LinearWeight(5000, cutoff), 0)
	assert.InDelta(t, 1.0, LinearWeight(-3, cutoff), 0)
	assert.InDelta(t, 0.0, LinearWeight(10, 0), 0)

	prev := LinearWeight(0, cutoff)
	for d := 10.0; d <= cutoff; d += 10 {
		w := LinearWeight(d, cutoff)
		assert.LessOrEqual(t, w, prev, "distance %v", d)
		prev = w
	}
}

func TestAngularRadiusDeg(t *testing.T) {
	deg := AngularRadiusDeg(1200)
	assert.InDelta(t, 10.79, deg, 0.01)

	// A meridian arc of that many degrees is exactly the input distance.
	assert.InDelta(t, 1200, DistanceKm(0, 0, deg, 0), 1e-6)
}
