// Package geo provides the spherical primitives used by the gridding core:
// great-circle distance, equal-area band geometry, and distance weighting.
// All angles cross the API in degrees.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by GISTEMP.
const EarthRadiusKm = 6371.0

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180.0 }

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180.0 / math.Pi }

// DistanceKm returns the haversine great-circle distance between two points.
//
// The haversine term is clamped to [0, 1] so coincident points yield exactly 0
// and antipodal points yield π·R instead of NaN from rounding overshoot.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := Radians(lat1)
	phi2 := Radians(lat2)
	dPhi := Radians(lat2 - lat1)
	dLambda := Radians(lon2 - lon1)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	a = clamp(a, 0, 1)

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// EqualAreaCenterLat returns the latitude that splits the band [south, north]
// into two halves of equal surface area.
func EqualAreaCenterLat(south, north float64) float64 {
	s := 0.5 * (math.Sin(Radians(south)) + math.Sin(Radians(north)))
	return Degrees(math.Asin(clamp(s, -1, 1)))
}

// CellAreaKm2 returns the surface area of the lat/lon rectangle bounded by
// the given degrees.
func CellAreaKm2(south, north, west, east float64) float64 {
	return EarthRadiusKm * EarthRadiusKm *
		Radians(east-west) *
		(math.Sin(Radians(north)) - math.Sin(Radians(south)))
}

// SphereAreaKm2 is the total surface area 4πR².
func SphereAreaKm2() float64 {
	return 4 * math.Pi * EarthRadiusKm * EarthRadiusKm
}

// Lerp interpolates linearly between low and high.
func Lerp(low, high, fraction float64) float64 {
	return low + fraction*(high-low)
}

// LinearWeight maps a distance to a weight that is 1 at zero distance and
// falls linearly to 0 at cutoff. Distances outside [0, cutoff] are clamped.
func LinearWeight(distance, cutoff float64) float64 {
	if cutoff <= 0 {
		return 0
	}
	d := clamp(distance, 0, cutoff)
	return 1 - d/cutoff
}

// AngularRadiusDeg converts a surface distance into the central angle it
// subtends, in degrees. Two points further apart in latitude than this
// cannot be within distanceKm of each other.
func AngularRadiusDeg(distanceKm float64) float64 {
	return Degrees(distanceKm / EarthRadiusKm)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
