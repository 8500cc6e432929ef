// Package station holds the station table handed to the gridding core by the
// upstream ETL stage. Coordinates are validated on the way in; the series of
// each station is carried through untouched.
package station

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrInvalidCoordinate marks a station outside [-90,90]×[-180,180].
	ErrInvalidCoordinate = errors.New("invalid station coordinate")
	// ErrMissingID marks a station without an identifier.
	ErrMissingID = errors.New("missing station id")
	// ErrDuplicateID marks a second station with an identifier already in the table.
	ErrDuplicateID = errors.New("duplicate station id")
)

// Reading is one periodic value of a station's series. A nil Value is a
// missing observation.
type Reading struct {
	Year  int      `json:"year" msgpack:"year"`
	Month int      `json:"month" msgpack:"month"`
	Value *float64 `json:"value" msgpack:"value"`
}

// Station is one observing site.
type Station struct {
	ID     string    `json:"id" msgpack:"id"`
	Name   string    `json:"name,omitempty" msgpack:"name,omitempty"`
	Lat    float64   `json:"lat" msgpack:"lat"`
	Lon    float64   `json:"lon" msgpack:"lon"`
	Series []Reading `json:"series,omitempty" msgpack:"series,omitempty"`
}

// ValidationError names the station that failed validation.
type ValidationError struct {
	StationID string
	Err       error
	Detail    string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("station %q: %v", e.StationID, e.Err)
	}
	return fmt.Sprintf("station %q: %v: %s", e.StationID, e.Err, e.Detail)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks the identifier and coordinates of s. Out-of-range values
// are rejected, never clamped.
func Validate(s Station) error {
	if s.ID == "" {
		return &ValidationError{Err: ErrMissingID}
	}
	if math.IsNaN(s.Lat) || s.Lat < -90 || s.Lat > 90 {
		return &ValidationError{StationID: s.ID, Err: ErrInvalidCoordinate, Detail: fmt.Sprintf("latitude %v outside [-90, 90]", s.Lat)}
	}
	if math.IsNaN(s.Lon) || s.Lon < -180 || s.Lon > 180 {
		return &ValidationError{StationID: s.ID, Err: ErrInvalidCoordinate, Detail: fmt.Sprintf("longitude %v outside [-180, 180]", s.Lon)}
	}
	return nil
}

// Index is an immutable, validated station table. Stations are stored once
// and referred to by position.
type Index struct {
	stations []Station
	byID     map[string]int
	byLat    []int
}

// NewIndex validates every station and builds the table. The input order is
// preserved.
func NewIndex(stations []Station) (*Index, error) {
	idx := &Index{
		stations: make([]Station, len(stations)),
		byID:     make(map[string]int, len(stations)),
		byLat:    make([]int, len(stations)),
	}
	copy(idx.stations, stations)

	for i, s := range idx.stations {
		if err := Validate(s); err != nil {
			return nil, err
		}
		if _, dup := idx.byID[s.ID]; dup {
			return nil, &ValidationError{StationID: s.ID, Err: ErrDuplicateID}
		}
		idx.byID[s.ID] = i
		idx.byLat[i] = i
	}

	sort.SliceStable(idx.byLat, func(a, b int) bool {
		return idx.stations[idx.byLat[a]].Lat < idx.stations[idx.byLat[b]].Lat
	})
	return idx, nil
}

// Len returns the number of stations.
func (x *Index) Len() int { return len(x.stations) }

// At returns the station at position i.
func (x *Index) At(i int) Station { return x.stations[i] }

// Lookup finds a station by identifier.
func (x *Index) Lookup(id string) (Station, bool) {
	i, ok := x.byID[id]
	if !ok {
		return Station{}, false
	}
	return x.stations[i], true
}

// IDs returns the station identifiers in table order.
func (x *Index) IDs() []string {
	ids := make([]string, len(x.stations))
	for i, s := range x.stations {
		ids[i] = s.ID
	}
	return ids
}

// LatitudeOrder returns station positions sorted by ascending latitude.
// Ties keep table order. The slice must not be modified.
func (x *Index) LatitudeOrder() []int { return x.byLat }
