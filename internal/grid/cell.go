package grid

import "github.com/couchcryptid/gistemp-grid/internal/geo"

// Cell is one rectangle of a grid partition. Cells are value types and are
// never modified after the grid is built.
type Cell struct {
	// Index is the cell's position in its grid's ordering.
	Index int `json:"index" msgpack:"index"`
	// Box is the index of the coarse box the cell belongs to. For coarse
	// cells it equals Index.
	Box int `json:"box" msgpack:"box"`

	SouthernBound float64 `json:"southern_bound" msgpack:"southern_bound"`
	NorthernBound float64 `json:"northern_bound" msgpack:"northern_bound"`
	WesternBound  float64 `json:"western_bound" msgpack:"western_bound"`
	EasternBound  float64 `json:"eastern_bound" msgpack:"eastern_bound"`

	CenterLat float64 `json:"center_lat" msgpack:"center_lat"`
	CenterLon float64 `json:"center_lon" msgpack:"center_lon"`
	AreaKm2   float64 `json:"area_km2" msgpack:"area_km2"`
}

// newCell derives center and area from the bounds.
func newCell(index, box int, south, north, west, east float64) Cell {
	return Cell{
		Index:         index,
		Box:           box,
		SouthernBound: south,
		NorthernBound: north,
		WesternBound:  west,
		EasternBound:  east,
		CenterLat:     geo.EqualAreaCenterLat(south, north),
		CenterLon:     0.5 * (west + east),
		AreaKm2:       geo.CellAreaKm2(south, north, west, east),
	}
}

// Contains reports whether the point lies in the cell. Southern and western
// bounds are inclusive; northern and eastern bounds are exclusive except at
// the north pole and the antimeridian, so every valid point has exactly one
// containing cell in a grid.
func (c Cell) Contains(lat, lon float64) bool {
	inLat := lat >= c.SouthernBound && (lat < c.NorthernBound || (c.NorthernBound == 90 && lat == 90))
	inLon := lon >= c.WesternBound && (lon < c.EasternBound || (c.EasternBound == 180 && lon == 180))
	return inLat && inLon
}
