package grid

import (
	"fmt"
	"math"

	"github.com/couchcryptid/gistemp-grid/internal/geo"
)

// CoarseCellCount is the number of boxes in every scheme.
const CoarseCellCount = 80

// DefaultSubdivisions splits each box into 10×10 sub-boxes.
const DefaultSubdivisions = 10

// BandEdges are the GISTEMP box-band latitudes, south to north.
var BandEdges = [...]float64{-90, -64.2, -44.4, -23.6, 0, 23.6, 44.4, 64.2, 90}

// Scheme selects how many boxes each latitude band is divided into.
type Scheme string

const (
	// SchemeEqualArea is the GISTEMP layout: 4, 8, 12 and 16 boxes from the
	// poles to the equator, which makes every box the same area.
	SchemeEqualArea Scheme = "equal-area"

	// SchemeUniform places 10 boxes in every band. Boxes in different bands
	// have different areas.
	SchemeUniform Scheme = "uniform"
)

// ParseScheme validates a scheme name.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(s) {
	case SchemeEqualArea, SchemeUniform:
		return Scheme(s), nil
	default:
		return "", fmt.Errorf("unknown grid scheme %q (want %q or %q)", s, SchemeEqualArea, SchemeUniform)
	}
}

// boxesPerBand returns the box count of each band, south to north.
func (s Scheme) boxesPerBand() ([]int, error) {
	switch s {
	case SchemeEqualArea:
		return []int{4, 8, 12, 16, 16, 12, 8, 4}, nil
	case SchemeUniform:
		return []int{10, 10, 10, 10, 10, 10, 10, 10}, nil
	default:
		return nil, fmt.Errorf("unknown grid scheme %q", s)
	}
}

// BuildCoarse returns the 80 boxes of the scheme ordered south to north by
// band and west to east within a band.
func BuildCoarse(scheme Scheme) ([]Cell, error) {
	counts, err := scheme.boxesPerBand()
	if err != nil {
		return nil, err
	}

	cells := make([]Cell, 0, CoarseCellCount)
	for band, n := range counts {
		south, north := BandEdges[band], BandEdges[band+1]
		for i := range n {
			west := split(-180, 180, i, n)
			east := split(-180, 180, i+1, n)
			idx := len(cells)
			cells = append(cells, newCell(idx, idx, south, north, west, east))
		}
	}
	return cells, nil
}

// BuildFine splits every box into n equal-area latitude sub-bands and n
// equal-width longitude spans. Sub-boxes keep their parent's order and are
// ordered south to north, then west to east, inside it.
func BuildFine(coarse []Cell, n int) []Cell {
	if n <= 0 {
		return nil
	}

	cells := make([]Cell, 0, len(coarse)*n*n)
	for _, box := range coarse {
		for row := range n {
			south := equalAreaSplit(box.SouthernBound, box.NorthernBound, row, n)
			north := equalAreaSplit(box.SouthernBound, box.NorthernBound, row+1, n)
			for col := range n {
				west := split(box.WesternBound, box.EasternBound, col, n)
				east := split(box.WesternBound, box.EasternBound, col+1, n)
				cells = append(cells, newCell(len(cells), box.Index, south, north, west, east))
			}
		}
	}
	return cells
}

// split returns the i-th of n+1 evenly spaced edges between lo and hi. The
// end edges are returned exactly so neighboring cells share bounds bit for bit.
func split(lo, hi float64, i, n int) float64 {
	switch i {
	case 0:
		return lo
	case n:
		return hi
	default:
		return geo.Lerp(lo, hi, float64(i)/float64(n))
	}
}

// equalAreaSplit is split evenly in sin(latitude), so the sub-bands have
// equal area.
func equalAreaSplit(south, north float64, i, n int) float64 {
	switch i {
	case 0:
		return south
	case n:
		return north
	}
	s := geo.Lerp(math.Sin(geo.Radians(south)), math.Sin(geo.Radians(north)), float64(i)/float64(n))
	return geo.Degrees(math.Asin(math.Max(-1, math.Min(1, s))))
}
