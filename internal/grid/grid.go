// Package grid builds the GISTEMP equal-area partition of the sphere: 80
// coarse boxes, each split into sub-boxes (10×10 by default, 8000 cells).
//
// The geometry depends only on constants, so a Grid is built once at startup
// and shared read-only for the life of the process.
package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/couchcryptid/gistemp-grid/internal/geo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// AreaTolerance is the relative tolerance of the area conservation checks.
const AreaTolerance = 1e-6

// Config selects the grid layout.
type Config struct {
	Scheme       Scheme
	Subdivisions int
}

// DefaultConfig is the canonical GISTEMP 8000-cell grid.
func DefaultConfig() Config {
	return Config{Scheme: SchemeEqualArea, Subdivisions: DefaultSubdivisions}
}

// InvariantError reports a grid that violates a construction invariant.
// It always indicates a defect in the build code or its constants.
type InvariantError struct {
	Check  string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("grid invariant %q violated: %s", e.Check, e.Detail)
}

// Grid holds the coarse boxes and the fine cells derived from them.
type Grid struct {
	scheme       Scheme
	subdivisions int
	coarse       []Cell
	fine         []Cell
}

// New builds the grid described by cfg and verifies it.
func New(cfg Config) (*Grid, error) {
	if cfg.Subdivisions <= 0 {
		return nil, fmt.Errorf("grid subdivisions must be positive, got %d", cfg.Subdivisions)
	}
	coarse, err := BuildCoarse(cfg.Scheme)
	if err != nil {
		return nil, err
	}
	fine := BuildFine(coarse, cfg.Subdivisions)
	if err := Verify(coarse, fine, cfg.Subdivisions); err != nil {
		return nil, err
	}
	return &Grid{
		scheme:       cfg.Scheme,
		subdivisions: cfg.Subdivisions,
		coarse:       coarse,
		fine:         fine,
	}, nil
}

// MustNew is New for callers that treat a bad grid as a programming error.
func MustNew(cfg Config) *Grid {
	g, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return g
}

// Scheme returns the band layout the grid was built with.
func (g *Grid) Scheme() Scheme { return g.scheme }

// Subdivisions returns the per-axis split factor of each box.
func (g *Grid) Subdivisions() int { return g.subdivisions }

// Len returns the number of fine cells.
func (g *Grid) Len() int { return len(g.fine) }

// Coarse returns a copy of the boxes.
func (g *Grid) Coarse() []Cell {
	out := make([]Cell, len(g.coarse))
	copy(out, g.coarse)
	return out
}

// Fine returns a copy of the fine cells.
func (g *Grid) Fine() []Cell {
	out := make([]Cell, len(g.fine))
	copy(out, g.fine)
	return out
}

// Cell returns the fine cell at index.
func (g *Grid) Cell(index int) (Cell, bool) {
	if index < 0 || index >= len(g.fine) {
		return Cell{}, false
	}
	return g.fine[index], true
}

// Children returns the fine cells of a box.
func (g *Grid) Children(box int) []Cell {
	if box < 0 || box >= len(g.coarse) {
		return nil
	}
	per := g.subdivisions * g.subdivisions
	out := make([]Cell, per)
	copy(out, g.fine[box*per:(box+1)*per])
	return out
}

// Locate returns the fine cell containing the point.
func (g *Grid) Locate(lat, lon float64) (Cell, bool) {
	per := g.subdivisions * g.subdivisions
	for _, box := range g.coarse {
		if !box.Contains(lat, lon) {
			continue
		}
		for _, c := range g.fine[box.Index*per : (box.Index+1)*per] {
			if c.Contains(lat, lon) {
				return c, true
			}
		}
	}
	return Cell{}, false
}

// Verify checks cell counts, bounds, finiteness and area conservation of a
// coarse/fine pair built with n subdivisions.
func Verify(coarse, fine []Cell, n int) error {
	if len(coarse) != CoarseCellCount {
		return &InvariantError{Check: "coarse count", Detail: fmt.Sprintf("got %d cells, want %d", len(coarse), CoarseCellCount)}
	}
	per := n * n
	if len(fine) != len(coarse)*per {
		return &InvariantError{Check: "fine count", Detail: fmt.Sprintf("got %d cells, want %d", len(fine), len(coarse)*per)}
	}

	if err := verifyCells(coarse); err != nil {
		return err
	}
	if err := verifyCells(fine); err != nil {
		return err
	}

	areas := make([]float64, per)
	for _, box := range coarse {
		children := fine[box.Index*per : (box.Index+1)*per]
		for i, c := range children {
			if c.Box != box.Index {
				return &InvariantError{Check: "parent", Detail: fmt.Sprintf("cell %d has box %d, want %d", c.Index, c.Box, box.Index)}
			}
			areas[i] = c.AreaKm2
		}
		sum := floats.SumCompensated(areas)
		if !scalar.EqualWithinRel(sum, box.AreaKm2, AreaTolerance) {
			return &InvariantError{Check: "box area", Detail: fmt.Sprintf("box %d children sum to %g km², box is %g km²", box.Index, sum, box.AreaKm2)}
		}
	}

	total := floats.SumCompensated(cellAreas(fine))
	if !scalar.EqualWithinRel(total, geo.SphereAreaKm2(), AreaTolerance) {
		return &InvariantError{Check: "sphere area", Detail: fmt.Sprintf("cells sum to %g km², sphere is %g km²", total, geo.SphereAreaKm2())}
	}
	return nil
}

func verifyCells(cells []Cell) error {
	for i, c := range cells {
		if c.Index != i {
			return &InvariantError{Check: "ordering", Detail: fmt.Sprintf("cell at position %d has index %d", i, c.Index)}
		}
		values := []float64{c.SouthernBound, c.NorthernBound, c.WesternBound, c.EasternBound, c.CenterLat, c.CenterLon, c.AreaKm2}
		for _, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &InvariantError{Check: "finite", Detail: fmt.Sprintf("cell %d has a non-finite value", i)}
			}
		}
		if c.SouthernBound < -90 || c.NorthernBound > 90 || c.SouthernBound >= c.NorthernBound {
			return &InvariantError{Check: "latitude bounds", Detail: fmt.Sprintf("cell %d spans %g..%g", i, c.SouthernBound, c.NorthernBound)}
		}
		if c.WesternBound < -180 || c.EasternBound > 180 || c.WesternBound >= c.EasternBound {
			return &InvariantError{Check: "longitude bounds", Detail: fmt.Sprintf("cell %d spans %g..%g", i, c.WesternBound, c.EasternBound)}
		}
		if c.CenterLat < c.SouthernBound || c.CenterLat > c.NorthernBound {
			return &InvariantError{Check: "center", Detail: fmt.Sprintf("cell %d center %g outside %g..%g", i, c.CenterLat, c.SouthernBound, c.NorthernBound)}
		}
		if c.AreaKm2 <= 0 {
			return &InvariantError{Check: "area", Detail: fmt.Sprintf("cell %d has area %g", i, c.AreaKm2)}
		}
	}
	return nil
}

func cellAreas(cells []Cell) []float64 {
	out := make([]float64, len(cells))
	for i, c := range cells {
		out[i] = c.AreaKm2
	}
	return out
}

// IsInvariantError reports whether err is a grid construction defect.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
