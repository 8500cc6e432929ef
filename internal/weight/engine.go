// Package weight associates stations with grid cells. Every station closer
// to a cell's center than the cutoff radius contributes to that cell with a
// weight falling linearly from 1 at the center to 0 at the cutoff.
package weight

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/couchcryptid/gistemp-grid/internal/geo"
	"github.com/couchcryptid/gistemp-grid/internal/grid"
	"github.com/couchcryptid/gistemp-grid/internal/station"
	"golang.org/x/sync/errgroup"
)

// DefaultCutoffKm is the GISTEMP station influence radius.
const DefaultCutoffKm = 1200.0

// cellsPerTask is the number of consecutive cells a worker handles per task.
const cellsPerTask = 64

// latitudeSlackDeg widens the latitude prefilter so rounding in the distance
// computation can never drop a station the full scan would keep.
const latitudeSlackDeg = 1e-6

// Weights maps station identifiers to their weight in one cell.
type Weights map[string]float64

// Config holds the engine settings.
type Config struct {
	CutoffKm float64
	// Workers bounds the number of cells processed concurrently. Zero means
	// GOMAXPROCS.
	Workers int
}

// DefaultConfig returns the GISTEMP cutoff with one worker per CPU.
func DefaultConfig() Config {
	return Config{CutoffKm: DefaultCutoffKm}
}

// Engine computes cell/station associations.
type Engine struct {
	cutoffKm float64
	workers  int
	logger   *slog.Logger
}

// New creates an Engine.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if cfg.CutoffKm <= 0 || math.IsNaN(cfg.CutoffKm) || math.IsInf(cfg.CutoffKm, 0) {
		return nil, fmt.Errorf("cutoff radius must be a positive number of kilometers, got %v", cfg.CutoffKm)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cutoffKm: cfg.CutoffKm, workers: workers, logger: logger}, nil
}

// CutoffKm returns the influence radius.
func (e *Engine) CutoffKm() float64 { return e.cutoffKm }

// Associate returns one Weights per cell, in cell order. A cell without any
// station inside the cutoff gets an empty map. Cancelling ctx stops the work
// between cells and returns ctx.Err().
func (e *Engine) Associate(ctx context.Context, cells []grid.Cell, idx *station.Index) ([]Weights, error) {
	start := time.Now()
	out := make([]Weights, len(cells))
	sc := e.newScan(idx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for lo := 0; lo < len(cells); lo += cellsPerTask {
		hi := min(lo+cellsPerTask, len(cells))
		g.Go(func() error {
			var scratch []candidate
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				out[i], scratch = sc.cell(cells[i], scratch[:0])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.logger.Debug("associated stations with cells",
		"cells", len(cells),
		"stations", sc.len(),
		"cutoff_km", e.cutoffKm,
		"duration", time.Since(start),
	)
	return out, nil
}

// AssociateCell computes the weights of a single cell.
func (e *Engine) AssociateCell(cell grid.Cell, idx *station.Index) Weights {
	w, _ := e.newScan(idx).cell(cell, nil)
	return w
}

type candidate struct {
	id     string
	weight float64
}

// scan is the read-only per-call view of the station table: positions sorted
// by latitude together with their latitudes for binary search.
type scan struct {
	cutoffKm  float64
	windowDeg float64
	idx       *station.Index
	order     []int
	lats      []float64
}

func (e *Engine) newScan(idx *station.Index) *scan {
	sc := &scan{
		cutoffKm:  e.cutoffKm,
		windowDeg: geo.AngularRadiusDeg(e.cutoffKm) + latitudeSlackDeg,
		idx:       idx,
	}
	if idx == nil {
		return sc
	}
	sc.order = idx.LatitudeOrder()
	sc.lats = make([]float64, len(sc.order))
	for i, pos := range sc.order {
		sc.lats[i] = idx.At(pos).Lat
	}
	return sc
}

func (sc *scan) len() int { return len(sc.order) }

// cell collects every station strictly inside the cutoff of c. Only stations
// whose latitude is within the cutoff's angular radius are distance-tested.
func (sc *scan) cell(c grid.Cell, scratch []candidate) (Weights, []candidate) {
	lo := c.CenterLat - sc.windowDeg
	hi := c.CenterLat + sc.windowDeg

	first := sort.SearchFloat64s(sc.lats, lo)
	for k := first; k < len(sc.lats) && sc.lats[k] <= hi; k++ {
		s := sc.idx.At(sc.order[k])
		d := geo.DistanceKm(c.CenterLat, c.CenterLon, s.Lat, s.Lon)
		if d >= sc.cutoffKm {
			continue
		}
		scratch = append(scratch, candidate{id: s.ID, weight: geo.LinearWeight(d, sc.cutoffKm)})
	}

	w := make(Weights, len(scratch))
	for _, cand := range scratch {
		w[cand.id] = cand.weight
	}
	return w, scratch
}
