// Command gridcheck performs offline integrity checks of the gridding core:
// grid construction, area conservation, distance properties, the weight
// function, and optionally the association of a station fixture with the
// full grid. It prints PASS/FAIL per phase.
//
// Usage:
//
//	go run ./cmd/gridcheck \
//	  -scheme equal-area -subdivisions 10 -cutoff 1200 \
//	  -stations data/mock/stations.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/couchcryptid/gistemp-grid/internal/domain"
	"github.com/couchcryptid/gistemp-grid/internal/geo"
	"github.com/couchcryptid/gistemp-grid/internal/grid"
	"github.com/couchcryptid/gistemp-grid/internal/station"
	"github.com/couchcryptid/gistemp-grid/internal/weight"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	scheme := flag.String("scheme", string(grid.SchemeEqualArea), "coarse grid scheme: equal-area or uniform")
	subdivisions := flag.Int("subdivisions", grid.DefaultSubdivisions, "fine subdivisions per coarse box side")
	cutoff := flag.Float64("cutoff", weight.DefaultCutoffKm, "station influence radius in km")
	stationsPath := flag.String("stations", "", "optional JSON array of station records to associate")
	flag.Parse()

	s, err := grid.ParseScheme(*scheme)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(grid.Config{Scheme: s, Subdivisions: *subdivisions}, *cutoff, *stationsPath))
}

func run(cfg grid.Config, cutoff float64, stationsPath string) int {
	fmt.Println("=== Grid Integrity Validation ===")
	fmt.Printf("scheme=%s subdivisions=%d cutoff=%.1fkm\n\n", cfg.Scheme, cfg.Subdivisions, cutoff)

	g, buildPhase := validateConstruction(cfg)
	phases := []*phase{buildPhase}
	if g != nil {
		phases = append(phases, validateAreas(g))
	}
	phases = append(phases,
		validateDistance(),
		validateWeightFunction(cutoff),
	)
	if stationsPath != "" && g != nil {
		phases = append(phases, validateAssociation(g, cutoff, stationsPath))
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Construction ──

func validateConstruction(cfg grid.Config) (*grid.Grid, *phase) {
	p := &phase{name: "Phase 1: Grid Construction"}

	g, err := grid.New(cfg)
	if err != nil {
		p.errorf("build grid: %v", err)
		return nil, p
	}
	if n := len(g.Coarse()); n != grid.CoarseCellCount {
		p.errorf("coarse cells: got %d, want %d", n, grid.CoarseCellCount)
	}
	if want := grid.CoarseCellCount * cfg.Subdivisions * cfg.Subdivisions; g.Len() != want {
		p.errorf("fine cells: got %d, want %d", g.Len(), want)
	}
	for _, c := range g.Fine() {
		located, ok := g.Locate(c.CenterLat, c.CenterLon)
		if !ok || located.Index != c.Index {
			p.errorf("cell %d: center does not locate back to the cell", c.Index)
		}
	}
	return g, p
}

// ── Phase 2: Area Conservation ──

func validateAreas(g *grid.Grid) *phase {
	p := &phase{name: "Phase 2: Area Conservation"}

	sphere := geo.SphereAreaKm2()
	fine := make([]float64, 0, g.Len())
	for _, c := range g.Fine() {
		fine = append(fine, c.AreaKm2)
	}
	total := floats.SumCompensated(fine)
	if !scalar.EqualWithinRel(total, sphere, grid.AreaTolerance) {
		p.errorf("fine area %.3f km² differs from sphere %.3f km²", total, sphere)
	}

	for _, box := range g.Coarse() {
		children := g.Children(box.Index)
		areas := make([]float64, len(children))
		for i, c := range children {
			areas[i] = c.AreaKm2
		}
		if sum := floats.SumCompensated(areas); !scalar.EqualWithinRel(sum, box.AreaKm2, grid.AreaTolerance) {
			p.errorf("box %d: children sum %.3f km², box %.3f km²", box.Index, sum, box.AreaKm2)
		}
	}

	fmt.Printf("total area %.1f km² (relative error %.2e)\n", total, math.Abs(total-sphere)/sphere)
	return p
}

// ── Phase 3: Distance ──

func validateDistance() *phase {
	p := &phase{name: "Phase 3: Great-Circle Distance"}
	r := rand.New(rand.NewPCG(1, 2))

	for i := range 10000 {
		lat1, lon1 := r.Float64()*180-90, r.Float64()*360-180
		lat2, lon2 := r.Float64()*180-90, r.Float64()*360-180

		if d := geo.DistanceKm(lat1, lon1, lat1, lon1); d != 0 {
			p.errorf("sample %d: self distance %v", i, d)
		}
		ab := geo.DistanceKm(lat1, lon1, lat2, lon2)
		ba := geo.DistanceKm(lat2, lon2, lat1, lon1)
		if ab != ba {
			p.errorf("sample %d: asymmetric distance %v vs %v", i, ab, ba)
		}
		if ab < 0 || ab > math.Pi*geo.EarthRadiusKm+1e-6 {
			p.errorf("sample %d: distance %v outside [0, πR]", i, ab)
		}
	}
	return p
}

// ── Phase 4: Weight Function ──

func validateWeightFunction(cutoff float64) *phase {
	p := &phase{name: "Phase 4: Linear Weight Function"}

	if w := geo.LinearWeight(0, cutoff); w != 1 {
		p.errorf("weight at distance 0: got %v, want 1", w)
	}
	if w := geo.LinearWeight(cutoff, cutoff); w != 0 {
		p.errorf("weight at cutoff: got %v, want 0", w)
	}
	prev := math.Inf(1)
	for d := 0.0; d <= cutoff; d += cutoff / 1000 {
		w := geo.LinearWeight(d, cutoff)
		if w > prev {
			p.errorf("weight increases at %.3f km", d)
			break
		}
		prev = w
	}
	return p
}

// ── Phase 5: Station Association ──

func validateAssociation(g *grid.Grid, cutoff float64, path string) *phase {
	p := &phase{name: "Phase 5: Station Association"}

	records, err := loadJSON[domain.StationRecord](path)
	if err != nil {
		p.errorf("load stations: %v", err)
		return p
	}
	stations := make([]station.Station, 0, len(records))
	for i, rec := range records {
		data, _ := json.Marshal(rec)
		s, err := domain.ParseStationRecord(data)
		if err != nil {
			p.errorf("record %d: %v", i, err)
			continue
		}
		stations = append(stations, s)
	}
	idx, err := station.NewIndex(stations)
	if err != nil {
		p.errorf("index stations: %v", err)
		return p
	}

	engine, err := weight.New(weight.Config{CutoffKm: cutoff}, sharedobs.NewLogger("warn", "text"))
	if err != nil {
		p.errorf("create engine: %v", err)
		return p
	}
	start := time.Now()
	ws, err := engine.Associate(context.Background(), g.Fine(), idx)
	if err != nil {
		p.errorf("associate: %v", err)
		return p
	}
	elapsed := time.Since(start)

	for i, c := range g.Fine() {
		for id, w := range ws[i] {
			s, _ := idx.Lookup(id)
			d := geo.DistanceKm(c.CenterLat, c.CenterLon, s.Lat, s.Lon)
			if d >= cutoff {
				p.errorf("cell %d: station %s at %.3f km is beyond the cutoff", c.Index, id, d)
			}
			if w <= 0 || w > 1 {
				p.errorf("cell %d: station %s weight %v outside (0, 1]", c.Index, id, w)
			}
		}
	}

	sum := weight.Summarize(ws)
	fmt.Printf("stations=%d covered=%d/%d mean=%.2f p95=%.0f max=%.0f in %s\n",
		idx.Len(), sum.Covered, sum.Cells, sum.MeanStations, sum.P95Stations, sum.MaxStations, elapsed)
	return p
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}
