// Command genstations generates a deterministic synthetic station fixture for
// load tests and gridcheck runs. Stations are spread uniformly over the
// sphere and carry a short monthly series with occasional missing values.
//
// Usage:
//
//	go run ./cmd/genstations -n 5000 -seed 1880 -out data/mock/stations_synthetic.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/couchcryptid/gistemp-grid/internal/domain"
	"github.com/couchcryptid/gistemp-grid/internal/geo"
	"github.com/couchcryptid/gistemp-grid/internal/grid"
	"github.com/couchcryptid/gistemp-grid/internal/station"
)

const (
	firstYear     = 2020
	seriesMonths  = 24
	missingChance = 0.05
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	n := flag.Int("n", 1000, "number of stations to generate")
	seed := flag.Uint64("seed", 1880, "random seed")
	out := flag.String("out", "", "output path for the JSON fixture")
	flag.Parse()

	if *out == "" || *n <= 0 {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out and a positive -n")
	}

	records := generate(*n, *seed)
	if err := writeJSON(*out, records); err != nil {
		return fmt.Errorf("writing %s: %w", *out, err)
	}
	log.Printf("wrote %d stations to %s", len(records), *out)

	return printStats(records)
}

func generate(n int, seed uint64) []domain.StationRecord {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	records := make([]domain.StationRecord, n)
	for i := range records {
		// Uniform on the sphere: sin(lat) is uniform in [-1, 1].
		lat := round4(geo.Degrees(math.Asin(2*r.Float64() - 1)))
		lon := round4(r.Float64()*360 - 180)

		records[i] = domain.StationRecord{
			ID:     fmt.Sprintf("SYN%08d", i),
			Name:   fmt.Sprintf("SYNTHETIC %d", i),
			Lat:    &lat,
			Lon:    &lon,
			Series: series(r, lat),
		}
	}
	return records
}

// series models a seasonal cycle whose amplitude grows with latitude.
func series(r *rand.Rand, lat float64) []station.Reading {
	base := 28 - 0.4*math.Abs(lat)
	amplitude := 0.25 * math.Abs(lat)
	readings := make([]station.Reading, seriesMonths)
	for m := range readings {
		readings[m] = station.Reading{Year: firstYear + m/12, Month: m%12 + 1}
		if r.Float64() < missingChance {
			continue
		}
		season := math.Cos(2 * math.Pi * float64(m%12-6) / 12)
		if lat < 0 {
			season = -season
		}
		v := round4(base - amplitude*season + r.NormFloat64())
		readings[m].Value = &v
	}
	return readings
}

func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(records []domain.StationRecord) error {
	g, err := grid.New(grid.DefaultConfig())
	if err != nil {
		return err
	}

	bands := make([]int, len(grid.BandEdges)-1)
	boxes := map[int]int{}
	missing := 0
	for _, rec := range records {
		for b := range bands {
			if *rec.Lat >= grid.BandEdges[b] && (*rec.Lat < grid.BandEdges[b+1] || b == len(bands)-1) {
				bands[b]++
				break
			}
		}
		if c, ok := g.Locate(*rec.Lat, *rec.Lon); ok {
			boxes[c.Box]++
		}
		for _, rd := range rec.Series {
			if rd.Value == nil {
				missing++
			}
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(records))
	fmt.Printf("Missing readings: %d of %d\n", missing, len(records)*seriesMonths)
	fmt.Printf("Coarse boxes with a station: %d of %d\n", len(boxes), grid.CoarseCellCount)
	fmt.Println("By latitude band:")
	for b, c := range bands {
		fmt.Printf("  [%6.1f, %6.1f): %d\n", grid.BandEdges[b], grid.BandEdges[b+1], c)
	}
	return nil
}
