package weight

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes how well a set of associations covers the grid.
type Summary struct {
	Cells        int     `json:"cells" msgpack:"cells"`
	Covered      int     `json:"covered" msgpack:"covered"`
	Empty        int     `json:"empty" msgpack:"empty"`
	Associations int     `json:"associations" msgpack:"associations"`
	MeanStations float64 `json:"mean_stations" msgpack:"mean_stations"`
	P50Stations  float64 `json:"p50_stations" msgpack:"p50_stations"`
	P95Stations  float64 `json:"p95_stations" msgpack:"p95_stations"`
	MaxStations  float64 `json:"max_stations" msgpack:"max_stations"`
}

// Coverage is the fraction of cells with at least one station.
func (s Summary) Coverage() float64 {
	if s.Cells == 0 {
		return 0
	}
	return float64(s.Covered) / float64(s.Cells)
}

// Summarize computes coverage statistics over per-cell weights.
func Summarize(ws []Weights) Summary {
	sum := Summary{Cells: len(ws)}
	if len(ws) == 0 {
		return sum
	}

	counts := make([]float64, len(ws))
	for i, w := range ws {
		counts[i] = float64(len(w))
		sum.Associations += len(w)
		if len(w) == 0 {
			sum.Empty++
		} else {
			sum.Covered++
		}
	}

	sort.Float64s(counts)
	sum.MeanStations = stat.Mean(counts, nil)
	sum.P50Stations = stat.Quantile(0.5, stat.Empirical, counts, nil)
	sum.P95Stations = stat.Quantile(0.95, stat.Empirical, counts, nil)
	sum.MaxStations = floats.Max(counts)
	return sum
}
