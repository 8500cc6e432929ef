package domain

import (
	"time"

	"github.com/couchcryptid/gistemp-grid/internal/grid"
	"github.com/couchcryptid/gistemp-grid/internal/station"
	"github.com/couchcryptid/gistemp-grid/internal/weight"
)

// StationRecord is the JSON document the upstream ETL publishes for each
// cleaned station. Coordinates are pointers so a missing field is not
// mistaken for the equator or the prime meridian.
type StationRecord struct {
	ID     string            `json:"id"`
	Name   string            `json:"name,omitempty"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Series []station.Reading `json:"series,omitempty"`
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
}

// StationChange is the effect of one source message on the station table.
type StationChange struct {
	Station station.Station
	// Deleted removes Station.ID from the table.
	Deleted bool
	// Omitted marks a deletion caused by omit rules emptying the series.
	Omitted bool
}

// CellWeights is the published association of one fine cell.
type CellWeights struct {
	Generation  uint64             `json:"generation" msgpack:"generation"`
	Cell        grid.Cell          `json:"cell" msgpack:"cell"`
	Weights     map[string]float64 `json:"weights" msgpack:"weights"`
	GeneratedAt time.Time          `json:"generated_at" msgpack:"generated_at"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// GridSnapshot is one complete, published association of the station table
// with the grid. Weights[i] belongs to Cells[i].
type GridSnapshot struct {
	Generation     uint64
	StationVersion uint64
	Stations       *station.Index
	Cells          []grid.Cell
	Weights        []weight.Weights
	Summary        weight.Summary
	GeneratedAt    time.Time
}

// CellWeights returns the published association of cell index.
func (s *GridSnapshot) CellWeights(index int) (CellWeights, bool) {
	if s == nil || index < 0 || index >= len(s.Cells) {
		return CellWeights{}, false
	}
	return CellWeights{
		Generation:  s.Generation,
		Cell:        s.Cells[index],
		Weights:     s.Weights[index],
		GeneratedAt: s.GeneratedAt,
	}, true
}
