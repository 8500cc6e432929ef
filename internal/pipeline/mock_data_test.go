package pipeline_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/gistemp-grid/internal/domain"
	"github.com/couchcryptid/gistemp-grid/internal/geo"
	"github.com/couchcryptid/gistemp-grid/internal/grid"
	"github.com/couchcryptid/gistemp-grid/internal/pipeline"
	"github.com/couchcryptid/gistemp-grid/internal/station"
	"github.com/couchcryptid/gistemp-grid/internal/weight"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStationTransformer_WithMockJSONData(t *testing.T) {
	transformer := pipeline.NewTransformer(nil, discardLogger())
	records := readMockStations(t)
	require.Len(t, records, 16)

	stations := make([]station.Station, 0, len(records))
	for _, rec := range records {
		raw := rawEventFromRecord(t, rec)

		change, err := transformer.Transform(context.Background(), raw)
		require.NoError(t, err, rec.ID)
		assert.False(t, change.Deleted)
		assert.Equal(t, rec.ID, change.Station.ID)
		assert.InDelta(t, *rec.Lat, change.Station.Lat, 0)
		assert.InDelta(t, *rec.Lon, change.Station.Lon, 0)
		assert.Equal(t, rec.Series, change.Station.Series)
		stations = append(stations, change.Station)
	}

	idx, err := station.NewIndex(stations)
	require.NoError(t, err)

	engine, err := weight.New(weight.DefaultConfig(), discardLogger())
	require.NoError(t, err)
	g := grid.MustNew(grid.DefaultConfig())

	ws, err := engine.Associate(context.Background(), g.Fine(), idx)
	require.NoError(t, err)
	require.Len(t, ws, g.Len())

	sum := weight.Summarize(ws)
	assert.Equal(t, g.Len(), sum.Cells)
	assert.Positive(t, sum.Covered)
	assert.Positive(t, sum.Empty, "sixteen stations cannot cover the globe")

	// Each station's own fine cell is within the cutoff of it.
	for _, s := range stations {
		cell, ok := g.Locate(s.Lat, s.Lon)
		require.True(t, ok, s.ID)
		w, ok := ws[cell.Index][s.ID]
		require.True(t, ok, s.ID)
		d := geo.DistanceKm(cell.CenterLat, cell.CenterLon, s.Lat, s.Lon)
		assert.InDelta(t, geo.LinearWeight(d, weight.DefaultCutoffKm), w, 1e-12, s.ID)
	}
}

func readMockStations(t *testing.T) []domain.StationRecord {
	t.Helper()

	path := filepath.Join("..", "..", "data", "mock", "stations.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var records []domain.StationRecord
	require.NoError(t, json.Unmarshal(data, &records))
	return records
}

func rawEventFromRecord(t *testing.T, rec domain.StationRecord) domain.RawEvent {
	t.Helper()
	payload, err := json.Marshal(rec)
	require.NoError(t, err)

	return domain.RawEvent{
		Key:   []byte(rec.ID),
		Value: payload,
		Topic: "gistemp-stations",
	}
}
