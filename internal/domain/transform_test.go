package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/gistemp-grid/internal/grid"
	"github.com/couchcryptid/gistemp-grid/internal/station"
	"github.com/couchcryptid/gistemp-grid/internal/weight"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStationID = "USW00023183"

func frozenClock(t *testing.T) time.Time {
	t.Helper()
	at := time.Date(2024, 4, 26, 15, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(at))
	t.Cleanup(func() { SetClock(nil) })
	return at
}

func TestParseStationRecord(t *testing.T) {
	t.Run("valid record", func(t *testing.T) {
		data := []byte(`{"id":"USW00023183","name":"PHOENIX","lat":33.43,"lon":-112.02,"series":[{"year":1990,"month":1,"value":12.5},{"year":1990,"month":2,"value":null}]}`)
		s, err := ParseStationRecord(data)

		require.NoError(t, err)
		assert.Equal(t, testStationID, s.ID)
		assert.Equal(t, "PHOENIX", s.Name)
		assert.InDelta(t, 33.43, s.Lat, 0)
		assert.InDelta(t, -112.02, s.Lon, 0)
		require.Len(t, s.Series, 2)
		require.NotNil(t, s.Series[0].Value)
		assert.InDelta(t, 12.5, *s.Series[0].Value, 0)
		assert.Nil(t, s.Series[1].Value, "missing month passes through")
	})

	t.Run("equator and prime meridian are valid", func(t *testing.T) {
		s, err := ParseStationRecord([]byte(`{"id":"ZERO","lat":0,"lon":0}`))
		require.NoError(t, err)
		assert.Zero(t, s.Lat)
		assert.Zero(t, s.Lon)
	})

	t.Run("missing latitude", func(t *testing.T) {
		_, err := ParseStationRecord([]byte(`{"id":"NOLAT","lon":10}`))
		require.ErrorIs(t, err, station.ErrInvalidCoordinate)
		assert.Contains(t, err.Error(), "NOLAT")
	})

	t.Run("missing longitude", func(t *testing.T) {
		_, err := ParseStationRecord([]byte(`{"id":"NOLON","lat":10}`))
		require.ErrorIs(t, err, station.ErrInvalidCoordinate)
	})

	t.Run("out of range latitude", func(t *testing.T) {
		_, err := ParseStationRecord([]byte(`{"id":"NORTH","lat":90.5,"lon":0}`))
		require.ErrorIs(t, err, station.ErrInvalidCoordinate)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := ParseStationRecord([]byte(`{"lat":1,"lon":1}`))
		require.ErrorIs(t, err, station.ErrMissingID)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ParseStationRecord([]byte(`{"id":`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse station record")
	})
}

func TestParseStationChange(t *testing.T) {
	t.Run("upsert", func(t *testing.T) {
		raw := RawEvent{Key: []byte("A"), Value: []byte(`{"id":"A","lat":1,"lon":2}`)}
		c, err := ParseStationChange(raw)
		require.NoError(t, err)
		assert.False(t, c.Deleted)
		assert.Equal(t, "A", c.Station.ID)
	})

	t.Run("tombstone", func(t *testing.T) {
		c, err := ParseStationChange(RawEvent{Key: []byte("A")})
		require.NoError(t, err)
		assert.True(t, c.Deleted)
		assert.Equal(t, "A", c.Station.ID)
	})

	t.Run("tombstone without key", func(t *testing.T) {
		_, err := ParseStationChange(RawEvent{})
		require.ErrorIs(t, err, ErrMissingKey)
	})
}

func TestNewStationRecord_RoundTrip(t *testing.T) {
	v := 1.5
	s := station.Station{ID: "X", Name: "EX", Lat: -12.5, Lon: 130, Series: []station.Reading{{Year: 2000, Month: 6, Value: &v}}}

	data, err := json.Marshal(NewStationRecord(s))
	require.NoError(t, err)

	got, err := ParseStationRecord(data)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestParseEncoding(t *testing.T) {
	enc, err := ParseEncoding("json")
	require.NoError(t, err)
	assert.Equal(t, EncodingJSON, enc)
	assert.Equal(t, "application/json", enc.ContentType())

	enc, err = ParseEncoding("msgpack")
	require.NoError(t, err)
	assert.Equal(t, EncodingMsgpack, enc)
	assert.Equal(t, "application/x-msgpack", enc.ContentType())

	_, err = ParseEncoding("xml")
	require.Error(t, err)
}

func TestNewCellWeights(t *testing.T) {
	at := frozenClock(t)
	cell := grid.MustNew(grid.DefaultConfig()).Fine()[42]

	cw := NewCellWeights(3, cell, nil)
	assert.Equal(t, uint64(3), cw.Generation)
	assert.Equal(t, cell, cw.Cell)
	assert.NotNil(t, cw.Weights)
	assert.Empty(t, cw.Weights)
	assert.Equal(t, at, cw.GeneratedAt)
}

func TestSerializeCellWeights(t *testing.T) {
	at := frozenClock(t)
	cell := grid.MustNew(grid.DefaultConfig()).Fine()[7999]
	cw := NewCellWeights(12, cell, weight.Weights{"A": 0.75, "B": 0.125})

	for _, enc := range []Encoding{EncodingJSON, EncodingMsgpack} {
		t.Run(string(enc), func(t *testing.T) {
			out, err := SerializeCellWeights(cw, enc)
			require.NoError(t, err)

			assert.Equal(t, []byte("7999"), out.Key)
			assert.Equal(t, "12", out.Headers["generation"])
			assert.Equal(t, string(enc), out.Headers["encoding"])
			assert.Equal(t, "2024-04-26T15:00:00Z", out.Headers["generated_at"])

			got, err := DecodeCellWeights(out.Value, enc)
			require.NoError(t, err)
			assert.Equal(t, cw.Generation, got.Generation)
			assert.Equal(t, cw.Cell, got.Cell)
			assert.Equal(t, cw.Weights, got.Weights)
			assert.True(t, at.Equal(got.GeneratedAt))
			assert.Equal(t, time.UTC, got.GeneratedAt.Location())
		})
	}
}

func TestSerializeCellWeights_JSONShape(t *testing.T) {
	frozenClock(t)
	cw := NewCellWeights(1, grid.Cell{Index: 5, CenterLat: 10, CenterLon: 20}, weight.Weights{"A": 1})

	out, err := SerializeCellWeights(cw, EncodingJSON)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out.Value, &doc))
	assert.Contains(t, doc, "generation")
	assert.Contains(t, doc, "weights")
	assert.Contains(t, doc, "generated_at")
	cellDoc, ok := doc["cell"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 5.0, cellDoc["index"], 0)
	assert.InDelta(t, 10.0, cellDoc["center_lat"], 0)
}

func TestDecodeCellWeights_Malformed(t *testing.T) {
	_, err := DecodeCellWeights([]byte("{"), EncodingJSON)
	require.Error(t, err)

	_, err = DecodeCellWeights([]byte{0xc1}, EncodingMsgpack)
	require.Error(t, err)
}

func TestGridSnapshot_CellWeights(t *testing.T) {
	var nilSnap *GridSnapshot
	_, ok := nilSnap.CellWeights(0)
	assert.False(t, ok)

	snap := &GridSnapshot{
		Generation:  2,
		Cells:       []grid.Cell{{Index: 0}, {Index: 1}},
		Weights:     []weight.Weights{{}, {"A": 0.5}},
		GeneratedAt: time.Unix(0, 0).UTC(),
	}
	cw, ok := snap.CellWeights(1)
	require.True(t, ok)
	assert.Equal(t, uint64(2), cw.Generation)
	assert.Equal(t, 1, cw.Cell.Index)
	assert.InDelta(t, 0.5, cw.Weights["A"], 0)

	_, ok = snap.CellWeights(2)
	assert.False(t, ok)
	_, ok = snap.CellWeights(-1)
	assert.False(t, ok)
}
