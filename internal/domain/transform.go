package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/couchcryptid/gistemp-grid/internal/grid"
	"github.com/couchcryptid/gistemp-grid/internal/station"
	"github.com/couchcryptid/gistemp-grid/internal/weight"
	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects the serialization of published cells.
type Encoding string

const (
	EncodingJSON    Encoding = "json"
	EncodingMsgpack Encoding = "msgpack"
)

// ParseEncoding validates an encoding name.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case EncodingJSON, EncodingMsgpack:
		return Encoding(s), nil
	default:
		return "", fmt.Errorf("unknown encoding %q (want %q or %q)", s, EncodingJSON, EncodingMsgpack)
	}
}

// ContentType returns the HTTP media type of the encoding.
func (e Encoding) ContentType() string {
	if e == EncodingMsgpack {
		return "application/x-msgpack"
	}
	return "application/json"
}

// Marshal encodes v with the encoding.
func (e Encoding) Marshal(v any) ([]byte, error) {
	if e == EncodingMsgpack {
		return msgpack.Marshal(v)
	}
	return json.Marshal(v)
}

// Unmarshal decodes data with the encoding.
func (e Encoding) Unmarshal(data []byte, v any) error {
	if e == EncodingMsgpack {
		return msgpack.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

// ErrMissingKey marks a tombstone without a station identifier.
var ErrMissingKey = errors.New("tombstone without key")

// ParseStationChange interprets one source message. An empty value is a
// tombstone deleting the station named by the key; anything else must be a
// StationRecord with valid coordinates.
func ParseStationChange(raw RawEvent) (StationChange, error) {
	if len(raw.Value) == 0 {
		if len(raw.Key) == 0 {
			return StationChange{}, ErrMissingKey
		}
		return StationChange{Station: station.Station{ID: string(raw.Key)}, Deleted: true}, nil
	}

	s, err := ParseStationRecord(raw.Value)
	if err != nil {
		return StationChange{}, err
	}
	return StationChange{Station: s}, nil
}

// ParseStationRecord decodes and validates a StationRecord.
func ParseStationRecord(data []byte) (station.Station, error) {
	var rec StationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return station.Station{}, fmt.Errorf("parse station record: %w", err)
	}
	if rec.Lat == nil {
		return station.Station{}, &station.ValidationError{StationID: rec.ID, Err: station.ErrInvalidCoordinate, Detail: "latitude missing"}
	}
	if rec.Lon == nil {
		return station.Station{}, &station.ValidationError{StationID: rec.ID, Err: station.ErrInvalidCoordinate, Detail: "longitude missing"}
	}

	s := station.Station{
		ID:     rec.ID,
		Name:   rec.Name,
		Lat:    *rec.Lat,
		Lon:    *rec.Lon,
		Series: rec.Series,
	}
	if err := station.Validate(s); err != nil {
		return station.Station{}, err
	}
	return s, nil
}

// NewStationRecord is the inverse of ParseStationRecord.
func NewStationRecord(s station.Station) StationRecord {
	lat, lon := s.Lat, s.Lon
	return StationRecord{ID: s.ID, Name: s.Name, Lat: &lat, Lon: &lon, Series: s.Series}
}

// NewCellWeights stamps a cell association with the current time.
func NewCellWeights(generation uint64, cell grid.Cell, w weight.Weights) CellWeights {
	if w == nil {
		w = weight.Weights{}
	}
	return CellWeights{
		Generation:  generation,
		Cell:        cell,
		Weights:     w,
		GeneratedAt: Now(),
	}
}

// SerializeCellWeights builds the sink message of a cell. The key is the
// cell index so a compacted sink topic keeps the latest generation per cell.
func SerializeCellWeights(cw CellWeights, enc Encoding) (OutputEvent, error) {
	data, err := enc.Marshal(cw)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize cell %d: %w", cw.Cell.Index, err)
	}
	return OutputEvent{
		Key:   []byte(strconv.Itoa(cw.Cell.Index)),
		Value: data,
		Headers: map[string]string{
			"generation":   strconv.FormatUint(cw.Generation, 10),
			"encoding":     string(enc),
			"generated_at": cw.GeneratedAt.Format(time.RFC3339),
		},
	}, nil
}

// DecodeCellWeights is the inverse of SerializeCellWeights.
func DecodeCellWeights(data []byte, enc Encoding) (CellWeights, error) {
	var cw CellWeights
	if err := enc.Unmarshal(data, &cw); err != nil {
		return CellWeights{}, fmt.Errorf("decode cell weights: %w", err)
	}
	cw.GeneratedAt = cw.GeneratedAt.UTC()
	return cw, nil
}
