package http

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/gistemp-grid/internal/domain"
	"github.com/couchcryptid/gistemp-grid/internal/grid"
	"github.com/couchcryptid/gistemp-grid/internal/weight"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

type gridResponse struct {
	Generation   uint64      `json:"generation" msgpack:"generation"`
	Scheme       grid.Scheme `json:"scheme" msgpack:"scheme"`
	Subdivisions int         `json:"subdivisions" msgpack:"subdivisions"`
	Stations     int         `json:"stations" msgpack:"stations"`
	GeneratedAt  time.Time   `json:"generated_at" msgpack:"generated_at"`
	Cells        []grid.Cell `json:"cells" msgpack:"cells"`
}

type summaryResponse struct {
	Generation     uint64         `json:"generation" msgpack:"generation"`
	StationVersion uint64         `json:"station_version" msgpack:"station_version"`
	Stations       int            `json:"stations" msgpack:"stations"`
	GeneratedAt    time.Time      `json:"generated_at" msgpack:"generated_at"`
	Coverage       float64        `json:"coverage" msgpack:"coverage"`
	Summary        weight.Summary `json:"summary" msgpack:"summary"`
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	s.write(w, r, gridResponse{
		Generation:   snap.Generation,
		Scheme:       s.grid.Scheme(),
		Subdivisions: s.grid.Subdivisions(),
		Stations:     snap.Stations.Len(),
		GeneratedAt:  snap.GeneratedAt,
		Cells:        snap.Cells,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	s.write(w, r, summaryResponse{
		Generation:     snap.Generation,
		StationVersion: snap.StationVersion,
		Stations:       snap.Stations.Len(),
		GeneratedAt:    snap.GeneratedAt,
		Coverage:       snap.Summary.Coverage(),
		Summary:        snap.Summary,
	})
}

func (s *Server) handleCell(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cell index must be an integer")
		return
	}
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	cw, ok := snap.CellWeights(index)
	if !ok {
		writeError(w, http.StatusNotFound, "cell index out of range")
		return
	}
	s.writeCell(w, r, cw)
}

func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	lat, errLat := parseCoordinate(r.URL.Query().Get("lat"), 90)
	lon, errLon := parseCoordinate(r.URL.Query().Get("lon"), 180)
	if errLat != nil || errLon != nil {
		writeError(w, http.StatusBadRequest, "lat must be in [-90, 90] and lon in [-180, 180]")
		return
	}
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	cell, ok := s.grid.Locate(lat, lon)
	if !ok {
		writeError(w, http.StatusNotFound, "no cell contains the point")
		return
	}
	cw, ok := snap.CellWeights(cell.Index)
	if !ok {
		writeError(w, http.StatusNotFound, "cell index out of range")
		return
	}
	s.writeCell(w, r, cw)
}

// snapshot writes 503 and reports false before the first generation.
func (s *Server) snapshot(w http.ResponseWriter) (*domain.GridSnapshot, bool) {
	snap := s.source.Latest()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no grid generation published yet")
		return nil, false
	}
	return snap, true
}

func (s *Server) writeCell(w http.ResponseWriter, r *http.Request, cw domain.CellWeights) {
	enc := responseEncoding(r)
	payload, err := s.cache.Get(cw, enc)
	if err != nil {
		s.logger.Error("encode cell failed", "error", err, "cell", cw.Cell.Index)
		writeError(w, http.StatusInternalServerError, "encode cell")
		return
	}
	w.Header().Set("Content-Type", enc.ContentType())
	w.Header().Set("X-Grid-Generation", strconv.FormatUint(cw.Generation, 10))
	w.WriteHeader(http.StatusOK)
	w.Write(payload) //nolint:errcheck // client went away
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, v any) {
	enc := responseEncoding(r)
	payload, err := enc.Marshal(v)
	if err != nil {
		s.logger.Error("encode response failed", "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "encode response")
		return
	}
	w.Header().Set("Content-Type", enc.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(payload) //nolint:errcheck // client went away
}

// responseEncoding selects MessagePack with format=msgpack and JSON otherwise.
func responseEncoding(r *http.Request) domain.Encoding {
	if r.URL.Query().Get("format") == string(domain.EncodingMsgpack) {
		return domain.EncodingMsgpack
	}
	return domain.EncodingJSON
}

func parseCoordinate(s string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || v < -limit || v > limit {
		return 0, strconv.ErrRange
	}
	return v, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
