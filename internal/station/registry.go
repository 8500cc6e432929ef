package station

import (
	"sort"
	"sync"
)

// Registry accumulates stations as they arrive from the ETL stream. A later
// record for the same identifier replaces the earlier one.
type Registry struct {
	mu       sync.RWMutex
	stations map[string]Station
	version  uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{stations: make(map[string]Station)}
}

// Upsert validates s and stores it.
func (r *Registry) Upsert(s Station) error {
	if err := Validate(s); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stations[s.ID] = s
	r.version++
	return nil
}

// Remove deletes a station. It reports whether the station was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stations[id]; !ok {
		return false
	}
	delete(r.stations, id)
	r.version++
	return true
}

// Len returns the number of stations held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stations)
}

// Version increases on every change and lets callers detect that a snapshot
// is stale.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Snapshot builds an Index of the current stations ordered by identifier,
// along with the version it reflects.
func (r *Registry) Snapshot() (*Index, uint64, error) {
	r.mu.RLock()
	stations := make([]Station, 0, len(r.stations))
	for _, s := range r.stations {
		stations = append(stations, s)
	}
	version := r.version
	r.mu.RUnlock()

	sort.Slice(stations, func(i, j int) bool { return stations[i].ID < stations[j].ID })
	idx, err := NewIndex(stations)
	if err != nil {
		return nil, 0, err
	}
	return idx, version, nil
}
