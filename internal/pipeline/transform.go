package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/gistemp-grid/internal/domain"
	"github.com/couchcryptid/gistemp-grid/internal/station"
)

// StationTransformer implements Transformer using domain parsing with
// optional omit-rule filtering.
type StationTransformer struct {
	rules  station.OmitRules
	logger *slog.Logger
}

// NewTransformer creates a StationTransformer. Pass nil rules to disable
// omit-rule filtering.
func NewTransformer(rules station.OmitRules, logger *slog.Logger) *StationTransformer {
	return &StationTransformer{
		rules:  rules,
		logger: logger,
	}
}

func (t *StationTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.StationChange, error) {
	change, err := domain.ParseStationChange(raw)
	if err != nil {
		return domain.StationChange{}, err
	}
	if change.Deleted || t.rules == nil {
		return change, nil
	}

	id := change.Station.ID
	s, keep := t.rules.Apply(change.Station)
	if !keep {
		t.logger.Debug("omit rules removed every reading, dropping station", "station_id", id)
		return domain.StationChange{Station: station.Station{ID: id}, Deleted: true, Omitted: true}, nil
	}
	change.Station = s
	return change, nil
}
