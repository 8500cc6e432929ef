package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/gistemp-grid/internal/domain"
	"github.com/couchcryptid/gistemp-grid/internal/grid"
	"github.com/couchcryptid/gistemp-grid/internal/observability"
	"github.com/couchcryptid/gistemp-grid/internal/station"
	"github.com/couchcryptid/gistemp-grid/internal/weight"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw events from the source. An empty
// batch means the source had nothing new within its flush interval.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts a raw event into a change of the station table.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.StationChange, error)
}

// BatchLoader writes multiple output events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Associator computes the station weights of every cell.
type Associator interface {
	Associate(ctx context.Context, cells []grid.Cell, idx *station.Index) ([]weight.Weights, error)
}

// Options tunes the pipeline loop.
type Options struct {
	BatchSize int
	Encoding  domain.Encoding
	// RegridInterval bounds how long station changes may wait for a regrid
	// while the source keeps delivering messages.
	RegridInterval time.Duration
	Clock          clockwork.Clock
}

// Pipeline folds station messages into the station table and republishes
// the cell weights whenever the table has changed.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	associator  Associator
	grid        *grid.Grid
	registry    *station.Registry
	logger      *slog.Logger
	metrics     *observability.Metrics
	opts        Options

	latest       atomic.Pointer[domain.GridSnapshot]
	pendingSince time.Time
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, a Associator, g *grid.Grid, registry *station.Registry, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Encoding == "" {
		opts.Encoding = domain.EncodingJSON
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		associator:  a,
		grid:        g,
		registry:    registry,
		logger:      logger,
		metrics:     metrics,
		opts:        opts,
	}
}

// CheckReadiness returns nil once a grid generation has been published,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.latest.Load() == nil {
		return errors.New("no grid generation published yet")
	}
	return nil
}

// Latest returns the most recently published snapshot, or nil before the
// first generation.
func (p *Pipeline) Latest() *domain.GridSnapshot {
	return p.latest.Load()
}

// Run executes the consume-and-regrid loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started",
		"batch_size", p.opts.BatchSize,
		"cells", p.grid.Len(),
		"scheme", p.grid.Scheme(),
		"encoding", p.opts.Encoding,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.step(ctx, &backoff) {
			return nil
		}
	}
}

// step applies one batch and regrids if due. Returns false if the pipeline should stop.
func (p *Pipeline) step(ctx context.Context, backoff *time.Duration) bool {
	rawBatch, err := p.extractor.ExtractBatch(ctx, p.opts.BatchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}

	if len(rawBatch) > 0 {
		p.applyBatch(ctx, rawBatch)
		*backoff = initialBackoff
	}

	if !p.regridDue(len(rawBatch) == 0) {
		return ctx.Err() == nil
	}
	if err := p.regrid(ctx); err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("regrid failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}
	*backoff = initialBackoff
	return true
}

// applyBatch folds every transformable message of the batch into the registry.
func (p *Pipeline) applyBatch(ctx context.Context, rawBatch []domain.RawEvent) {
	start := time.Now()
	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))

	for _, raw := range rawBatch {
		change, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("transform failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			continue
		}
		p.apply(change)
	}

	p.metrics.StationsTracked.Set(float64(p.registry.Len()))
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
}

func (p *Pipeline) apply(change domain.StationChange) {
	if change.Omitted {
		p.metrics.StationsOmitted.Inc()
	}
	if change.Deleted {
		p.registry.Remove(change.Station.ID)
		return
	}
	if err := p.registry.Upsert(change.Station); err != nil {
		p.logger.Warn("station rejected", "error", err, "station_id", change.Station.ID)
		p.metrics.TransformErrors.Inc()
	}
}

// regridDue reports whether the table has changed since the last published
// generation and either the source is idle or changes have waited longer
// than RegridInterval. The first generation is always due once the source
// goes idle, even for an empty table.
func (p *Pipeline) regridDue(idle bool) bool {
	latest := p.latest.Load()
	if latest != nil && latest.StationVersion == p.registry.Version() {
		p.pendingSince = time.Time{}
		return false
	}

	now := p.opts.Clock.Now()
	if p.pendingSince.IsZero() {
		p.pendingSince = now
	}
	if idle {
		return true
	}
	return p.opts.RegridInterval > 0 && now.Sub(p.pendingSince) >= p.opts.RegridInterval
}

// regrid associates the current station table with every fine cell,
// publishes the cells, and swaps in the new snapshot.
func (p *Pipeline) regrid(ctx context.Context) error {
	start := time.Now()

	idx, version, err := p.registry.Snapshot()
	if err != nil {
		p.metrics.Regrids.WithLabelValues("error").Inc()
		return fmt.Errorf("snapshot station table: %w", err)
	}

	cells := p.grid.Fine()
	ws, err := p.associator.Associate(ctx, cells, idx)
	if err != nil {
		p.metrics.Regrids.WithLabelValues("error").Inc()
		return fmt.Errorf("associate stations: %w", err)
	}

	var generation uint64 = 1
	if prev := p.latest.Load(); prev != nil {
		generation = prev.Generation + 1
	}
	snap := &domain.GridSnapshot{
		Generation:     generation,
		StationVersion: version,
		Stations:       idx,
		Cells:          cells,
		Weights:        ws,
		Summary:        weight.Summarize(ws),
		GeneratedAt:    domain.Now(),
	}

	out := make([]domain.OutputEvent, len(cells))
	for i := range cells {
		cw, _ := snap.CellWeights(i)
		ev, err := domain.SerializeCellWeights(cw, p.opts.Encoding)
		if err != nil {
			p.metrics.Regrids.WithLabelValues("error").Inc()
			return err
		}
		out[i] = ev
	}

	if err := p.loader.LoadBatch(ctx, out); err != nil {
		p.metrics.Regrids.WithLabelValues("error").Inc()
		return fmt.Errorf("publish generation %d: %w", generation, err)
	}

	p.latest.Store(snap)
	p.pendingSince = time.Time{}

	p.metrics.MessagesProduced.Add(float64(len(out)))
	p.metrics.Regrids.WithLabelValues("success").Inc()
	p.metrics.RegridDuration.Observe(time.Since(start).Seconds())
	p.metrics.GridGeneration.Set(float64(generation))
	p.metrics.CellCoverage.Set(snap.Summary.Coverage())

	p.logger.Info("grid published",
		"generation", generation,
		"stations", idx.Len(),
		"cells", len(cells),
		"covered", snap.Summary.Covered,
		"mean_stations", snap.Summary.MeanStations,
		"duration", time.Since(start),
	)
	return nil
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}
