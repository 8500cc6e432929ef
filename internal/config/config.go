package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/couchcryptid/gistemp-grid/internal/domain"
	"github.com/couchcryptid/gistemp-grid/internal/grid"
	"github.com/couchcryptid/gistemp-grid/internal/weight"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers         []string
	KafkaSourceTopic     string
	KafkaSourcePartition int
	KafkaSinkTopic       string
	HTTPAddr             string
	LogLevel             string
	LogFormat            string
	ShutdownTimeout      time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Gridding configuration.
	GridScheme       grid.Scheme
	GridSubdivisions int
	GridCutoffKm     float64
	GridWorkers      int
	RegridInterval   time.Duration

	// StationOmitRulesFile names an optional omit-rules file. Empty disables it.
	StationOmitRulesFile string

	SinkEncoding  domain.Encoding
	CellCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	scheme, err := grid.ParseScheme(sharedcfg.EnvOrDefault("GRID_SCHEME", string(grid.SchemeEqualArea)))
	if err != nil {
		return nil, fmt.Errorf("invalid GRID_SCHEME: %w", err)
	}

	subdivisions, err := parseInt("GRID_SUBDIVISIONS", grid.DefaultSubdivisions, 1, 100)
	if err != nil {
		return nil, err
	}

	cutoff, err := parseCutoff()
	if err != nil {
		return nil, err
	}

	workers, err := parseInt("GRID_WORKERS", 0, 0, 1024)
	if err != nil {
		return nil, err
	}

	regridInterval, err := time.ParseDuration(sharedcfg.EnvOrDefault("REGRID_INTERVAL", "30s"))
	if err != nil || regridInterval <= 0 {
		return nil, errors.New("invalid REGRID_INTERVAL")
	}

	encoding, err := domain.ParseEncoding(sharedcfg.EnvOrDefault("SINK_ENCODING", string(domain.EncodingJSON)))
	if err != nil {
		return nil, fmt.Errorf("invalid SINK_ENCODING: %w", err)
	}

	cacheSize, err := parseInt("CELL_CACHE_SIZE", 1024, 1, 1<<20)
	if err != nil {
		return nil, err
	}

	partition, err := parseInt("KAFKA_SOURCE_PARTITION", 0, 0, math.MaxInt32)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:         sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:     sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "gistemp-stations"),
		KafkaSourcePartition: partition,
		KafkaSinkTopic:       sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "gistemp-cell-weights"),
		HTTPAddr:             sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:             sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:      shutdownTimeout,
		BatchSize:            batchSize,
		BatchFlushInterval:   flushInterval,

		GridScheme:       scheme,
		GridSubdivisions: subdivisions,
		GridCutoffKm:     cutoff,
		GridWorkers:      workers,
		RegridInterval:   regridInterval,

		StationOmitRulesFile: sharedcfg.EnvOrDefault("STATION_OMIT_RULES_FILE", ""),

		SinkEncoding:  encoding,
		CellCacheSize: cacheSize,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

// GridConfig returns the grid settings.
func (c *Config) GridConfig() grid.Config {
	return grid.Config{Scheme: c.GridScheme, Subdivisions: c.GridSubdivisions}
}

// WeightConfig returns the weight engine settings.
func (c *Config) WeightConfig() weight.Config {
	return weight.Config{CutoffKm: c.GridCutoffKm, Workers: c.GridWorkers}
}

func parseInt(key string, fallback, lo, hi int) (int, error) {
	s := sharedcfg.EnvOrDefault(key, "")
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", key, lo, hi)
	}
	return n, nil
}

func parseCutoff() (float64, error) {
	s := sharedcfg.EnvOrDefault("GRID_CUTOFF_KM", "")
	if s == "" {
		return weight.DefaultCutoffKm, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, errors.New("invalid GRID_CUTOFF_KM: must be a positive number of kilometres")
	}
	return v, nil
}
