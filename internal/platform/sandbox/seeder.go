package sandbox

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/burnout/internal/domain/workforce"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// SeedConfig controls the size of a run and its random source.
type SeedConfig struct {
	ProviderCount int       `json:"providerCount"`
	Days          int       `json:"days"`
	Seed          int64     `json:"seed"`
	Now           time.Time `json:"-"`
}

// DefaultSeedConfig returns the standard 20 provider, 90 day run with a
// time-based seed.
func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		ProviderCount: DefaultProviderCount,
		Days:          DefaultDays,
	}
}

func (c SeedConfig) validate() error {
	if c.ProviderCount <= 0 {
		return fmt.Errorf("provider count must be positive, got %d", c.ProviderCount)
	}
	if c.Days <= 0 {
		return fmt.Errorf("day count must be positive, got %d", c.Days)
	}
	return nil
}

// ---------------------------------------------------------------------------
// SeedResult
// ---------------------------------------------------------------------------

// SeedResult summarizes the output of a generation run.
type SeedResult struct {
	RunID           uuid.UUID     `json:"runId"`
	Seed            int64         `json:"seed"`
	GeneratedAt     time.Time     `json:"generatedAt"`
	Days            int           `json:"days"`
	Providers       int           `json:"providers"`
	Encounters      int           `json:"encounters"`
	WorkloadMetrics int           `json:"workloadMetrics"`
	Assessments     int           `json:"assessments"`
	Tasks           int           `json:"tasks"`
	Duration        time.Duration `json:"duration"`
}

// ErrNoDataset is returned by readers when no run has completed yet.
var ErrNoDataset = errors.New("no dataset has been generated")

// Stage identifies a pipeline step for progress reporting.
type Stage string

const (
	StageProviders   Stage = "providers"
	StageEncounters  Stage = "patient encounters"
	StageWorkload    Stage = "workload metric records"
	StageAssessments Stage = "burnout assessments"
	StageTasks       Stage = "task assignments"
)

// ProgressFunc is called after each stage with the number of records produced.
type ProgressFunc func(stage Stage, count int)

// ---------------------------------------------------------------------------
// Seeder
// ---------------------------------------------------------------------------

// Seeder runs the generation pipeline and keeps the latest dataset for
// readers such as the HTTP API.
type Seeder struct {
	config   SeedConfig
	logger   zerolog.Logger
	progress ProgressFunc

	mu      sync.RWMutex
	dataset *workforce.Dataset
	result  *SeedResult
}

// Option customizes a Seeder.
type Option func(*Seeder)

// WithLogger sets the logger used for per-stage log lines.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Seeder) { s.logger = l }
}

// WithProgress registers a callback invoked after each stage completes.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Seeder) { s.progress = fn }
}

// NewSeeder creates a Seeder. A zero seed is replaced by a time-based one at
// generation time and reported in the SeedResult.
func NewSeeder(config SeedConfig, opts ...Option) *Seeder {
	s := &Seeder{
		config: config,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the seeder's configuration.
func (s *Seeder) Config() SeedConfig { return s.config }

// Generate runs all five stages in order and stores the resulting dataset.
func (s *Seeder) Generate() (*SeedResult, error) {
	return s.GenerateWithSeed(s.config.Seed)
}

// GenerateWithSeed is Generate with a per-run seed override.
func (s *Seeder) GenerateWithSeed(seed int64) (*SeedResult, error) {
	if err := s.config.validate(); err != nil {
		return nil, err
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	start := time.Now()
	gen := NewDataGenerator(seed, s.config.Now)
	ds := &workforce.Dataset{}

	ds.Providers = gen.GenerateProviders(s.config.ProviderCount)
	s.report(StageProviders, len(ds.Providers))

	ds.Encounters = gen.GenerateEncounters(ds.Providers, s.config.Days)
	s.report(StageEncounters, len(ds.Encounters))

	ds.Metrics = gen.AggregateWorkload(ds.Encounters)
	s.report(StageWorkload, len(ds.Metrics))

	ds.Assessments = gen.AssessBurnout(ds.Providers, ds.Metrics)
	s.report(StageAssessments, len(ds.Assessments))

	ds.Tasks = gen.GenerateTasks(ds.Providers, s.config.Days)
	s.report(StageTasks, len(ds.Tasks))

	result := &SeedResult{
		RunID:           uuid.New(),
		Seed:            seed,
		GeneratedAt:     gen.Now(),
		Days:            s.config.Days,
		Providers:       len(ds.Providers),
		Encounters:      len(ds.Encounters),
		WorkloadMetrics: len(ds.Metrics),
		Assessments:     len(ds.Assessments),
		Tasks:           len(ds.Tasks),
		Duration:        time.Since(start),
	}

	s.mu.Lock()
	s.dataset = ds
	s.result = result
	s.mu.Unlock()

	s.logger.Info().
		Str("run_id", result.RunID.String()).
		Int64("seed", seed).
		Dur("duration", result.Duration).
		Msg("dataset generated")
	return result, nil
}

func (s *Seeder) report(stage Stage, count int) {
	s.logger.Debug().Str("stage", string(stage)).Int("count", count).Msg("stage complete")
	if s.progress != nil {
		s.progress(stage, count)
	}
}

// Dataset returns the most recently generated dataset, or nil.
func (s *Seeder) Dataset() *workforce.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset
}

// Result returns the summary of the most recent run, or nil.
func (s *Seeder) Result() *SeedResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Current returns the latest dataset and its summary, or ErrNoDataset.
func (s *Seeder) Current() (*workforce.Dataset, *SeedResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return nil, nil, ErrNoDataset
	}
	return s.dataset, s.result, nil
}

// Reset drops the stored dataset.
func (s *Seeder) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = nil
	s.result = nil
}
