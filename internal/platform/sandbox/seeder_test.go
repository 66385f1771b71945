package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeedConfig(seed int64) SeedConfig {
	return SeedConfig{ProviderCount: 3, Days: 21, Seed: seed, Now: testNow}
}

func TestSeeder_Generate(t *testing.T) {
	var stages []Stage
	var counts []int
	s := NewSeeder(testSeedConfig(42), WithProgress(func(stage Stage, n int) {
		stages = append(stages, stage)
		counts = append(counts, n)
	}))

	result, err := s.Generate()
	require.NoError(t, err)

	ds := s.Dataset()
	require.NotNil(t, ds)
	assert.Equal(t, int64(42), result.Seed)
	assert.Equal(t, testNow, result.GeneratedAt)
	assert.Equal(t, 21, result.Days)
	assert.Equal(t, len(ds.Providers), result.Providers)
	assert.Equal(t, len(ds.Encounters), result.Encounters)
	assert.Equal(t, len(ds.Metrics), result.WorkloadMetrics)
	assert.Equal(t, len(ds.Assessments), result.Assessments)
	assert.Equal(t, len(ds.Tasks), result.Tasks)
	assert.Equal(t, 3, result.Providers)

	assert.Equal(t, []Stage{StageProviders, StageEncounters, StageWorkload, StageAssessments, StageTasks}, stages)
	assert.Equal(t, []int{result.Providers, result.Encounters, result.WorkloadMetrics, result.Assessments, result.Tasks}, counts)
}

func TestSeeder_SameSeedSameDataset(t *testing.T) {
	a := NewSeeder(testSeedConfig(7))
	b := NewSeeder(testSeedConfig(7))
	_, err := a.Generate()
	require.NoError(t, err)
	_, err = b.Generate()
	require.NoError(t, err)

	assert.Equal(t, a.Dataset(), b.Dataset())
}

func TestSeeder_DifferentSeedDifferentDataset(t *testing.T) {
	a := NewSeeder(testSeedConfig(7))
	_, err := a.Generate()
	require.NoError(t, err)
	_, err = a.GenerateWithSeed(8)
	require.NoError(t, err)
	other := a.Dataset()

	_, err = a.GenerateWithSeed(7)
	require.NoError(t, err)
	assert.NotEqual(t, a.Dataset(), other)
}

func TestSeeder_ZeroSeedIsReplaced(t *testing.T) {
	s := NewSeeder(testSeedConfig(0))
	result, err := s.Generate()
	require.NoError(t, err)
	assert.NotZero(t, result.Seed)
}

func TestSeeder_InvalidConfig(t *testing.T) {
	_, err := NewSeeder(SeedConfig{ProviderCount: 0, Days: 10}).Generate()
	assert.Error(t, err)

	_, err = NewSeeder(SeedConfig{ProviderCount: 2, Days: -1}).Generate()
	assert.Error(t, err)
}

func TestSeeder_CurrentAndReset(t *testing.T) {
	s := NewSeeder(testSeedConfig(3))
	_, _, err := s.Current()
	assert.ErrorIs(t, err, ErrNoDataset)

	result, err := s.Generate()
	require.NoError(t, err)

	ds, got, err := s.Current()
	require.NoError(t, err)
	assert.Same(t, result, got)
	assert.NotNil(t, ds)

	s.Reset()
	assert.Nil(t, s.Dataset())
	assert.Nil(t, s.Result())
}

func TestDefaultSeedConfig(t *testing.T) {
	cfg := DefaultSeedConfig()
	assert.Equal(t, 20, cfg.ProviderCount)
	assert.Equal(t, 90, cfg.Days)
	assert.Zero(t, cfg.Seed)
}
