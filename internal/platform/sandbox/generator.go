// Package sandbox generates the synthetic provider workload and burnout
// dataset: providers, encounters, daily workload metrics, weekly burnout
// assessments and administrative tasks. Every draw comes from one explicitly
// seeded random source so a seed and a reference time reproduce a dataset.
package sandbox

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/ehr/burnout/internal/domain/workforce"
)

const (
	// DefaultProviderCount is the number of providers in a standard run.
	DefaultProviderCount = 20
	// DefaultDays is the length of the simulated history.
	DefaultDays = 90
)

// ---------------------------------------------------------------------------
// DataGenerator
// ---------------------------------------------------------------------------

// DataGenerator produces the dataset tables from a single random source and
// a fixed reference instant ("now"). The name faker draws from the same
// source, so one seed reproduces every value.
type DataGenerator struct {
	rng   *rand.Rand
	faker *gofakeit.Faker
	now   time.Time
}

// NewDataGenerator returns a generator seeded for reproducibility. A zero
// now means time.Now().
func NewDataGenerator(seed int64, now time.Time) *DataGenerator {
	if now.IsZero() {
		now = time.Now()
	}
	src := rand.NewPCG(uint64(seed), uint64(seed))
	return &DataGenerator{
		rng:   rand.New(src),
		faker: gofakeit.NewFaker(src, false),
		now:   now.Truncate(time.Second),
	}
}

// Now returns the reference instant the generator measures windows from.
func (g *DataGenerator) Now() time.Time { return g.now }

// Today is the calendar date of the reference instant.
func (g *DataGenerator) Today() workforce.Date { return workforce.DateOf(g.now) }

// intBetween draws a uniform integer in [lo, hi].
func (g *DataGenerator) intBetween(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}

// uniform draws a real in [lo, hi).
func (g *DataGenerator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *DataGenerator) inRange(r workforce.MinuteRange) int {
	return g.intBetween(r.Min, r.Max)
}

// weighted returns an index drawn from a categorical distribution whose
// weights sum to 1.
func (g *DataGenerator) weighted(weights []float64) int {
	r := g.rng.Float64()
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return i
		}
	}
	return len(weights) - 1
}

func pick[T any](g *DataGenerator, pool []T) T {
	return pool[g.rng.IntN(len(pool))]
}

func (g *DataGenerator) fullName() string {
	return g.faker.FirstName() + " " + g.faker.LastName()
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func formatID(prefix string, width, n int) string {
	return fmt.Sprintf("%s%0*d", prefix, width, n)
}
