package sandbox

import (
	"github.com/ehr/burnout/internal/domain/workforce"
)

const (
	minBaselineCapacity = 12
	maxBaselineCapacity = 25
)

// GenerateProviders produces n independent provider records. Hire dates fall
// strictly between ten years and one year before the reference date.
func (g *DataGenerator) GenerateProviders(n int) []workforce.Provider {
	today := g.Today()
	earliest := workforce.Date{Time: today.AddDate(-10, 0, 0)}
	latest := workforce.Date{Time: today.AddDate(-1, 0, 0)}
	span := int(latest.Sub(earliest.Time).Hours() / 24)

	providers := make([]workforce.Provider, 0, n)
	for i := 0; i < n; i++ {
		providers = append(providers, workforce.Provider{
			ID:               formatID("PROV", 4, i),
			Name:             g.fullName(),
			Specialty:        pick(g, workforce.Specialties),
			Department:       pick(g, workforce.Departments),
			FTE:              pick(g, workforce.FTEValues),
			HireDate:         earliest.AddDays(g.intBetween(1, span-1)),
			BaselineCapacity: g.intBetween(minBaselineCapacity, maxBaselineCapacity),
		})
	}
	return providers
}
