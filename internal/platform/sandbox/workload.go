package sandbox

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ehr/burnout/internal/domain/workforce"
)

var sixty = decimal.NewFromInt(60)

// dayTotals accumulates the encounters of one provider on one date.
type dayTotals struct {
	patients     int
	visitMinutes int
	docMinutes   int
}

// AggregateWorkload rolls encounters up into one metric row per
// (provider, date). Rows are emitted by provider id, then date. After-hours
// minutes, email volume and inbox latency are synthetic and drawn here.
func (g *DataGenerator) AggregateWorkload(encounters []workforce.Encounter) []workforce.WorkloadMetric {
	byProvider := make(map[string]map[workforce.Date]*dayTotals)
	for _, e := range encounters {
		days, ok := byProvider[e.ProviderID]
		if !ok {
			days = make(map[workforce.Date]*dayTotals)
			byProvider[e.ProviderID] = days
		}
		tot, ok := days[e.Date]
		if !ok {
			tot = &dayTotals{}
			days[e.Date] = tot
		}
		tot.patients++
		tot.visitMinutes += e.DurationMinutes
		tot.docMinutes += e.DocumentationMins
	}

	providerIDs := make([]string, 0, len(byProvider))
	for id := range byProvider {
		providerIDs = append(providerIDs, id)
	}
	sort.Strings(providerIDs)

	var metrics []workforce.WorkloadMetric
	for _, pid := range providerIDs {
		days := byProvider[pid]
		dates := make([]workforce.Date, 0, len(days))
		for d := range days {
			dates = append(dates, d)
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

		for _, d := range dates {
			tot := days[d]
			metrics = append(metrics, workforce.WorkloadMetric{
				ID:                 formatID("MET", 8, len(metrics)),
				ProviderID:         pid,
				Date:               d,
				PatientCount:       tot.patients,
				ClinicalHours:      decimal.NewFromInt(int64(tot.visitMinutes)).Div(sixty).Round(2),
				DocumentationMins:  tot.docMinutes,
				AfterHoursMinutes:  g.afterHoursMinutes(tot.patients),
				MissedBreaks:       missedBreaks(tot.patients),
				EmailCount:         g.intBetween(15, 50) + 2*tot.patients,
				InboxResponseHours: decimal.NewFromFloat(g.uniform(1, 24)).Round(2),
			})
		}
	}
	return metrics
}

// afterHoursMinutes charts spill-over work once the day exceeds 15 patients.
func (g *DataGenerator) afterHoursMinutes(patients int) int {
	switch {
	case patients > 20:
		return g.intBetween(30, 120)
	case patients > 15:
		return g.intBetween(0, 60)
	default:
		return 0
	}
}

// missedBreaks is one missed break per three patients beyond 18.
func missedBreaks(patients int) int {
	return max(0, patients-18) / 3
}
