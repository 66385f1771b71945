package sandbox

import (
	"math"

	"github.com/ehr/burnout/internal/domain/workforce"
)

const (
	// AssessmentWeeks is the number of contiguous weekly windows assessed.
	AssessmentWeeks = 13
	// HistoryDays anchors the first assessment window before the reference date.
	HistoryDays = 90
)

// WeekWindow returns the half-open date interval [start, end) of week w,
// where week 0 is the earliest.
func (g *DataGenerator) WeekWindow(week int) (start, end workforce.Date) {
	start = g.Today().AddDays(-HistoryDays + 7*week)
	return start, start.AddDays(7)
}

// AssessBurnout scores each provider once per weekly window from the
// workload metrics that fall inside it. Windows without metrics produce no
// assessment.
func (g *DataGenerator) AssessBurnout(providers []workforce.Provider, metrics []workforce.WorkloadMetric) []workforce.BurnoutAssessment {
	byProvider := make(map[string][]workforce.WorkloadMetric)
	for _, m := range metrics {
		byProvider[m.ProviderID] = append(byProvider[m.ProviderID], m)
	}

	var assessments []workforce.BurnoutAssessment
	for _, p := range providers {
		history := byProvider[p.ID]
		for week := 0; week < AssessmentWeeks; week++ {
			start, end := g.WeekWindow(week)

			var n, patients, afterHours, docMinutes int
			for _, m := range history {
				if m.Date.Before(start) || !m.Date.Before(end) {
					continue
				}
				n++
				patients += m.PatientCount
				afterHours += m.AfterHoursMinutes
				docMinutes += m.DocumentationMins
			}
			if n == 0 {
				continue
			}

			avg := func(sum int) float64 { return float64(sum) / float64(n) }
			score := burnoutScore(avg(patients), p.BaselineCapacity, avg(afterHours), avg(docMinutes), g.intBetween(-10, 10))

			assessments = append(assessments, workforce.BurnoutAssessment{
				ID:                     formatID("ASMT", 8, len(assessments)),
				ProviderID:             p.ID,
				Date:                   start,
				EmotionalExhaustion:    clamp(score+g.intBetween(-15, 15), 0, 100),
				Depersonalization:      clamp(score+g.intBetween(-20, 10), 0, 100),
				PersonalAccomplishment: clamp(100-score+g.intBetween(-10, 20), 0, 100),
				OverallScore:           score,
				Status:                 workforce.ClassifyBurnout(score),
			})
		}
	}
	return assessments
}

// burnoutScore is the fixed composite heuristic: three points per patient
// over baseline, ten per after-hours hour, two per documentation hour, plus
// noise. The sum is floored, then clamped to [0, 100].
func burnoutScore(avgPatients float64, baseline int, avgAfterHours, avgDocMinutes float64, noise int) int {
	raw := (avgPatients-float64(baseline))*3 +
		(avgAfterHours/60)*10 +
		(avgDocMinutes/60)*2 +
		float64(noise)
	return clamp(int(math.Floor(raw)), 0, 100)
}
