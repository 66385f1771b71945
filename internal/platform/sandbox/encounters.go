package sandbox

import (
	"fmt"
	"math"

	"github.com/ehr/burnout/internal/domain/workforce"
)

// LoadPhase is one of the four fixed sub-windows of the simulated history.
// Each phase scales a provider's baseline capacity by a multiplier drawn
// uniformly from its range.
type LoadPhase int

const (
	PhaseNormal LoadPhase = iota
	PhaseIncreasing
	PhasePeak
	PhasePostIntervention
)

// PhaseFor returns the load phase of a zero-based day index, counted from the
// start of the window.
func PhaseFor(day int) LoadPhase {
	switch {
	case day < 28:
		return PhaseNormal
	case day < 56:
		return PhaseIncreasing
	case day < 70:
		return PhasePeak
	default:
		return PhasePostIntervention
	}
}

// Multiplier returns the inclusive bounds of the phase's load multiplier.
func (p LoadPhase) Multiplier() (lo, hi float64) {
	switch p {
	case PhaseIncreasing:
		return 0.95, 1.30
	case PhasePeak:
		return 1.20, 1.50
	case PhasePostIntervention:
		return 0.60, 0.80
	default:
		return 0.70, 0.90
	}
}

func (p LoadPhase) String() string {
	switch p {
	case PhaseIncreasing:
		return "increasing"
	case PhasePeak:
		return "peak"
	case PhasePostIntervention:
		return "post-intervention"
	default:
		return "normal"
	}
}

// acuityWeights are indexed by workforce.Acuity.
var acuityWeights = []float64{0.40, 0.35, 0.20, 0.05}

const (
	patientSlots    = 10000
	firstClinicHour = 8
	lastClinicHour  = 17
	minVisitMinutes = 15
	maxVisitMinutes = 60
)

var quarterHours = []int{0, 15, 30, 45}

// GenerateEncounters simulates the visits of every provider over the last
// days calendar days, skipping weekends. The daily visit count is the
// provider's baseline capacity scaled by the phase multiplier and floored.
func (g *DataGenerator) GenerateEncounters(providers []workforce.Provider, days int) []workforce.Encounter {
	start := g.Today().AddDays(-days)
	var encounters []workforce.Encounter

	for _, p := range providers {
		for day := 0; day < days; day++ {
			date := start.AddDays(day)
			if date.IsWeekend() {
				continue
			}

			lo, hi := PhaseFor(day).Multiplier()
			load := int(math.Floor(float64(p.BaselineCapacity) * g.uniform(lo, hi)))

			for i := 0; i < load; i++ {
				acuity := workforce.Acuity(g.weighted(acuityWeights))
				encounters = append(encounters, workforce.Encounter{
					ID:                formatID("ENC", 8, len(encounters)),
					ProviderID:        p.ID,
					PatientID:         formatID("PAT", 4, g.rng.IntN(patientSlots)),
					Date:              date,
					Time:              fmt.Sprintf("%02d:%02d", g.intBetween(firstClinicHour, lastClinicHour), pick(g, quarterHours)),
					DurationMinutes:   g.intBetween(minVisitMinutes, maxVisitMinutes),
					Acuity:            acuity,
					Type:              pick(g, workforce.EncounterTypes),
					DocumentationMins: g.inRange(acuity.DocumentationRange()),
				})
			}
		}
	}
	return encounters
}
