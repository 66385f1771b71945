package workforce

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Hour fields are numbers in JSON, as they are in CSV and XLSX.
	decimal.MarshalJSONWithoutQuotes = true
}

// DateLayout is the ISO-8601 calendar date layout used on output.
const DateLayout = "2006-01-02"

// TimestampLayout is the layout used for task assignment timestamps.
const TimestampLayout = "2006-01-02T15:04:05"

// Date is a civil calendar date. The wall clock part is always midnight UTC.
type Date struct {
	time.Time
}

// DateOf truncates t to its calendar date, keeping t's location for the
// year/month/day split.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// NewDate builds a Date from its parts.
func NewDate(y int, m time.Month, d int) Date {
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

// IsWeekend reports whether the date falls on Saturday or Sunday.
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) String() string { return d.Format(DateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// Timestamp is a wall-clock instant rendered without zone information.
type Timestamp struct {
	time.Time
}

func (t Timestamp) String() string { return t.Format(TimestampLayout) }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// Provider maps to the providers table.
type Provider struct {
	ID               string     `json:"provider_id"`
	Name             string     `json:"name"`
	Specialty        Specialty  `json:"specialty"`
	Department       Department `json:"department"`
	FTE              float64    `json:"fte"`
	HireDate         Date       `json:"hire_date"`
	BaselineCapacity int        `json:"baseline_capacity"`
}

var ProviderColumns = []string{
	"provider_id", "name", "specialty", "department", "fte", "hire_date", "baseline_capacity",
}

func (p Provider) Values() []any {
	return []any{p.ID, p.Name, string(p.Specialty), string(p.Department), p.FTE, p.HireDate, p.BaselineCapacity}
}

// Encounter maps to the encounters table. One row per simulated patient visit.
type Encounter struct {
	ID                string        `json:"encounter_id"`
	ProviderID        string        `json:"provider_id"`
	PatientID         string        `json:"patient_id"`
	Date              Date          `json:"encounter_date"`
	Time              string        `json:"encounter_time"`
	DurationMinutes   int           `json:"duration_minutes"`
	Acuity            Acuity        `json:"acuity_level"`
	Type              EncounterType `json:"encounter_type"`
	DocumentationMins int           `json:"documentation_time_minutes"`
}

var EncounterColumns = []string{
	"encounter_id", "provider_id", "patient_id", "encounter_date", "encounter_time",
	"duration_minutes", "acuity_level", "encounter_type", "documentation_time_minutes",
}

func (e Encounter) Values() []any {
	return []any{e.ID, e.ProviderID, e.PatientID, e.Date, e.Time,
		e.DurationMinutes, e.Acuity.String(), string(e.Type), e.DocumentationMins}
}

// WorkloadMetric maps to the workload_metrics table: one row per
// (provider, date) with at least one encounter.
type WorkloadMetric struct {
	ID                 string          `json:"metric_id"`
	ProviderID         string          `json:"provider_id"`
	Date               Date            `json:"date"`
	PatientCount       int             `json:"patient_count"`
	ClinicalHours      decimal.Decimal `json:"total_clinical_hours"`
	DocumentationMins  int             `json:"documentation_time_minutes"`
	AfterHoursMinutes  int             `json:"after_hours_minutes"`
	MissedBreaks       int             `json:"missed_breaks"`
	EmailCount         int             `json:"email_count"`
	InboxResponseHours decimal.Decimal `json:"inbox_response_time_hours"`
}

var WorkloadMetricColumns = []string{
	"metric_id", "provider_id", "date", "patient_count", "total_clinical_hours",
	"documentation_time_minutes", "after_hours_minutes", "missed_breaks",
	"email_count", "inbox_response_time_hours",
}

func (m WorkloadMetric) Values() []any {
	return []any{m.ID, m.ProviderID, m.Date, m.PatientCount, m.ClinicalHours,
		m.DocumentationMins, m.AfterHoursMinutes, m.MissedBreaks,
		m.EmailCount, m.InboxResponseHours}
}

// BurnoutAssessment maps to the burnout_assessments table: one row per
// (provider, weekly window) with at least one workload metric.
type BurnoutAssessment struct {
	ID                     string        `json:"assessment_id"`
	ProviderID             string        `json:"provider_id"`
	Date                   Date          `json:"assessment_date"`
	EmotionalExhaustion    int           `json:"emotional_exhaustion_score"`
	Depersonalization      int           `json:"depersonalization_score"`
	PersonalAccomplishment int           `json:"personal_accomplishment_score"`
	OverallScore           int           `json:"overall_burnout_score"`
	Status                 BurnoutStatus `json:"self_reported_status"`
}

var BurnoutAssessmentColumns = []string{
	"assessment_id", "provider_id", "assessment_date", "emotional_exhaustion_score",
	"depersonalization_score", "personal_accomplishment_score",
	"overall_burnout_score", "self_reported_status",
}

func (a BurnoutAssessment) Values() []any {
	return []any{a.ID, a.ProviderID, a.Date, a.EmotionalExhaustion,
		a.Depersonalization, a.PersonalAccomplishment, a.OverallScore, string(a.Status)}
}

// Task maps to the tasks table. Tasks are generated from the provider/day
// grid and are unrelated to encounters.
type Task struct {
	ID               string       `json:"task_id"`
	ProviderID       string       `json:"provider_id"`
	Type             TaskType     `json:"task_type"`
	Priority         TaskPriority `json:"priority"`
	AssignedAt       Timestamp    `json:"assigned_date"`
	DueAt            Timestamp    `json:"due_date"`
	Status           TaskStatus   `json:"status"`
	EstimatedMinutes int          `json:"estimated_minutes"`
	ReassignedTo     *string      `json:"reassigned_to"`
}

var TaskColumns = []string{
	"task_id", "provider_id", "task_type", "priority", "assigned_date",
	"due_date", "status", "estimated_minutes", "reassigned_to",
}

func (t Task) Values() []any {
	return []any{t.ID, t.ProviderID, string(t.Type), string(t.Priority),
		t.AssignedAt, t.DueAt, string(t.Status), t.EstimatedMinutes, t.ReassignedTo}
}
