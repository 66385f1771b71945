package workforce

import (
	"errors"
	"fmt"
)

// Table names double as output file base names and Postgres table names.
const (
	TableProviders   = "providers"
	TableEncounters  = "encounters"
	TableWorkload    = "workload_metrics"
	TableAssessments = "burnout_assessments"
	TableTasks       = "tasks"
)

// TableNames lists the tables in pipeline order.
var TableNames = []string{TableProviders, TableEncounters, TableWorkload, TableAssessments, TableTasks}

var ErrUnknownTable = errors.New("unknown table")

// Record is a single row of any dataset table, rendered in column order.
type Record interface {
	Values() []any
}

// Table is a column-ordered view over one of the dataset's entity slices.
type Table struct {
	Name    string
	Columns []string
	Records []Record
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Records) }

// Page returns records [offset, offset+limit), clipped to the table bounds.
func (t Table) Page(offset, limit int) []Record {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(t.Records) || limit <= 0 {
		return []Record{}
	}
	end := offset + limit
	if end > len(t.Records) {
		end = len(t.Records)
	}
	return t.Records[offset:end]
}

// Dataset holds the five linked tables produced by one generation run.
type Dataset struct {
	Providers   []Provider
	Encounters  []Encounter
	Metrics     []WorkloadMetric
	Assessments []BurnoutAssessment
	Tasks       []Task
}

// Tables returns every table in pipeline order.
func (d *Dataset) Tables() []Table {
	return []Table{
		newTable(TableProviders, ProviderColumns, d.Providers),
		newTable(TableEncounters, EncounterColumns, d.Encounters),
		newTable(TableWorkload, WorkloadMetricColumns, d.Metrics),
		newTable(TableAssessments, BurnoutAssessmentColumns, d.Assessments),
		newTable(TableTasks, TaskColumns, d.Tasks),
	}
}

// Table looks up a single table by name.
func (d *Dataset) Table(name string) (Table, error) {
	for _, t := range d.Tables() {
		if t.Name == name {
			return t, nil
		}
	}
	return Table{}, fmt.Errorf("%w: %q", ErrUnknownTable, name)
}

// Counts returns row counts keyed by table name.
func (d *Dataset) Counts() map[string]int {
	return map[string]int{
		TableProviders:   len(d.Providers),
		TableEncounters:  len(d.Encounters),
		TableWorkload:    len(d.Metrics),
		TableAssessments: len(d.Assessments),
		TableTasks:       len(d.Tasks),
	}
}

// Provider returns the provider with the given id.
func (d *Dataset) Provider(id string) (Provider, bool) {
	for _, p := range d.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}

// AssessmentsFor returns a provider's assessments in window order.
func (d *Dataset) AssessmentsFor(providerID string) []BurnoutAssessment {
	out := []BurnoutAssessment{}
	for _, a := range d.Assessments {
		if a.ProviderID == providerID {
			out = append(out, a)
		}
	}
	return out
}

func newTable[T Record](name string, cols []string, items []T) Table {
	recs := make([]Record, len(items))
	for i := range items {
		recs[i] = items[i]
	}
	return Table{Name: name, Columns: cols, Records: recs}
}
