package export

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ehr/burnout/internal/domain/workforce"
)

// ManifestName is written alongside every persisted dataset.
const ManifestName = "manifest.yaml"

// RunInfo identifies the generation run being exported.
type RunInfo struct {
	RunID       string
	Seed        int64
	GeneratedAt time.Time
	Days        int
}

// Manifest describes a persisted dataset: which run produced it and which
// files hold each table.
type Manifest struct {
	RunID       string          `yaml:"run_id"`
	Seed        int64           `yaml:"seed"`
	GeneratedAt time.Time       `yaml:"generated_at"`
	Days        int             `yaml:"days"`
	Formats     []Format        `yaml:"formats"`
	Tables      []ManifestTable `yaml:"tables"`
}

// ManifestTable is one table entry of the manifest.
type ManifestTable struct {
	Name    string   `yaml:"name"`
	Rows    int      `yaml:"rows"`
	Columns []string `yaml:"columns"`
	Files   []string `yaml:"files"`
}

// NewManifest builds the manifest for tables written in the given formats.
func NewManifest(run RunInfo, tables []workforce.Table, formats []Format) Manifest {
	m := Manifest{
		RunID:       run.RunID,
		Seed:        run.Seed,
		GeneratedAt: run.GeneratedAt,
		Days:        run.Days,
		Formats:     formats,
	}
	for _, t := range tables {
		entry := ManifestTable{Name: t.Name, Rows: t.Len(), Columns: t.Columns}
		for _, f := range formats {
			entry.Files = append(entry.Files, fileFor(t.Name, f))
		}
		m.Tables = append(m.Tables, entry)
	}
	return m
}

// Encode writes the manifest as YAML.
func (m Manifest) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return enc.Close()
}

func fileFor(table string, f Format) string {
	if f == FormatXLSX {
		return WorkbookName
	}
	return table + "." + string(f)
}
