package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ehr/burnout/internal/domain/workforce"
)

// WriteCSV writes the table as comma-separated text with a header row.
func WriteCSV(w io.Writer, t workforce.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write %s header: %w", t.Name, err)
	}
	row := make([]string, len(t.Columns))
	for i, rec := range t.Records {
		for j, v := range rec.Values() {
			row[j] = formatCell(v)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s row %d: %w", t.Name, i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteNDJSON writes one JSON object per record.
func WriteNDJSON(w io.Writer, t workforce.Table) error {
	enc := json.NewEncoder(w)
	for i, rec := range t.Records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode %s row %d: %w", t.Name, i, err)
		}
	}
	return nil
}
