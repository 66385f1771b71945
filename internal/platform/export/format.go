// Package export writes dataset tables as CSV, NDJSON or an XLSX workbook,
// either streamed to a writer or persisted to an output directory.
package export

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Format is an output encoding.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatNDJSON Format = "ndjson"
	FormatXLSX   Format = "xlsx"
)

var (
	ErrUnknownFormat    = errors.New("unknown output format")
	ErrOutputDirMissing = errors.New("output directory does not exist")
	ErrNotRegularFile   = errors.New("output path is not a regular file")
)

// ParseFormat validates a single format name (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatNDJSON, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ParseFormats validates a list of format names, dropping blanks and
// duplicates while keeping first-seen order.
func ParseFormats(names []string) ([]Format, error) {
	seen := make(map[Format]bool)
	var out []Format
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		f, err := ParseFormat(n)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: none selected", ErrUnknownFormat)
	}
	return out, nil
}

// formatCell renders one record value as text.
func formatCell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case int:
		return strconv.Itoa(v)
	case float64:
		return formatFloat(v)
	case decimal.Decimal:
		return formatFloat(v.InexactFloat64())
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// formatFloat renders the shortest exact form but always keeps one decimal
// place, so 1 is written as 1.0.
func formatFloat(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
