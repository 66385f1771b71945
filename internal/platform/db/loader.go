package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ehr/burnout/internal/domain/workforce"
)

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// copyTarget is the subset of pgx.Tx the loader needs.
type copyTarget interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Loader replaces the dataset tables of a schema with a generated dataset.
// The whole replacement runs in one transaction.
type Loader struct {
	pool   txBeginner
	schema string
	logger zerolog.Logger
}

// NewLoader creates a Loader writing into schema. pool is usually a
// *pgxpool.Pool.
func NewLoader(pool txBeginner, schema string, logger zerolog.Logger) *Loader {
	return &Loader{pool: pool, schema: schema, logger: logger}
}

// Load truncates the five tables and bulk-copies the dataset into them,
// returning rows copied per table.
func (l *Loader) Load(ctx context.Context, ds *workforce.Dataset) (map[string]int64, error) {
	var counts map[string]int64
	err := pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		var err error
		counts, err = l.loadInto(ctx, tx, ds)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load dataset into %s: %w", l.schema, err)
	}
	return counts, nil
}

func (l *Loader) loadInto(ctx context.Context, tgt copyTarget, ds *workforce.Dataset) (map[string]int64, error) {
	tables := ds.Tables()

	idents := make([]string, len(tables))
	for i, t := range tables {
		idents[i] = pgx.Identifier{l.schema, t.Name}.Sanitize()
	}
	if _, err := tgt.Exec(ctx, "TRUNCATE "+strings.Join(idents, ", ")); err != nil {
		return nil, fmt.Errorf("truncate: %w", err)
	}

	counts := make(map[string]int64, len(tables))
	for _, t := range tables {
		t := t
		src := pgx.CopyFromSlice(t.Len(), func(i int) ([]interface{}, error) {
			return pgValues(t.Records[i].Values())
		})
		n, err := tgt.CopyFrom(ctx, pgx.Identifier{l.schema, t.Name}, t.Columns, src)
		if err != nil {
			return nil, fmt.Errorf("copy %s: %w", t.Name, err)
		}
		if n != int64(t.Len()) {
			return nil, fmt.Errorf("copy %s: copied %d of %d rows", t.Name, n, t.Len())
		}
		counts[t.Name] = n
		l.logger.Debug().Str("table", t.Name).Int64("rows", n).Msg("table loaded")
	}
	return counts, nil
}

// pgValues converts record values into types pgx encodes natively.
func pgValues(vals []any) ([]interface{}, error) {
	out := make([]interface{}, len(vals))
	for i, v := range vals {
		switch v := v.(type) {
		case workforce.Date:
			out[i] = v.Time
		case workforce.Timestamp:
			out[i] = v.Time
		case decimal.Decimal:
			var n pgtype.Numeric
			if err := n.Scan(v.String()); err != nil {
				return nil, fmt.Errorf("convert %s to numeric: %w", v, err)
			}
			out[i] = n
		case *string:
			if v == nil {
				out[i] = nil
			} else {
				out[i] = *v
			}
		default:
			out[i] = v
		}
	}
	return out, nil
}
