package db

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/ehr/burnout/internal/domain/workforce"
)

// PoolStats is the subset of pgxpool statistics reported by the health check.
type PoolStats struct {
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	MaxConns      int32 `json:"max_conns"`
}

// TableCounts returns the row count of each dataset table in schema.
func TableCounts(ctx context.Context, pool *pgxpool.Pool, schema string) (map[string]int64, error) {
	counts := make(map[string]int64, len(workforce.TableNames))
	for _, name := range workforce.TableNames {
		var n int64
		q := fmt.Sprintf("SELECT COUNT(*) FROM %s", pgx.Identifier{schema, name}.Sanitize())
		if err := pool.QueryRow(ctx, q).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		counts[name] = n
	}
	return counts, nil
}

// HealthHandler pings the database and reports pool usage and how many rows
// the loaded dataset holds.
func HealthHandler(pool *pgxpool.Pool, schema string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		stat := pool.Stat()
		stats := PoolStats{
			TotalConns:    stat.TotalConns(),
			IdleConns:     stat.IdleConns(),
			AcquiredConns: stat.AcquiredConns(),
			MaxConns:      stat.MaxConns(),
		}

		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
				"pool":   stats,
			})
		}

		resp := map[string]interface{}{
			"status": "healthy",
			"schema": schema,
			"pool":   stats,
		}
		if counts, err := TableCounts(ctx, pool, schema); err != nil {
			resp["tables_error"] = err.Error()
		} else {
			resp["tables"] = counts
		}
		return c.JSON(http.StatusOK, resp)
	}
}
