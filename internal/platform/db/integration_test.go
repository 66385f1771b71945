package db_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ehr/burnout/internal/platform/db"
	"github.com/ehr/burnout/internal/platform/sandbox"
	"github.com/ehr/burnout/migrations"
)

// connectTestDB connects to TEST_DATABASE_URL, skipping when it is unset.
func connectTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := db.NewPool(ctx, url, 4, 1)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// uniqueSchema returns a throwaway schema name dropped at test end.
func uniqueSchema(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	schema := "workforce_" + uuid.New().String()[:8]
	t.Cleanup(func() {
		_, err := pool.Exec(context.Background(), fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", pgx.Identifier{schema}.Sanitize()))
		if err != nil {
			t.Logf("warning: failed to drop schema %s: %v", schema, err)
		}
	})
	return schema
}

func TestIntegration_MigrateAndLoad(t *testing.T) {
	pool := connectTestDB(t)
	schema := uniqueSchema(t, pool)
	ctx := context.Background()

	migrator := db.NewMigrator(pool, migrations.FS)
	applied, err := migrator.Up(ctx, schema)
	if err != nil {
		t.Fatalf("Up() error: %v", err)
	}
	if applied == 0 {
		t.Fatal("expected at least one migration to be applied")
	}
	if again, err := migrator.Up(ctx, schema); err != nil || again != 0 {
		t.Fatalf("expected second Up to be a no-op, got %d (%v)", again, err)
	}

	statuses, err := migrator.Status(ctx, schema)
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			t.Errorf("expected migration %s to be applied", s.Name)
		}
	}

	seeder := sandbox.NewSeeder(sandbox.SeedConfig{ProviderCount: 3, Days: 21, Seed: 42})
	if _, err := seeder.Generate(); err != nil {
		t.Fatalf("generate: %v", err)
	}
	loader := db.NewLoader(pool, schema, zerolog.Nop())

	// Loading twice replaces rather than appends.
	for i := 0; i < 2; i++ {
		if _, err := loader.Load(ctx, seeder.Dataset()); err != nil {
			t.Fatalf("Load() #%d error: %v", i+1, err)
		}
	}

	counts, err := db.TableCounts(ctx, pool, schema)
	if err != nil {
		t.Fatalf("TableCounts() error: %v", err)
	}
	for name, want := range seeder.Dataset().Counts() {
		if counts[name] != int64(want) {
			t.Errorf("table %s: expected %d rows, got %d", name, want, counts[name])
		}
	}
}
