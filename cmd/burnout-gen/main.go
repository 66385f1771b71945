package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/burnout/internal/config"
	"github.com/ehr/burnout/internal/platform/auth"
	"github.com/ehr/burnout/internal/platform/db"
	"github.com/ehr/burnout/internal/platform/events"
	"github.com/ehr/burnout/internal/platform/export"
	"github.com/ehr/burnout/internal/platform/middleware"
	"github.com/ehr/burnout/internal/platform/sandbox"
	"github.com/ehr/burnout/migrations"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "burnout-gen",
		Short:        "Synthetic provider workload and burnout dataset generator",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(loadCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())
	return rootCmd
}

// ---------------------------------------------------------------------------
// Shared setup
// ---------------------------------------------------------------------------

// setup loads config, applies any flags the command defines and builds the
// logger. Logs go to the command's stderr so stdout carries only progress.
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, zerolog.Nop(), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

// applyFlags copies explicitly set flags over the loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	var err error
	if changed("seed") {
		if cfg.Seed, err = flags.GetInt64("seed"); err != nil {
			return fmt.Errorf("read --seed: %w", err)
		}
	}
	strFlags := []struct {
		name string
		dst  *string
	}{
		{"out", &cfg.OutputDir},
		{"format", &cfg.OutputFormats},
		{"schema", &cfg.DBSchema},
		{"port", &cfg.Port},
	}
	for _, f := range strFlags {
		if !changed(f.name) {
			continue
		}
		if *f.dst, err = flags.GetString(f.name); err != nil {
			return fmt.Errorf("read --%s: %w", f.name, err)
		}
	}
	return nil
}

func newLogger(cfg *config.Config, w io.Writer) (zerolog.Logger, error) {
	lvl, err := cfg.Level()
	if err != nil {
		return zerolog.Nop(), err
	}
	if cfg.IsDev() {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

func connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
}

func newSeeder(cfg *config.Config, logger zerolog.Logger, progress io.Writer, extra ...sandbox.Option) *sandbox.Seeder {
	opts := []sandbox.Option{sandbox.WithLogger(logger)}
	if progress != nil {
		opts = append(opts, sandbox.WithProgress(progressPrinter(progress)))
	}
	return sandbox.NewSeeder(sandbox.SeedConfig{
		ProviderCount: sandbox.DefaultProviderCount,
		Days:          sandbox.DefaultDays,
		Seed:          cfg.Seed,
	}, append(opts, extra...)...)
}

func progressPrinter(w io.Writer) sandbox.ProgressFunc {
	return func(stage sandbox.Stage, count int) {
		fmt.Fprintf(w, "✓ Generated %d %s\n", count, stage)
	}
}

// stagePublisher forwards per-stage progress to event stream subscribers.
func stagePublisher(hub *events.Hub) sandbox.ProgressFunc {
	return func(stage sandbox.Stage, count int) {
		hub.Publish(context.Background(), events.Event{
			Type:  events.TypeStageCompleted,
			Topic: events.TopicProgress,
			Stage: string(stage),
			Count: count,
		})
	}
}

func runInfo(r *sandbox.SeedResult) export.RunInfo {
	return export.RunInfo{
		RunID:       r.RunID.String(),
		Seed:        r.Seed,
		GeneratedAt: r.GeneratedAt,
		Days:        r.Days,
	}
}

// ---------------------------------------------------------------------------
// generate
// ---------------------------------------------------------------------------

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the dataset and write it to the output directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			formats, err := cfg.Formats()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			seeder := newSeeder(cfg, logger, out)
			result, err := seeder.Generate()
			if err != nil {
				return err
			}

			paths, err := export.NewDirWriter(cfg.OutputDir, formats, logger).Write(seeder.Dataset(), runInfo(result))
			if err != nil {
				return fmt.Errorf("write dataset: %w", err)
			}

			fmt.Fprintf(out, "\nDataset written to %s (seed %d)\n", cfg.OutputDir, result.Seed)
			for _, p := range paths {
				fmt.Fprintf(out, "  %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().Int64("seed", 0, "Random seed (0 picks a time-based seed)")
	cmd.Flags().String("out", "data", "Existing directory to write files into")
	cmd.Flags().String("format", "csv", "Comma-separated output formats: csv, ndjson, xlsx")
	return cmd
}

// ---------------------------------------------------------------------------
// migrate
// ---------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Running migrations on schema: %s\n", cfg.DBSchema)
			count, err := db.NewMigrator(pool, migrations.FS).Up(ctx, cfg.DBSchema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(out, "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "workforce", "Target schema for migrations")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx, cfg.DBSchema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatus(cmd.OutOrStdout(), cfg.DBSchema, statuses)
			return nil
		},
	}
	statusCmd.Flags().String("schema", "workforce", "Target schema for migrations")
	cmd.AddCommand(statusCmd)

	return cmd
}

func printStatus(w io.Writer, schema string, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "Migration status for schema: %s\n", schema)
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

// ---------------------------------------------------------------------------
// load
// ---------------------------------------------------------------------------

func loadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Generate the dataset and replace the Postgres tables with it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if n, err := db.NewMigrator(pool, migrations.FS).Up(ctx, cfg.DBSchema); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			} else if n > 0 {
				logger.Info().Int("count", n).Str("schema", cfg.DBSchema).Msg("applied pending migrations")
			}

			out := cmd.OutOrStdout()
			seeder := newSeeder(cfg, logger, out)
			result, err := seeder.Generate()
			if err != nil {
				return err
			}

			counts, err := db.NewLoader(pool, cfg.DBSchema, logger).Load(ctx, seeder.Dataset())
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\nDataset loaded into schema %s (seed %d)\n", cfg.DBSchema, result.Seed)
			for _, t := range seeder.Dataset().Tables() {
				fmt.Fprintf(out, "  %-22s %d rows\n", t.Name, counts[t.Name])
			}
			return nil
		},
	}
	cmd.Flags().Int64("seed", 0, "Random seed (0 picks a time-based seed)")
	cmd.Flags().String("schema", "workforce", "Target schema")
	return cmd
}

// ---------------------------------------------------------------------------
// token
// ---------------------------------------------------------------------------

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token allowed to regenerate the served dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}

			tok, err := auth.IssueToken(cfg.JWT(), subject, []string{auth.ScopeDatasetsWrite}, ttl, time.Now())
			if err != nil {
				if errors.Is(err, auth.ErrNoSigningKey) {
					return fmt.Errorf("API_SIGNING_KEY must be set to mint tokens")
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().String("subject", "", "Who the token is issued to")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

// ---------------------------------------------------------------------------
// serve
// ---------------------------------------------------------------------------

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dataset API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().String("port", "8000", "Port to listen on")
	cmd.Flags().Int64("seed", 0, "Seed for the dataset generated at startup")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	hub := events.NewHub(logger)
	seeder := newSeeder(cfg, logger, nil, sandbox.WithProgress(stagePublisher(hub)))
	if _, err := seeder.Generate(); err != nil {
		return err
	}

	var pool *pgxpool.Pool
	var persister sandbox.Persister
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = connect(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")

		if _, err := db.NewMigrator(pool, migrations.FS).Up(ctx, cfg.DBSchema); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		persister = db.NewLoader(pool, cfg.DBSchema, logger)
	}

	if cfg.APISigningKey == "" {
		logger.Warn().Msg("API_SIGNING_KEY is not set; POST /api/v1/datasets is open to any caller")
	}
	e := newServer(cfg, logger, seeder, persister, hub)
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool, cfg.DBSchema))
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer wires the global middleware, the liveness probe, the dataset API
// and its event stream. persister may be nil.
func newServer(cfg *config.Config, logger zerolog.Logger, seeder *sandbox.Seeder, persister sandbox.Persister, hub *events.Hub) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// The event stream is long-lived and sits outside the request timeout.
	events.NewHandler(hub, logger).RegisterRoutes(e.Group("/api/v1"))

	apiV1 := e.Group("/api/v1", middleware.RequestTimeout(cfg.RequestTimeout))
	seeds := sandbox.NewSeedHandler(seeder, persister, logger)
	seeds.SetPublisher(hub)
	seeds.RegisterRoutes(apiV1,
		auth.RequireScope(cfg.JWT(), auth.ScopeDatasetsWrite),
		middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RegenerateRPS,
			BurstSize:         cfg.RegenerateBurst,
		}))
	return e
}
