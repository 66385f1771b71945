package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/burnout/internal/config"
	"github.com/ehr/burnout/internal/platform/auth"
	"github.com/ehr/burnout/internal/platform/events"
	"github.com/ehr/burnout/internal/platform/middleware"
	"github.com/ehr/burnout/internal/platform/sandbox"
)

func quietEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENV", "test")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OUTPUT_FORMATS", "")
	t.Setenv("OUTPUT_DIR", "")
	t.Setenv("API_SIGNING_KEY", "")
	t.Setenv("API_TOKEN_ISSUER", "")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// ---------------------------------------------------------------------------
// generate
// ---------------------------------------------------------------------------

func TestGenerate_WritesFilesAndProgress(t *testing.T) {
	quietEnv(t)
	dir := t.TempDir()

	out, err := execute(t, "generate", "--seed", "42", "--out", dir, "--format", "csv,ndjson")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	for _, line := range []string{
		"✓ Generated 20 providers",
		"patient encounters",
		"workload metric records",
		"burnout assessments",
		"task assignments",
		"(seed 42)",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("expected output to contain %q, got:\n%s", line, out)
		}
	}

	for _, name := range []string{
		"providers.csv", "encounters.csv", "workload_metrics.csv",
		"burnout_assessments.csv", "tasks.csv", "tasks.ndjson", "manifest.yaml",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to be written: %v", name, err)
		}
	}
}

func TestGenerate_SameSeedSameProviders(t *testing.T) {
	quietEnv(t)
	a, b := t.TempDir(), t.TempDir()

	if _, err := execute(t, "generate", "--seed", "7", "--out", a); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := execute(t, "generate", "--seed", "7", "--out", b); err != nil {
		t.Fatalf("second run: %v", err)
	}

	first, err := os.ReadFile(filepath.Join(a, "providers.csv"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(filepath.Join(b, "providers.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("expected identical providers.csv for the same seed")
	}
}

func TestGenerate_MissingOutputDir(t *testing.T) {
	quietEnv(t)
	dir := filepath.Join(t.TempDir(), "missing")

	_, err := execute(t, "generate", "--seed", "1", "--out", dir)
	if err == nil {
		t.Fatal("expected error for missing output directory")
	}
	if !strings.Contains(err.Error(), "output directory does not exist") {
		t.Errorf("unexpected error: %v", err)
	}
	if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
		t.Error("expected output directory not to be created")
	}
}

func TestGenerate_UnknownFormat(t *testing.T) {
	quietEnv(t)

	_, err := execute(t, "generate", "--out", t.TempDir(), "--format", "parquet")
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}

// ---------------------------------------------------------------------------
// database commands
// ---------------------------------------------------------------------------

func TestMigrateUp_RequiresDatabaseURL(t *testing.T) {
	quietEnv(t)

	_, err := execute(t, "migrate", "up")
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	quietEnv(t)

	_, err := execute(t, "load", "--seed", "3")
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// server wiring
// ---------------------------------------------------------------------------

func TestNewServer_Routes(t *testing.T) {
	seeder := sandbox.NewSeeder(sandbox.SeedConfig{ProviderCount: 2, Days: 7, Seed: 5})
	if _, err := seeder.Generate(); err != nil {
		t.Fatalf("generate: %v", err)
	}
	cfg := &config.Config{RequestTimeout: time.Minute, RegenerateRPS: 1, RegenerateBurst: 1}
	e := newServer(cfg, zerolog.Nop(), seeder, nil, events.NewHub(zerolog.Nop()))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health 200, got %d", rec.Code)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected request id header on response")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers on response")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/tables", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected /api/v1/tables 200, got %d", rec.Code)
	}
	var tables []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &tables); err != nil {
		t.Fatalf("decode tables: %v", err)
	}
	if len(tables) != 5 {
		t.Errorf("expected 5 tables, got %d", len(tables))
	}

	found := false
	for _, r := range e.Routes() {
		if r.Method == http.MethodGet && r.Path == "/api/v1/events" {
			found = true
		}
	}
	if !found {
		t.Error("expected GET /api/v1/events to be registered")
	}

	// Burst of one: the second regeneration from the same client is throttled.
	for i, want := range []int{http.StatusCreated, http.StatusTooManyRequests} {
		req = httptest.NewRequest(http.MethodPost, "/api/v1/datasets", strings.NewReader(`{"seed":9}`))
		req.Header.Set("Content-Type", "application/json")
		rec = httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("regeneration %d: expected %d, got %d", i+1, want, rec.Code)
		}
	}
}

func TestNewServer_RegenerationRequiresToken(t *testing.T) {
	seeder := sandbox.NewSeeder(sandbox.SeedConfig{ProviderCount: 2, Days: 7, Seed: 5})
	cfg := &config.Config{
		RequestTimeout:  time.Minute,
		RegenerateRPS:   10,
		RegenerateBurst: 10,
		APISigningKey:   strings.Repeat("s", 32),
		APITokenIssuer:  "burnout-gen",
	}
	e := newServer(cfg, zerolog.Nop(), seeder, nil, events.NewHub(zerolog.Nop()))

	post := func(authz string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets", strings.NewReader(`{"seed":3}`))
		req.Header.Set("Content-Type", "application/json")
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := post(""); code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", code)
	}

	tok, err := auth.IssueToken(cfg.JWT(), "ops", []string{auth.ScopeDatasetsWrite}, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}
	if code := post("Bearer " + tok); code != http.StatusCreated {
		t.Errorf("expected 201 with token, got %d", code)
	}
}

func TestApplyFlags_OverridesChangedOnly(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().Int64("seed", 0, "")
	cmd.Flags().String("out", "data", "")
	cmd.Flags().String("port", "8000", "")
	if err := cmd.Flags().Parse([]string{"--seed", "7", "--out", "/tmp/run"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg := &config.Config{Seed: 1, OutputDir: "data", Port: "9000"}
	if err := applyFlags(cmd, cfg); err != nil {
		t.Fatalf("applyFlags() error: %v", err)
	}
	if cfg.Seed != 7 || cfg.OutputDir != "/tmp/run" {
		t.Errorf("expected seed 7 and out /tmp/run, got %d and %q", cfg.Seed, cfg.OutputDir)
	}
	if cfg.Port != "9000" {
		t.Errorf("expected unchanged port 9000, got %q", cfg.Port)
	}
}

func TestApplyFlags_WrongFlagTypeFails(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().String("seed", "", "")
	if err := cmd.Flags().Parse([]string{"--seed", "7"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg := &config.Config{Seed: 1}
	err := applyFlags(cmd, cfg)
	if err == nil || !strings.Contains(err.Error(), "--seed") {
		t.Fatalf("expected --seed error, got %v", err)
	}
	if cfg.Seed != 1 {
		t.Errorf("expected seed to stay 1, got %d", cfg.Seed)
	}
}

func TestStagePublisher(t *testing.T) {
	hub := events.NewHub(zerolog.Nop())
	client := events.NewClient([]string{events.TopicProgress})
	hub.Register(client)
	defer hub.Unregister(client)

	seeder := sandbox.NewSeeder(sandbox.SeedConfig{ProviderCount: 2, Days: 7, Seed: 5},
		sandbox.WithProgress(stagePublisher(hub)))
	if _, err := seeder.Generate(); err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(client.Send) != 5 {
		t.Fatalf("expected 5 stage events, got %d", len(client.Send))
	}
	var first events.Event
	if err := json.Unmarshal(<-client.Send, &first); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if first.Type != events.TypeStageCompleted || first.Stage != string(sandbox.StageProviders) || first.Count != 2 {
		t.Errorf("unexpected first event %+v", first)
	}
}

func TestToken_RequiresSigningKey(t *testing.T) {
	quietEnv(t)
	_, err := execute(t, "token", "--subject", "ops")
	if err == nil || !strings.Contains(err.Error(), "API_SIGNING_KEY") {
		t.Fatalf("expected API_SIGNING_KEY error, got %v", err)
	}
}

func TestToken_Mints(t *testing.T) {
	quietEnv(t)
	t.Setenv("API_SIGNING_KEY", strings.Repeat("s", 32))

	out, err := execute(t, "token", "--subject", "ops", "--ttl", "1h")
	if err != nil {
		t.Fatalf("token failed: %v", err)
	}
	claims, err := auth.ParseToken(auth.JWTConfig{Issuer: "burnout-gen", SigningKey: []byte(strings.Repeat("s", 32))}, strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("minted token does not parse: %v", err)
	}
	if claims.Subject != "ops" || !claims.HasScope(auth.ScopeDatasetsWrite) {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	progressPrinter(&buf)(sandbox.StageTasks, 1234)
	if got := buf.String(); got != "✓ Generated 1234 task assignments\n" {
		t.Errorf("unexpected progress line %q", got)
	}
}
