package run

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/steppesim/steppe/internal/storage"
	"github.com/steppesim/steppe/internal/storage/sqlite"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.OutDir != "." {
		t.Fatalf("OutDir = %q, want %q", cfg.OutDir, ".")
	}
	if cfg.Seed != 0 {
		t.Fatalf("Seed = %d, want 0", cfg.Seed)
	}
}

func TestParseConfigEnvLookup(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key == "STEPPE_MODEL" {
			return "schelling", true
		}
		return "", false
	}

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil, lookup)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Model != "schelling" {
		t.Fatalf("Model = %q, want %q", cfg.Model, "schelling")
	}
}

func TestParseConfigFlagBeatsEnv(t *testing.T) {
	lookup := func(string) (string, bool) { return "wolfsheep", true }

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-model", "evo"}, lookup)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Model != "evo" {
		t.Fatalf("Model = %q, want %q", cfg.Model, "evo")
	}
}

func TestRunRequiresModelOrScenario(t *testing.T) {
	err := Run(context.Background(), Config{OutDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected error without a model or scenario")
	}
}

func TestRunWritesCSVAndRecords(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")

	cfg := Config{
		Model:    "schelling",
		Seed:     42,
		MaxSteps: 5,
		Database: db,
		OutDir:   dir,
	}
	if err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "schelling_model.csv")); err != nil {
		t.Fatalf("expected model CSV: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "schelling_agents.csv")); err != nil {
		t.Fatalf("expected agent CSV: %v", err)
	}

	store, err := sqlite.Open(db)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() {
		_ = store.Close()
	}()
	runs, err := store.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(runs))
	}
	if runs[0].Status != storage.RunStatusCompleted {
		t.Fatalf("expected completed run, got %s", runs[0].Status)
	}
	if runs[0].Seed != 42 {
		t.Fatalf("expected seed 42, got %d", runs[0].Seed)
	}
}

func TestRunFromScenario(t *testing.T) {
	dir := t.TempDir()
	script := `
return Scenario.new{
	model = "schelling",
	max_steps = 3,
	seed = 7,
	params = { width = 8, height = 8 },
}
`
	path := filepath.Join(dir, "small.lua")
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}

	cfg := Config{Scenario: path, OutDir: dir}
	if err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "schelling_model.csv")); err != nil {
		t.Fatalf("expected model CSV: %v", err)
	}
}
