// Package run implements the steppe run subcommand: execute one
// model run from a scenario script or a bare model name and write the
// collected series to CSV files, optionally recording the run in the
// project database.
package run

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/steppesim/steppe/batch"
	"github.com/steppesim/steppe/collect"
	"github.com/steppesim/steppe/internal/platform/config"
	"github.com/steppesim/steppe/internal/platform/otel"
	"github.com/steppesim/steppe/internal/platform/random"
	"github.com/steppesim/steppe/internal/project"
	"github.com/steppesim/steppe/internal/storage"
	"github.com/steppesim/steppe/internal/storage/sqlite"
	"github.com/steppesim/steppe/models"
	"github.com/steppesim/steppe/scenario"
	"github.com/steppesim/steppe/sim"
)

const defaultMaxSteps = 100

// Config holds the run command configuration.
type Config struct {
	Scenario string
	Model    string
	Seed     int64
	MaxSteps int
	Database string
	OutDir   string
}

// ParseConfig parses flags into a Config. Project manifest values fill
// in whatever the flags and environment leave unset.
func ParseConfig(fs *flag.FlagSet, args []string, lookup config.EnvLookup) (Config, error) {
	cfg := Config{
		Scenario: config.EnvOrDefault(lookup, []string{"STEPPE_SCENARIO"}, ""),
		Model:    config.EnvOrDefault(lookup, []string{"STEPPE_MODEL"}, ""),
		Database: config.EnvOrDefault(lookup, []string{"STEPPE_DB"}, ""),
		OutDir:   config.EnvOrDefault(lookup, []string{"STEPPE_OUT_DIR"}, "."),
	}

	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "Scenario script to run")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Model name, when not using a scenario")
	fs.Int64Var(&cfg.Seed, "seed", 0, "Random seed, 0 draws one")
	fs.IntVar(&cfg.MaxSteps, "max-steps", 0, "Step cap, 0 uses the scenario's")
	fs.StringVar(&cfg.Database, "db", cfg.Database, "SQLite file to record the run in")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "Directory for CSV output")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Scenario == "" && cfg.Model == "" {
		if manifest, found, err := project.Load("."); err != nil {
			return Config{}, err
		} else if found {
			cfg.Scenario = manifest.Scenario
			if cfg.Database == "" {
				cfg.Database = manifest.Database
			}
		}
	}
	return cfg, nil
}

// Run executes a single model run.
func Run(ctx context.Context, cfg Config) error {
	shutdown, err := otel.Setup(ctx, "steppe-run")
	if err != nil {
		return fmt.Errorf("setup otel: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("shutdown otel: %v", err)
		}
	}()

	spec, err := resolveModel(cfg)
	if err != nil {
		return err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = spec.seed
	}
	if seed == 0 {
		if seed, err = random.NewSeed(); err != nil {
			return fmt.Errorf("draw seed: %w", err)
		}
	}

	name, params := spec.name, spec.params
	model, collector, err := models.New(name, params, seed)
	if err != nil {
		return fmt.Errorf("build model %s: %w", name, err)
	}

	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = spec.maxSteps
	}
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}

	started := time.Now()
	steps, err := sim.Run(ctx, model, maxSteps)
	if err != nil {
		return fmt.Errorf("run model: %w", err)
	}
	log.Printf("model %s finished after %d steps (seed %d)", name, steps, seed)

	if collector != nil {
		if err := writeCSVs(cfg.OutDir, name, collector); err != nil {
			return err
		}
	}
	if cfg.Database != "" {
		if err := record(ctx, cfg, name, params, seed, steps, started, collector); err != nil {
			return err
		}
	}
	return nil
}

type runSpec struct {
	name     string
	params   batch.Params
	seed     int64
	maxSteps int
}

func resolveModel(cfg Config) (runSpec, error) {
	if cfg.Scenario == "" {
		if cfg.Model == "" {
			return runSpec{}, fmt.Errorf("either -scenario or -model is required")
		}
		return runSpec{name: cfg.Model, params: batch.Params{}}, nil
	}

	sc, err := scenario.Load(cfg.Scenario)
	if err != nil {
		return runSpec{}, err
	}
	combos := sc.Combinations()
	if len(combos) > 1 {
		log.Printf("scenario sweeps %d combinations; running the first (use steppe batch for the sweep)", len(combos))
	}
	return runSpec{
		name:     sc.Model,
		params:   combos[0],
		seed:     sc.Seed,
		maxSteps: sc.MaxSteps,
	}, nil
}

func writeCSVs(dir, name string, collector *collect.Collector) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if len(collector.ModelReporterNames()) > 0 {
		path := filepath.Join(dir, name+"_model.csv")
		if err := writeCSV(path, collector.WriteModelCSV); err != nil {
			return err
		}
		log.Printf("wrote %s", path)
	}
	if len(collector.AgentReporterNames()) > 0 {
		path := filepath.Join(dir, name+"_agents.csv")
		if err := writeCSV(path, collector.WriteAgentCSV); err != nil {
			return err
		}
		log.Printf("wrote %s", path)
	}
	return nil
}

func writeCSV(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func record(ctx context.Context, cfg Config, name string, params batch.Params, seed int64, steps int, started time.Time, collector *collect.Collector) error {
	store, err := sqlite.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}

	run := storage.Run{
		ID:         uuid.NewString(),
		Scenario:   cfg.Scenario,
		Model:      name,
		ParamsJSON: string(paramsJSON),
		Seed:       seed,
		MaxSteps:   cfg.MaxSteps,
		Steps:      steps,
		Status:     storage.RunStatusCompleted,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err := store.PutRun(ctx, run); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	if collector != nil {
		if err := store.AppendCollector(ctx, run.ID, collector); err != nil {
			return fmt.Errorf("record samples: %w", err)
		}
	}
	log.Printf("recorded run %s in %s", run.ID, cfg.Database)
	return nil
}
