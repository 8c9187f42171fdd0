// Package batch implements the steppe batch subcommand: run every
// parameter combination a scenario sweeps, across iterations and
// workers, recording results in the project database.
package batch

import (
	"context"
	"flag"
	"fmt"
	"log"

	runner "github.com/steppesim/steppe/batch"
	"github.com/steppesim/steppe/internal/platform/config"
	"github.com/steppesim/steppe/internal/platform/otel"
	"github.com/steppesim/steppe/internal/project"
	"github.com/steppesim/steppe/internal/storage"
	"github.com/steppesim/steppe/internal/storage/sqlite"
	"github.com/steppesim/steppe/models"
	"github.com/steppesim/steppe/scenario"
)

// Config holds the batch command configuration.
type Config struct {
	Scenario   string
	Database   string
	Workers    int
	Iterations int
	MaxSteps   int
	Seed       int64
}

// ParseConfig parses flags into a Config. Project manifest values fill
// in whatever the flags and environment leave unset.
func ParseConfig(fs *flag.FlagSet, args []string, lookup config.EnvLookup) (Config, error) {
	cfg := Config{
		Scenario: config.EnvOrDefault(lookup, []string{"STEPPE_SCENARIO"}, ""),
		Database: config.EnvOrDefault(lookup, []string{"STEPPE_DB"}, ""),
	}

	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "Scenario script to sweep")
	fs.StringVar(&cfg.Database, "db", cfg.Database, "SQLite file to record runs in")
	fs.IntVar(&cfg.Workers, "workers", 0, "Concurrent runs, 0 uses the scenario's")
	fs.IntVar(&cfg.Iterations, "iterations", 0, "Runs per combination, 0 uses the scenario's")
	fs.IntVar(&cfg.MaxSteps, "max-steps", 0, "Step cap per run, 0 uses the scenario's")
	fs.Int64Var(&cfg.Seed, "seed", 0, "Base seed, 0 uses the scenario's")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Scenario == "" {
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

// Run executes the sweep.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Scenario == "" {
		return fmt.Errorf("-scenario is required")
	}

	shutdown, err := otel.Setup(ctx, "steppe-batch")
	if err != nil {
		return fmt.Errorf("setup otel: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("shutdown otel: %v", err)
		}
	}()

	sc, err := scenario.Load(cfg.Scenario)
	if err != nil {
		return err
	}

	var store storage.RunStore
	if cfg.Database != "" {
		sqlStore, err := sqlite.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer func() {
			_ = sqlStore.Close()
		}()
		store = sqlStore
	}

	runCfg := runner.Config{
		Scenario:     sc.Name,
		Model:        sc.Model,
		New:          models.Constructor(sc.Model),
		Combinations: sc.Combinations(),
		Iterations:   firstPositive(cfg.Iterations, sc.Iterations),
		MaxSteps:     firstPositive(cfg.MaxSteps, sc.MaxSteps),
		MaxWorkers:   firstPositive(cfg.Workers, sc.Workers),
		BaseSeed:     firstPositive64(cfg.Seed, sc.Seed),
		Store:        store,
	}

	combos := len(runCfg.Combinations)
	log.Printf("sweeping %s: %d combinations x %d iterations", sc.Model, combos, runCfg.Iterations)

	results, err := runner.Run(ctx, runCfg)

	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			log.Printf("run %s failed: %v", result.RunID, result.Err)
			continue
		}
		log.Printf("run %s: %d steps, seed %d, params %v",
			result.RunID, result.Steps, result.Seed, result.Params)
	}
	log.Printf("sweep finished: %d runs, %d failed", len(results), failed)
	return err
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstPositive64(values ...int64) int64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
