package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/steppesim/steppe/collect"
	"github.com/steppesim/steppe/internal/storage"
	"github.com/steppesim/steppe/sim"
)

const tracerName = "github.com/steppesim/steppe/batch"

// Constructor builds a fresh model (and its collector, which may be nil)
// for one parameter combination and seed.
type Constructor func(params Params, seed int64) (sim.Runnable, *collect.Collector, error)

// Config drives one sweep.
type Config struct {
	// Scenario labels persisted runs.
	Scenario string
	// Model names the model under sweep.
	Model string
	// New constructs a model instance per run.
	New Constructor
	// Combinations are the parameter combinations to execute. An empty
	// slice runs a single combination with no parameters.
	Combinations []Params
	// Iterations is the number of runs per combination. Zero means one.
	Iterations int
	// MaxSteps caps each run. Zero or less means no cap, so models must
	// clear their running flag themselves.
	MaxSteps int
	// MaxWorkers bounds concurrent runs. Zero or less means one worker.
	MaxWorkers int
	// BaseSeed makes sweeps reproducible: run i is seeded BaseSeed+i.
	// Zero lets every run draw its own seed.
	BaseSeed int64
	// Store, when set, records each run and its collected series.
	Store storage.RunStore
}

// Result is the outcome of one run of the sweep.
type Result struct {
	RunID     string
	Params    Params
	Iteration int
	Seed      int64
	Steps     int
	Collector *collect.Collector
	Err       error
}

// Run executes the sweep and returns one result per run, ordered by
// combination then iteration. A failed run does not abort the sweep; the
// first failure is returned as the error after all runs finish.
func Run(ctx context.Context, cfg Config) ([]Result, error) {
	if cfg.New == nil {
		return nil, fmt.Errorf("model constructor is required")
	}

	combinations := cfg.Combinations
	if len(combinations) == 0 {
		combinations = []Params{{}}
	}
	iterations := cfg.Iterations
	if iterations <= 0 {
		iterations = 1
	}
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = 1
	}

	tracer := otel.Tracer(tracerName)
	ctx, sweepSpan := tracer.Start(ctx, "batch.sweep", trace.WithAttributes(
		attribute.String("steppe.scenario", cfg.Scenario),
		attribute.Int("steppe.combinations", len(combinations)),
		attribute.Int("steppe.iterations", iterations),
	))
	defer sweepSpan.End()

	type job struct {
		index     int
		params    Params
		iteration int
	}

	jobs := make(chan job)
	results := make([]Result, len(combinations)*iterations)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.index] = runOne(ctx, tracer, cfg, j.index, j.params, j.iteration)
			}
		}()
	}

	index := 0
	for _, params := range combinations {
		for iteration := 0; iteration < iterations; iteration++ {
			select {
			case jobs <- job{index: index, params: params, iteration: iteration}:
			case <-ctx.Done():
				close(jobs)
				wg.Wait()
				return results, ctx.Err()
			}
			index++
		}
	}
	close(jobs)
	wg.Wait()

	var firstErr error
	for _, result := range results {
		if result.Err != nil {
			firstErr = result.Err
			break
		}
	}
	return results, firstErr
}

func runOne(ctx context.Context, tracer trace.Tracer, cfg Config, index int, params Params, iteration int) Result {
	seed := cfg.BaseSeed
	if seed != 0 {
		seed += int64(index)
	}

	result := Result{
		RunID:     uuid.NewString(),
		Params:    params.Clone(),
		Iteration: iteration,
		Seed:      seed,
	}

	ctx, span := tracer.Start(ctx, "batch.run", trace.WithAttributes(
		attribute.String("steppe.run_id", result.RunID),
		attribute.Int("steppe.iteration", iteration),
	))
	defer span.End()

	startedAt := time.Now().UTC()
	if cfg.Store != nil {
		record := storage.Run{
			ID:         result.RunID,
			Scenario:   cfg.Scenario,
			Model:      cfg.Model,
			ParamsJSON: encodeParams(params),
			Seed:       seed,
			MaxSteps:   cfg.MaxSteps,
			Status:     storage.RunStatusRunning,
			StartedAt:  startedAt,
		}
		if err := cfg.Store.PutRun(ctx, record); err != nil {
			log.Printf("batch: record run %s: %v", result.RunID, err)
		}
	}

	model, collector, err := cfg.New(params.Clone(), seed)
	if err == nil {
		result.Collector = collector
		result.Seed = model.Base().Seed()
		result.Steps, err = runModel(ctx, model, collector, cfg.MaxSteps)
	}
	if err != nil {
		result.Err = fmt.Errorf("run %s: %w", result.RunID, err)
		log.Printf("batch: %v", result.Err)
	}

	if cfg.Store != nil {
		status := storage.RunStatusCompleted
		errText := ""
		if result.Err != nil {
			status = storage.RunStatusFailed
			errText = result.Err.Error()
		}
		record := storage.Run{
			ID:         result.RunID,
			Scenario:   cfg.Scenario,
			Model:      cfg.Model,
			ParamsJSON: encodeParams(params),
			Seed:       result.Seed,
			MaxSteps:   cfg.MaxSteps,
			Steps:      result.Steps,
			Status:     status,
			Error:      errText,
			StartedAt:  startedAt,
			FinishedAt: time.Now().UTC(),
		}
		if err := cfg.Store.PutRun(ctx, record); err != nil {
			log.Printf("batch: record run %s: %v", result.RunID, err)
		}
		if result.Err == nil && collector != nil {
			if persister, ok := cfg.Store.(CollectorPersister); ok {
				if err := persister.AppendCollector(ctx, result.RunID, collector); err != nil {
					log.Printf("batch: persist series %s: %v", result.RunID, err)
				}
			}
		}
	}

	return result
}

// CollectorPersister is implemented by stores that can flatten a collector
// into persisted samples.
type CollectorPersister interface {
	AppendCollector(ctx context.Context, runID string, c *collect.Collector) error
}

// runModel steps the model, collecting the initial state and one row per
// step. Models that collect inside their own Step are not collected again,
// so each step yields exactly one row either way.
func runModel(ctx context.Context, model sim.Runnable, collector *collect.Collector, maxSteps int) (int, error) {
	if collector != nil && collector.Collections() == 0 {
		collector.Collect(model)
	}
	steps := 0
	for model.Base().Running {
		if maxSteps > 0 && steps >= maxSteps {
			break
		}
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		before := 0
		if collector != nil {
			before = collector.Collections()
		}
		model.Step()
		steps++
		if collector != nil && collector.Collections() == before {
			collector.Collect(model)
		}
	}
	return steps, nil
}

func encodeParams(params Params) string {
	if len(params) == 0 {
		return "{}"
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}
