package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/steppesim/steppe/collect"
	"github.com/steppesim/steppe/internal/storage"
	"github.com/steppesim/steppe/sim"
)

type sweepModel struct {
	*sim.Model

	stopAfter int
	steps     int
}

func newSweepModel(seed int64, stopAfter int) *sweepModel {
	m := &sweepModel{Model: sim.NewModel(seed), stopAfter: stopAfter}
	m.Schedule = sim.NewBaseScheduler(m.Model)
	return m
}

func (m *sweepModel) Step() {
	m.Schedule.Step()
	m.steps++
	if m.stopAfter > 0 && m.steps >= m.stopAfter {
		m.Running = false
	}
}

type memoryStore struct {
	mu        sync.Mutex
	puts      map[string][]storage.Run
	collected []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{puts: make(map[string][]storage.Run)}
}

func (s *memoryStore) PutRun(ctx context.Context, run storage.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts[run.ID] = append(s.puts[run.ID], run)
	return nil
}

func (s *memoryStore) GetRun(ctx context.Context, id string) (storage.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	puts := s.puts[id]
	if len(puts) == 0 {
		return storage.Run{}, storage.ErrNotFound
	}
	return puts[len(puts)-1], nil
}

func (s *memoryStore) ListRuns(ctx context.Context, limit int) ([]storage.Run, error) {
	return nil, nil
}

func (s *memoryStore) AppendModelSamples(ctx context.Context, samples []storage.ModelSample) error {
	return nil
}

func (s *memoryStore) AppendAgentSamples(ctx context.Context, samples []storage.AgentSample) error {
	return nil
}

func (s *memoryStore) ModelSamples(ctx context.Context, runID string) ([]storage.ModelSample, error) {
	return nil, nil
}

func (s *memoryStore) AgentSamples(ctx context.Context, runID string) ([]storage.AgentSample, error) {
	return nil, nil
}

func (s *memoryStore) AppendCollector(ctx context.Context, runID string, c *collect.Collector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collected = append(s.collected, runID)
	return nil
}

func TestRunRequiresConstructor(t *testing.T) {
	if _, err := Run(context.Background(), Config{}); err == nil {
		t.Fatal("expected error without a constructor")
	}
}

func TestRunOrdersResultsByCombinationThenIteration(t *testing.T) {
	cfg := Config{
		New: func(params Params, seed int64) (sim.Runnable, *collect.Collector, error) {
			return newSweepModel(seed, 2), nil, nil
		},
		Combinations: []Params{{"width": 10}, {"width": 20}},
		Iterations:   2,
		MaxSteps:     10,
		MaxWorkers:   3,
		BaseSeed:     100,
	}

	results, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("len(results) = %d, want 4", len(results))
	}
	for i, result := range results {
		wantWidth := 10
		if i >= 2 {
			wantWidth = 20
		}
		if result.Params["width"] != wantWidth {
			t.Fatalf("results[%d] width = %v, want %v", i, result.Params["width"], wantWidth)
		}
		if result.Iteration != i%2 {
			t.Fatalf("results[%d].Iteration = %d, want %d", i, result.Iteration, i%2)
		}
		if result.Seed != 100+int64(i) {
			t.Fatalf("results[%d].Seed = %d, want %d", i, result.Seed, 100+int64(i))
		}
		if result.Steps != 2 {
			t.Fatalf("results[%d].Steps = %d, want 2", i, result.Steps)
		}
		if result.RunID == "" {
			t.Fatalf("results[%d] has no run ID", i)
		}
	}
}

func TestRunMaxStepsCapsNonHaltingModels(t *testing.T) {
	cfg := Config{
		New: func(params Params, seed int64) (sim.Runnable, *collect.Collector, error) {
			model := newSweepModel(seed, 0)
			c := collect.New()
			c.ModelReporter("steps", func() any { return model.steps })
			return model, c, nil
		},
		MaxSteps: 5,
		BaseSeed: 1,
	}

	results, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].Steps != 5 {
		t.Fatalf("Steps = %d, want 5", results[0].Steps)
	}
	// One collection at construction plus one per step.
	if got := len(results[0].Collector.Steps()); got != 6 {
		t.Fatalf("collections = %d, want 6", got)
	}
}

func TestRunFailureDoesNotAbortSweep(t *testing.T) {
	cfg := Config{
		New: func(params Params, seed int64) (sim.Runnable, *collect.Collector, error) {
			if params["width"] == 20 {
				return nil, nil, fmt.Errorf("width 20 is unsupported")
			}
			return newSweepModel(seed, 1), nil, nil
		},
		Combinations: []Params{{"width": 10}, {"width": 20}, {"width": 30}},
		MaxSteps:     5,
		BaseSeed:     1,
	}

	results, err := Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected the failed run's error")
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Fatalf("healthy runs failed: %v, %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Fatal("expected results[1].Err for width 20")
	}
}

func TestRunRecordsRunsAndSeries(t *testing.T) {
	store := newMemoryStore()
	cfg := Config{
		Scenario: "baseline",
		Model:    "sweep",
		New: func(params Params, seed int64) (sim.Runnable, *collect.Collector, error) {
			model := newSweepModel(seed, 2)
			c := collect.New()
			c.ModelReporter("steps", func() any { return model.steps })
			return model, c, nil
		},
		MaxSteps: 5,
		BaseSeed: 9,
		Store:    store,
	}

	results, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	runID := results[0].RunID

	puts := store.puts[runID]
	if len(puts) != 2 {
		t.Fatalf("PutRun calls = %d, want 2", len(puts))
	}
	if puts[0].Status != storage.RunStatusRunning {
		t.Fatalf("first status = %v, want %v", puts[0].Status, storage.RunStatusRunning)
	}
	final := puts[1]
	if final.Status != storage.RunStatusCompleted {
		t.Fatalf("final status = %v, want %v", final.Status, storage.RunStatusCompleted)
	}
	if final.Steps != 2 {
		t.Fatalf("final Steps = %d, want 2", final.Steps)
	}
	if final.Scenario != "baseline" || final.Model != "sweep" {
		t.Fatalf("final run = %+v, want scenario baseline model sweep", final)
	}
	if final.Seed != 9 {
		t.Fatalf("final Seed = %d, want 9", final.Seed)
	}

	if len(store.collected) != 1 || store.collected[0] != runID {
		t.Fatalf("collected = %v, want [%s]", store.collected, runID)
	}
}

func TestRunRecordsFailureStatus(t *testing.T) {
	store := newMemoryStore()
	cfg := Config{
		New: func(params Params, seed int64) (sim.Runnable, *collect.Collector, error) {
			return nil, nil, fmt.Errorf("boom")
		},
		BaseSeed: 1,
		Store:    store,
	}

	results, err := Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected the constructor error")
	}
	puts := store.puts[results[0].RunID]
	if len(puts) != 2 {
		t.Fatalf("PutRun calls = %d, want 2", len(puts))
	}
	if puts[1].Status != storage.RunStatusFailed {
		t.Fatalf("final status = %v, want %v", puts[1].Status, storage.RunStatusFailed)
	}
	if puts[1].Error == "" {
		t.Fatal("final record has no error text")
	}
	if len(store.collected) != 0 {
		t.Fatalf("collected = %v, want none for a failed run", store.collected)
	}
}
