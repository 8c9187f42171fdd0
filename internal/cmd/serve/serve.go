// Package serve implements the steppe serve subcommand: host the
// browser visualization for a scenario, optionally reloading it when
// the script changes on disk.
package serve

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/steppesim/steppe/batch"
	"github.com/steppesim/steppe/internal/platform/config"
	"github.com/steppesim/steppe/internal/project"
	"github.com/steppesim/steppe/models"
	"github.com/steppesim/steppe/scenario"
	"github.com/steppesim/steppe/sim"
	"github.com/steppesim/steppe/space"
	"github.com/steppesim/steppe/viz"
)

const defaultAddr = ":8521"

// Config holds the serve command configuration.
type Config struct {
	Scenario string
	Model    string
	Addr     string
	MaxSteps int
	Watch    bool
}

// ParseConfig parses flags into a Config. Project manifest values fill
// in whatever the flags and environment leave unset.
func ParseConfig(fs *flag.FlagSet, args []string, lookup config.EnvLookup) (Config, error) {
	cfg := Config{
		Scenario: config.EnvOrDefault(lookup, []string{"STEPPE_SCENARIO"}, ""),
		Model:    config.EnvOrDefault(lookup, []string{"STEPPE_MODEL"}, ""),
		Addr:     config.EnvOrDefault(lookup, []string{"STEPPE_ADDR"}, ""),
	}

	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "Scenario script to visualize")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Model name, when not using a scenario")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.IntVar(&cfg.MaxSteps, "max-steps", 0, "Frames to render per run, 0 uses the scenario's")
	fs.BoolVar(&cfg.Watch, "watch", false, "Reload when the scenario file changes")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	manifest, found, err := project.Load(".")
	if err != nil {
		return Config{}, err
	}
	if found {
		if cfg.Scenario == "" && cfg.Model == "" {
			cfg.Scenario = manifest.Scenario
		}
		if cfg.Addr == "" {
			cfg.Addr = manifest.Addr
		}
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	return cfg, nil
}

// scenarioHolder carries the current scenario so watch mode can swap
// it under the server.
type scenarioHolder struct {
	mu sync.Mutex
	sc *scenario.Scenario
}

func (h *scenarioHolder) get() *scenario.Scenario {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sc
}

func (h *scenarioHolder) set(sc *scenario.Scenario) {
	h.mu.Lock()
	h.sc = sc
	h.mu.Unlock()
}

// Run hosts the visualization server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	holder := &scenarioHolder{}
	if cfg.Scenario != "" {
		sc, err := scenario.Load(cfg.Scenario)
		if err != nil {
			return err
		}
		holder.set(sc)
	} else if cfg.Model != "" {
		holder.set(&scenario.Scenario{
			Name:       cfg.Model,
			Model:      cfg.Model,
			Iterations: 1,
			Params:     map[string]any{},
			Sweep:      map[string][]any{},
		})
	} else {
		return errors.New("either -scenario or -model is required")
	}

	sc := holder.get()
	newModel := func(userParams map[string]any) (sim.Runnable, error) {
		current := holder.get()
		params := batch.Params{}
		for key, value := range current.Params {
			params[key] = value
		}
		for key, value := range userParams {
			params[key] = value
		}
		seed := current.Seed
		if seed == 0 {
			seed = 1
		}
		model, _, err := models.New(current.Model, params, seed)
		return model, err
	}

	elements, params, err := buildElements(sc)
	if err != nil {
		return err
	}

	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = sc.MaxSteps
	}
	server, err := viz.NewServer(viz.Config{
		Addr:     cfg.Addr,
		Title:    sc.Name,
		MaxSteps: maxSteps,
	}, newModel, elements, params)
	if err != nil {
		return fmt.Errorf("init viz server: %w", err)
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return server.ListenAndServe(ctx)
	})
	if cfg.Watch && cfg.Scenario != "" {
		group.Go(func() error {
			err := viz.Watch(ctx, cfg.Scenario, func() error {
				sc, err := scenario.Load(cfg.Scenario)
				if err != nil {
					return err
				}
				holder.set(sc)
				return server.Reset()
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	return group.Wait()
}

// palette colors chart series and canvas layers.
var palette = []string{"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd", "#8c564b"}

// buildElements probes the scenario's model once to decide which
// visualization elements apply: a canvas when the model exposes a
// grid, a chart per model reporter, and a step counter. Swept
// parameter lists become interactive choices.
func buildElements(sc *scenario.Scenario) ([]viz.Element, []viz.UserParam, error) {
	params := batch.Params{}
	for key, value := range sc.Params {
		params[key] = value
	}
	seed := sc.Seed
	if seed == 0 {
		seed = 1
	}
	probe, collector, err := models.New(sc.Model, params, seed)
	if err != nil {
		return nil, nil, fmt.Errorf("probe model %s: %w", sc.Model, err)
	}

	var elements []viz.Element
	if gridModel, ok := probe.(viz.GridModel); ok {
		grid := gridModel.VizGrid()
		elements = append(elements, viz.NewCanvasGrid(defaultPortrayal, grid.Width(), grid.Height()))
	}
	if collector != nil {
		var series []viz.ChartSeries
		for i, name := range collector.ModelReporterNames() {
			series = append(series, viz.ChartSeries{
				Label: name,
				Color: palette[i%len(palette)],
			})
		}
		if len(series) > 0 {
			elements = append(elements, viz.NewChartModule(series))
		}
	}
	elements = append(elements, viz.StepCounter())

	names := make([]string, 0, len(sc.Sweep))
	for name := range sc.Sweep {
		names = append(names, name)
	}
	sort.Strings(names)

	var userParams []viz.UserParam
	for _, name := range names {
		values := sc.Sweep[name]
		if len(values) == 0 {
			continue
		}
		userParams = append(userParams, viz.NewChoice(name, values[0], values...))
	}
	return elements, userParams, nil
}

func defaultPortrayal(agent space.Agent) *viz.Portrayal {
	return &viz.Portrayal{
		Shape: "circle",
		Color: palette[int(agent.ID())%len(palette)],
		Layer: 0,
	}
}
