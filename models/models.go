// Package models registers the bundled example models under the
// names scenarios refer to them by.
package models

import (
	"fmt"
	"sort"

	"github.com/steppesim/steppe/batch"
	"github.com/steppesim/steppe/collect"
	"github.com/steppesim/steppe/models/evo"
	"github.com/steppesim/steppe/models/schelling"
	"github.com/steppesim/steppe/models/wolfsheep"
	"github.com/steppesim/steppe/sim"
)

type constructor func(params batch.Params, seed int64) (sim.Runnable, *collect.Collector, error)

var registry = map[string]constructor{
	"schelling": newSchelling,
	"wolfsheep": newWolfSheep,
	"evo":       newEvoDemo,
}

// Names lists the registered model names in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the named model with the given parameters and seed.
func New(name string, params batch.Params, seed int64) (sim.Runnable, *collect.Collector, error) {
	build, ok := registry[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown model %q (have %v)", name, Names())
	}
	return build(params, seed)
}

// Constructor adapts the named model to the batch runner's signature.
func Constructor(name string) func(batch.Params, int64) (sim.Runnable, *collect.Collector, error) {
	return func(params batch.Params, seed int64) (sim.Runnable, *collect.Collector, error) {
		return New(name, params, seed)
	}
}

func newSchelling(params batch.Params, seed int64) (sim.Runnable, *collect.Collector, error) {
	cfg := schelling.DefaultConfig()
	cfg.Width = intParam(params, "width", cfg.Width)
	cfg.Height = intParam(params, "height", cfg.Height)
	cfg.Density = floatParam(params, "density", cfg.Density)
	cfg.MinorityShare = floatParam(params, "minority_share", cfg.MinorityShare)
	cfg.Homophily = intParam(params, "homophily", cfg.Homophily)

	model, err := schelling.New(cfg, seed)
	if err != nil {
		return nil, nil, err
	}
	return model, model.Collector, nil
}

func newWolfSheep(params batch.Params, seed int64) (sim.Runnable, *collect.Collector, error) {
	cfg := wolfsheep.DefaultConfig()
	cfg.Width = intParam(params, "width", cfg.Width)
	cfg.Height = intParam(params, "height", cfg.Height)
	cfg.InitialSheep = intParam(params, "initial_sheep", cfg.InitialSheep)
	cfg.InitialWolves = intParam(params, "initial_wolves", cfg.InitialWolves)
	cfg.SheepReproduce = floatParam(params, "sheep_reproduce", cfg.SheepReproduce)
	cfg.WolfReproduce = floatParam(params, "wolf_reproduce", cfg.WolfReproduce)
	cfg.WolfGainFromFood = intParam(params, "wolf_gain_from_food", cfg.WolfGainFromFood)
	cfg.Grass = boolParam(params, "grass", cfg.Grass)
	cfg.GrassRegrowthTime = intParam(params, "grass_regrowth_time", cfg.GrassRegrowthTime)
	cfg.SheepGainFromFood = intParam(params, "sheep_gain_from_food", cfg.SheepGainFromFood)

	model, err := wolfsheep.New(cfg, seed)
	if err != nil {
		return nil, nil, err
	}
	return model, model.Collector, nil
}

// evoDemo is a minimal evolutionary population: agents age, die by
// roulette over age, and reproduce asexually by roulette over energy.
type evoDemo struct {
	*evo.Population
	collector *collect.Collector
}

type demoAgent struct {
	*evo.Agent
}

func (d *demoAgent) Duplicate(id int64) evo.Individual {
	return &demoAgent{Agent: d.Agent.Clone(id)}
}

func (m *evoDemo) Step() {
	m.Population.Step()
	m.collector.Collect(m)
}

func newEvoDemo(params batch.Params, seed int64) (sim.Runnable, *collect.Collector, error) {
	size := intParam(params, "population", 100)
	genomeLen := intParam(params, "genome_len", 10)
	energy := intParam(params, "energy", 10)
	maxAge := intParam(params, "max_age", 20)
	maxEnergy := intParam(params, "max_energy", 20)

	selection := evo.Roulette{
		FractionToKill: floatParam(params, "fraction_to_kill", 1.0),
		FractionToMate: floatParam(params, "fraction_to_mate", 1.0),
		MaxAge:         maxAge,
		MaxEnergy:      maxEnergy,
		Repro:          evo.Asexual{},
	}

	m := &evoDemo{
		Population: evo.NewPopulation(seed, selection),
		collector:  collect.New(),
	}
	m.collector.ModelReporter("population", func() any {
		return m.Schedule.AgentCount()
	})
	m.collector.AgentReporter("age", func(agent sim.Agent) any {
		return agent.(evo.Individual).Evo().Age
	})

	for i := 0; i < size; i++ {
		agent := evo.NewAgent(m.NextID(), m.Rand, genomeLen)
		agent.TrackEnergy = true
		agent.Energy = energy
		m.Schedule.Add(&demoAgent{Agent: agent})
	}
	return m, m.collector, nil
}

func intParam(params batch.Params, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func floatParam(params batch.Params, key string, fallback float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

func boolParam(params batch.Params, key string, fallback bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return fallback
}
