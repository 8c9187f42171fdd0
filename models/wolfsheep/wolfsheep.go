// Package wolfsheep implements the NetLogo wolf-sheep predation
// model: wolves and sheep walk a toroidal grid, wolves eat sheep,
// sheep optionally graze, and both breeds reproduce asexually.
//
// Wilensky, U. (1997). NetLogo Wolf Sheep Predation model.
// http://ccl.northwestern.edu/netlogo/models/WolfSheepPredation.
package wolfsheep

import (
	"fmt"

	"github.com/steppesim/steppe/collect"
	"github.com/steppesim/steppe/models/evo"
	"github.com/steppesim/steppe/space"
)

// Config holds the model parameters.
type Config struct {
	Width  int
	Height int

	InitialSheep  int
	InitialWolves int

	SheepReproduce float64
	WolfReproduce  float64

	WolfGainFromFood int

	// Grass enables grazing: sheep spend energy moving and regain it
	// from fully grown grass patches.
	Grass             bool
	GrassRegrowthTime int
	SheepGainFromFood int
}

// DefaultConfig returns the NetLogo reference parameters.
func DefaultConfig() Config {
	return Config{
		Width:             20,
		Height:            20,
		InitialSheep:      100,
		InitialWolves:     50,
		SheepReproduce:    0.04,
		WolfReproduce:     0.05,
		WolfGainFromFood:  20,
		Grass:             false,
		GrassRegrowthTime: 30,
		SheepGainFromFood: 4,
	}
}

// Model is the wolf-sheep predation model.
type Model struct {
	*evo.Population
	Cfg       Config
	Grid      *space.Grid
	Collector *collect.Collector
}

// New creates a wolf-sheep model with the given parameters and seed.
func New(cfg Config, seed int64) (*Model, error) {
	m := &Model{
		Population: evo.NewPopulation(seed, evo.Probabilistic{Repro: evo.Asexual{}}),
		Cfg:        cfg,
		Grid:       space.NewMultiGrid(cfg.Width, cfg.Height, true),
		Collector:  collect.New(),
	}

	m.Collector.ModelReporter("wolves", func() any {
		wolves, _ := m.Counts()
		return wolves
	})
	m.Collector.ModelReporter("sheep", func() any {
		_, sheep := m.Counts()
		return sheep
	})

	for i := 0; i < cfg.InitialSheep; i++ {
		sheep := newSheep(m)
		if err := m.place(sheep); err != nil {
			return nil, err
		}
	}
	for i := 0; i < cfg.InitialWolves; i++ {
		wolf := newWolf(m)
		if err := m.place(wolf); err != nil {
			return nil, err
		}
	}

	if cfg.Grass {
		for x := 0; x < cfg.Width; x++ {
			for y := 0; y < cfg.Height; y++ {
				patch := newGrassPatch(m)
				if m.Rand.IntN(2) == 0 {
					patch.FullyGrown = false
					patch.Countdown = m.Rand.IntN(cfg.GrassRegrowthTime)
				}
				if err := m.Grid.PlaceAgent(patch, space.Coord{X: x, Y: y}); err != nil {
					return nil, fmt.Errorf("place grass: %w", err)
				}
				m.Schedule.Add(patch)
			}
		}
	}
	return m, nil
}

func (m *Model) place(animal evo.Individual) error {
	pos := space.Coord{X: m.Rand.IntN(m.Cfg.Width), Y: m.Rand.IntN(m.Cfg.Height)}
	if err := m.Grid.PlaceAgent(animal, pos); err != nil {
		return fmt.Errorf("place agent: %w", err)
	}
	m.Schedule.Add(animal)
	return nil
}

// Step advances the model by one tick: selection removes starved and
// eaten animals and spawns newborns next to their parents, then every
// animal acts.
func (m *Model) Step() {
	out := m.UpdatePopulation()
	for _, death := range out.Deaths {
		_ = m.Grid.RemoveAgent(death)
	}
	for i, offspring := range out.Offspring {
		pos, ok := m.Grid.PositionOf(out.Parents[i])
		if !ok {
			continue
		}
		_ = m.Grid.PlaceAgent(offspring, pos)
	}

	m.Schedule.Step()
	m.Collector.Collect(m)
}

// Counts returns the number of living wolves and sheep. Animals killed
// during the current step stay scheduled until the next selection pass
// and must not be counted.
func (m *Model) Counts() (wolves, sheep int) {
	for _, agent := range m.Schedule.Agents() {
		switch animal := agent.(type) {
		case *Wolf:
			if !animal.Dead() {
				wolves++
			}
		case *Sheep:
			if !animal.Dead() {
				sheep++
			}
		}
	}
	return wolves, sheep
}

// VizGrid exposes the grid for the canvas element.
func (m *Model) VizGrid() *space.Grid { return m.Grid }

// VizCollector exposes the collector for the chart element.
func (m *Model) VizCollector() *collect.Collector { return m.Collector }
