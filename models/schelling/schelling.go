// Package schelling implements the Schelling segregation model.
// Residents of two types live on a toroidal grid and move to a random
// empty cell whenever too few of their neighbors are of the same
// type. The model halts once every resident is happy.
package schelling

import (
	"github.com/steppesim/steppe/collect"
	"github.com/steppesim/steppe/sim"
	"github.com/steppesim/steppe/space"
)

// Config holds the model parameters.
type Config struct {
	Width  int
	Height int

	// Density is the chance that a cell starts occupied.
	Density float64

	// MinorityShare is the chance that a resident is of the minority type.
	MinorityShare float64

	// Homophily is the minimum number of same-type neighbors a
	// resident needs to be happy.
	Homophily int
}

// DefaultConfig returns the canonical small configuration.
func DefaultConfig() Config {
	return Config{
		Width:         10,
		Height:        10,
		Density:       0.8,
		MinorityShare: 0.2,
		Homophily:     3,
	}
}

// Model is the Schelling segregation model.
type Model struct {
	*sim.Model
	Cfg       Config
	Grid      *space.Grid
	Collector *collect.Collector

	// Happy counts residents satisfied with their neighborhood,
	// reset at the start of every step.
	Happy int
}

// New creates a Schelling model with the given parameters and seed.
func New(cfg Config, seed int64) (*Model, error) {
	m := &Model{
		Model:     sim.NewModel(seed),
		Cfg:       cfg,
		Grid:      space.NewSingleGrid(cfg.Width, cfg.Height, true),
		Collector: collect.New(),
	}
	m.Schedule = sim.NewRandomActivation(m.Model)
	m.Running = true

	m.Collector.ModelReporter("happy", func() any { return m.Happy })
	m.Collector.AgentReporter("x", func(agent sim.Agent) any {
		pos, _ := m.Grid.PositionOf(agent.(*Resident))
		return pos.X
	})
	m.Collector.AgentReporter("y", func(agent sim.Agent) any {
		pos, _ := m.Grid.PositionOf(agent.(*Resident))
		return pos.Y
	})

	for x := 0; x < cfg.Width; x++ {
		for y := 0; y < cfg.Height; y++ {
			if m.Rand.Float64() >= cfg.Density {
				continue
			}
			kind := Majority
			if m.Rand.Float64() < cfg.MinorityShare {
				kind = Minority
			}
			resident := &Resident{id: m.NextID(), model: m, Kind: kind}
			if err := m.Grid.PlaceAgent(resident, space.Coord{X: x, Y: y}); err != nil {
				return nil, err
			}
			m.Schedule.Add(resident)
		}
	}
	return m, nil
}

// Step runs one round of moves and halts the model once everyone is
// happy.
func (m *Model) Step() {
	m.Happy = 0
	m.Schedule.Step()
	m.Collector.Collect(m)

	if m.Happy == m.Schedule.AgentCount() {
		m.Running = false
	}
}

// VizGrid exposes the grid for the canvas element.
func (m *Model) VizGrid() *space.Grid { return m.Grid }

// VizCollector exposes the collector for the chart element.
func (m *Model) VizCollector() *collect.Collector { return m.Collector }

// Kind labels the two resident types.
type Kind int

const (
	Majority Kind = iota
	Minority
)

// Resident is a single household on the grid.
type Resident struct {
	id    int64
	model *Model
	Kind  Kind
}

func (r *Resident) ID() int64 { return r.id }

// Step counts same-type neighbors and moves to a random empty cell
// when there are too few.
func (r *Resident) Step() {
	pos, ok := r.model.Grid.PositionOf(r)
	if !ok {
		return
	}
	neighbors, err := r.model.Grid.Neighbors(pos, true, 1, false)
	if err != nil {
		return
	}

	similar := 0
	for _, neighbor := range neighbors {
		if other, ok := neighbor.(*Resident); ok && other.Kind == r.Kind {
			similar++
		}
	}

	if similar < r.model.Cfg.Homophily {
		_, _ = r.model.Grid.MoveToEmpty(r, r.model.Rand)
		return
	}
	r.model.Happy++
}
