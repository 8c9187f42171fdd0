package wolfsheep

import (
	"github.com/steppesim/steppe/models/evo"
	"github.com/steppesim/steppe/space"
)

// walker is the shared substrate for wolves and sheep: an
// evolutionary agent that moves one cell per step.
type walker struct {
	*evo.Agent
	model        *Model
	moore        bool
	gainFromFood int
}

func (w *walker) randomMove(self space.Agent) {
	pos, ok := w.model.Grid.PositionOf(self)
	if !ok {
		return
	}
	moves, err := w.model.Grid.Neighborhood(pos, w.moore, 1, true)
	if err != nil || len(moves) == 0 {
		return
	}
	next := moves[w.model.Rand.IntN(len(moves))]
	_ = w.model.Grid.MoveAgent(self, next)
}

func (w *walker) cellmates(self space.Agent) []space.Agent {
	pos, ok := w.model.Grid.PositionOf(self)
	if !ok {
		return nil
	}
	contents, err := w.model.Grid.CellContents(pos)
	if err != nil {
		return nil
	}
	return contents
}

func newWalker(m *Model, reprProb float64, gain int) walker {
	agent := evo.NewAgent(m.NextID(), m.Rand, 10)
	agent.TrackEnergy = true
	agent.Energy = m.Rand.IntN(2*gain) + 1
	agent.ReprProb = reprProb
	agent.DieProb = 0
	return walker{
		Agent:        agent,
		model:        m,
		moore:        true,
		gainFromFood: gain,
	}
}

func (w walker) duplicate(id int64) walker {
	dup := w
	dup.Agent = w.Agent.Clone(id)
	return dup
}

// Sheep walks around, grazes when grass is enabled, and gets eaten.
type Sheep struct {
	walker
}

func newSheep(m *Model) *Sheep {
	return &Sheep{walker: newWalker(m, m.Cfg.SheepReproduce, m.Cfg.SheepGainFromFood)}
}

func (s *Sheep) Step() {
	s.Agent.Step()
	s.randomMove(s)

	if !s.model.Cfg.Grass {
		return
	}
	s.ConsumeEnergy(1)
	for _, mate := range s.cellmates(s) {
		patch, ok := mate.(*GrassPatch)
		if !ok || !patch.FullyGrown {
			continue
		}
		s.GainEnergy(s.gainFromFood)
		patch.FullyGrown = false
		break
	}
}

func (s *Sheep) Duplicate(id int64) evo.Individual {
	return &Sheep{walker: s.walker.duplicate(id)}
}

// Wolf walks around and eats one sheep per step when it finds any.
type Wolf struct {
	walker
}

func newWolf(m *Model) *Wolf {
	return &Wolf{walker: newWalker(m, m.Cfg.WolfReproduce, m.Cfg.WolfGainFromFood)}
}

func (w *Wolf) Step() {
	w.Agent.Step()
	w.randomMove(w)
	w.ConsumeEnergy(1)

	var prey []*Sheep
	for _, mate := range w.cellmates(w) {
		if sheep, ok := mate.(*Sheep); ok && !sheep.Dead() {
			prey = append(prey, sheep)
		}
	}
	if len(prey) == 0 {
		return
	}
	eaten := prey[w.model.Rand.IntN(len(prey))]
	w.GainEnergy(w.gainFromFood)
	eaten.Kill()
}

func (w *Wolf) Duplicate(id int64) evo.Individual {
	return &Wolf{walker: w.walker.duplicate(id)}
}

// GrassPatch regrows at a fixed rate after being grazed. Patches do
// not take part in selection.
type GrassPatch struct {
	id         int64
	model      *Model
	FullyGrown bool
	Countdown  int
}

func newGrassPatch(m *Model) *GrassPatch {
	return &GrassPatch{
		id:         m.NextID(),
		model:      m,
		FullyGrown: true,
		Countdown:  m.Cfg.GrassRegrowthTime,
	}
}

func (g *GrassPatch) ID() int64 { return g.id }

func (g *GrassPatch) Step() {
	if g.FullyGrown {
		return
	}
	if g.Countdown <= 0 {
		g.FullyGrown = true
		g.Countdown = g.model.Cfg.GrassRegrowthTime
		return
	}
	g.Countdown--
}
