// Package evo provides building blocks for evolutionary simulations:
// agents with a genome, energy, and age, pluggable reproduction
// strategies, and selection models that decide death and birth each
// generation.
package evo

import (
	"math/rand/v2"

	"github.com/steppesim/steppe/sim"
)

// ProbUnset marks an individual probability as absent so the
// selection model's global probability applies instead.
const ProbUnset = -1.0

// Agent is the evolutionary substrate embedded by concrete agent
// types. It carries the genome, energy budget, and age.
type Agent struct {
	AgentID int64
	DNA     []float64

	// Energy is ignored unless TrackEnergy is set.
	Energy      int
	TrackEnergy bool

	Age int

	// ReprProb and DieProb override the selection model's global
	// probabilities when non-negative.
	ReprProb float64
	DieProb  float64

	MutationRate float64

	deceased bool
}

// NewAgent creates an agent with a random genome of genomeLen genes.
func NewAgent(id int64, rng *rand.Rand, genomeLen int) *Agent {
	dna := make([]float64, genomeLen)
	for i := range dna {
		dna[i] = rng.Float64()
	}
	return &Agent{
		AgentID:      id,
		DNA:          dna,
		ReprProb:     ProbUnset,
		DieProb:      ProbUnset,
		MutationRate: 1.0,
	}
}

func (a *Agent) ID() int64 { return a.AgentID }

// Step ages the agent by one tick.
func (a *Agent) Step() { a.Age++ }

// Evo returns the agent itself. Embedders satisfy Individual with it.
func (a *Agent) Evo() *Agent { return a }

// Clone copies the agent with a fresh genome slice and the given id.
// Age and death state are not inherited.
func (a *Agent) Clone(id int64) *Agent {
	dup := &Agent{
		AgentID:      id,
		DNA:          append([]float64(nil), a.DNA...),
		Energy:       a.Energy,
		TrackEnergy:  a.TrackEnergy,
		ReprProb:     a.ReprProb,
		DieProb:      a.DieProb,
		MutationRate: a.MutationRate,
	}
	return dup
}

// Mutate adds gaussian noise scaled by the mutation rate to every gene.
func (a *Agent) Mutate(rng *rand.Rand) {
	for i := range a.DNA {
		a.DNA[i] += rng.NormFloat64() * a.MutationRate
	}
}

// ConsumeEnergy subtracts energy and kills the agent at zero or below.
func (a *Agent) ConsumeEnergy(n int) {
	if !a.TrackEnergy {
		return
	}
	a.Energy -= n
	if a.Energy <= 0 {
		a.deceased = true
	}
}

// GainEnergy adds energy if the agent tracks it.
func (a *Agent) GainEnergy(n int) {
	if !a.TrackEnergy {
		return
	}
	a.Energy += n
}

// Kill marks the agent for removal at the next generation.
func (a *Agent) Kill() { a.deceased = true }

// Dead reports whether the agent has been killed or starved.
func (a *Agent) Dead() bool { return a.deceased }

// Individual is an agent that participates in selection and
// reproduction. Duplicate produces a new agent of the same concrete
// type with the given id, copying inherited state.
type Individual interface {
	sim.Agent
	Evo() *Agent
	Duplicate(id int64) Individual
}
