package evo

import "github.com/steppesim/steppe/sim"

// Population is a model whose agent pool changes through selection.
// Each step the selection model is applied first, removing deaths and
// scheduling newborns, and then every surviving agent is activated.
type Population struct {
	*sim.Model
	Selection Selection
}

// NewPopulation creates an evolutionary model with a random
// activation schedule. Callers may swap the schedule before adding
// agents.
func NewPopulation(seed int64, selection Selection) *Population {
	p := &Population{
		Model:     sim.NewModel(seed),
		Selection: selection,
	}
	p.Schedule = sim.NewRandomActivation(p.Model)
	p.Running = true
	return p
}

// Individuals returns the scheduled agents that take part in
// selection, in schedule order.
func (p *Population) Individuals() []Individual {
	agents := p.Schedule.Agents()
	individuals := make([]Individual, 0, len(agents))
	for _, agent := range agents {
		if individual, ok := agent.(Individual); ok {
			individuals = append(individuals, individual)
		}
	}
	return individuals
}

// UpdatePopulation runs one round of selection, removing deaths from
// the schedule and adding offspring.
func (p *Population) UpdatePopulation() Outcome {
	out := p.Selection.NextGeneration(p.Individuals(), p.NextID, p.Rand)
	for _, death := range out.Deaths {
		p.Schedule.Remove(death.ID())
	}
	for _, offspring := range out.Offspring {
		p.Schedule.Add(offspring)
	}
	return out
}

// Step advances the model: selection first, then agent activation.
func (p *Population) Step() {
	p.UpdatePopulation()
	p.Schedule.Step()
}
