package evo

import "math/rand/v2"

// Outcome lists what happened to a population in one generation.
// Parents[i] is the agent that produced Offspring[i].
type Outcome struct {
	Deaths    []Individual
	Offspring []Individual
	Parents   []Individual
}

// Died reports whether the agent was selected for death.
func (o Outcome) Died(agent Individual) bool {
	for _, d := range o.Deaths {
		if d == agent {
			return true
		}
	}
	return false
}

// Reproduced reports whether the agent produced an offspring.
func (o Outcome) Reproduced(agent Individual) bool {
	for _, p := range o.Parents {
		if p == agent {
			return true
		}
	}
	return false
}

// Selection decides which agents die and which reproduce each
// generation. newID supplies identifiers for newborns.
type Selection interface {
	NextGeneration(population []Individual, newID func() int64, rng *rand.Rand) Outcome
}

// Roulette selects with stochastic acceptance: a fraction of the
// population is tested for death with probability age/MaxAge, and a
// fraction of the survivors for reproduction with probability
// energy/MaxEnergy.
type Roulette struct {
	FractionToKill float64
	FractionToMate float64
	MaxAge         int
	MaxEnergy      int
	Repro          Reproduction
}

func (r Roulette) NextGeneration(population []Individual, newID func() int64, rng *rand.Rand) Outcome {
	var out Outcome

	alive := make([]Individual, 0, len(population))
	for _, agent := range population {
		if agent.Evo().Dead() {
			out.Deaths = append(out.Deaths, agent)
			continue
		}
		alive = append(alive, agent)
	}

	rng.Shuffle(len(alive), func(i, j int) {
		alive[i], alive[j] = alive[j], alive[i]
	})
	tested := alive[:int(r.FractionToKill*float64(len(alive)))]
	for _, agent := range tested {
		weight := float64(agent.Evo().Age) / float64(r.MaxAge)
		if rng.Float64() < weight {
			out.Deaths = append(out.Deaths, agent)
		}
	}

	survivors := make([]Individual, 0, len(tested))
	for _, agent := range tested {
		if !out.Died(agent) {
			survivors = append(survivors, agent)
		}
	}
	couples := survivors[:int(r.FractionToMate*float64(len(survivors)))]
	for _, agent := range couples {
		weight := float64(agent.Evo().Energy) / float64(r.MaxEnergy)
		if rng.Float64() < weight {
			r.reproduce(&out, agent, survivors, newID, rng)
		}
	}
	return out
}

func (r Roulette) reproduce(out *Outcome, agent Individual, population []Individual, newID func() int64, rng *rand.Rand) {
	offspring := r.Repro.Reproduce(agent, population, newID, rng)
	if offspring == nil {
		return
	}
	out.Parents = append(out.Parents, agent)
	out.Offspring = append(out.Offspring, offspring)
}

// Probabilistic kills and reproduces each agent with fixed
// probabilities. An agent's own DieProb or ReprProb overrides the
// global value when set.
type Probabilistic struct {
	DieProb  float64
	ReprProb float64
	Repro    Reproduction
}

func (p Probabilistic) NextGeneration(population []Individual, newID func() int64, rng *rand.Rand) Outcome {
	var out Outcome

	for _, agent := range population {
		a := agent.Evo()
		if (a.TrackEnergy && a.Energy < 0) || a.Dead() || rng.Float64() < p.probability(a.DieProb, p.DieProb) {
			out.Deaths = append(out.Deaths, agent)
		}
	}

	for _, agent := range population {
		a := agent.Evo()
		if a.TrackEnergy && a.Energy <= 1 {
			continue
		}
		if a.Dead() || out.Died(agent) {
			continue
		}
		if rng.Float64() < p.probability(a.ReprProb, p.ReprProb) {
			offspring := p.Repro.Reproduce(agent, population, newID, rng)
			if offspring == nil {
				continue
			}
			out.Parents = append(out.Parents, agent)
			out.Offspring = append(out.Offspring, offspring)
		}
	}
	return out
}

func (p Probabilistic) probability(individual, global float64) float64 {
	if individual >= 0 {
		return individual
	}
	return global
}
