package evo

import (
	"math/rand/v2"
	"reflect"
)

// Reproduction produces an offspring for a parent, or nil when the
// parent cannot reproduce. newID supplies identifiers for newborns.
type Reproduction interface {
	Reproduce(parent Individual, population []Individual, newID func() int64, rng *rand.Rand) Individual
}

// Asexual clones the parent with a mutated genome. Parents that track
// energy give half of it to the offspring and cannot reproduce when
// the split would leave either side without energy.
type Asexual struct{}

func (Asexual) Reproduce(parent Individual, _ []Individual, newID func() int64, rng *rand.Rand) Individual {
	offspring := parent.Duplicate(newID())
	offspring.Evo().Mutate(rng)

	p := parent.Evo()
	if p.TrackEnergy {
		half := p.Energy / 2
		if half <= 0 || p.Energy-half <= 0 {
			return nil
		}
		p.Energy -= half
		offspring.Evo().Energy = half
	}
	return offspring
}

// Sexual crosses the parent's genome with a randomly chosen partner
// of the same concrete type, then mutates the result. MixingRatio is
// the fraction of genes taken from the parent; zero means half.
type Sexual struct {
	MixingRatio float64
}

func (s Sexual) Reproduce(parent Individual, population []Individual, newID func() int64, rng *rand.Rand) Individual {
	ratio := s.MixingRatio
	if ratio == 0 {
		ratio = 0.5
	}

	partner := s.pickPartner(parent, population, rng)
	if partner == nil {
		return nil
	}

	offspring := parent.Duplicate(newID())
	child := offspring.Evo()
	child.DNA = crossover(parent.Evo().DNA, partner.Evo().DNA, ratio, rng)
	child.Mutate(rng)

	p := parent.Evo()
	if p.TrackEnergy {
		share := p.Energy / 3
		partnerShare := partner.Evo().Energy / 3
		if p.Energy-share <= 0 || partner.Evo().Energy-partnerShare <= 0 || share+partnerShare <= 0 {
			return nil
		}
		p.Energy -= share
		partner.Evo().Energy -= partnerShare
		child.Energy = share + partnerShare
	}
	return offspring
}

func (s Sexual) pickPartner(parent Individual, population []Individual, rng *rand.Rand) Individual {
	parentType := reflect.TypeOf(parent)
	var candidates []Individual
	for _, other := range population {
		if other == parent || reflect.TypeOf(other) != parentType {
			continue
		}
		p, o := parent.Evo(), other.Evo()
		if p.TrackEnergy != o.TrackEnergy {
			continue
		}
		if p.TrackEnergy && p.Energy/3+o.Energy/3 <= 0 {
			continue
		}
		candidates = append(candidates, other)
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[rng.IntN(len(candidates))]
}

func crossover(a, b []float64, ratio float64, rng *rand.Rand) []float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	genes := append([]float64(nil), b[:n]...)

	indices := rng.Perm(n)
	keep := int(float64(n) * ratio)
	for _, i := range indices[:keep] {
		genes[i] = a[i]
	}
	return genes
}
