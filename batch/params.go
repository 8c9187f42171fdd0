// Package batch runs parameter sweeps: cartesian or sampled parameter
// combinations executed across iterations on a bounded worker pool, with
// per-run data collection and optional persistence.
package batch

import (
	"math/rand/v2"
	"sort"
)

// Params is one parameter combination passed to a model constructor.
type Params map[string]any

// Clone returns a copy of the combination.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Product expands parameter values into every combination, iterating keys
// alphabetically so the expansion order is deterministic.
func Product(values map[string][]any) []Params {
	keys := sortedKeys(values)
	if len(keys) == 0 {
		return []Params{{}}
	}

	combinations := []Params{{}}
	for _, key := range keys {
		options := values[key]
		if len(options) == 0 {
			continue
		}
		var next []Params
		for _, combination := range combinations {
			for _, option := range options {
				expanded := combination.Clone()
				expanded[key] = option
				next = append(next, expanded)
			}
		}
		combinations = next
	}
	return combinations
}

// Sample draws n combinations uniformly at random, one value per key.
func Sample(values map[string][]any, n int, rng *rand.Rand) []Params {
	if n <= 0 || rng == nil {
		return nil
	}
	keys := sortedKeys(values)

	combinations := make([]Params, 0, n)
	for i := 0; i < n; i++ {
		combination := make(Params, len(keys))
		for _, key := range keys {
			options := values[key]
			if len(options) == 0 {
				continue
			}
			combination[key] = options[rng.IntN(len(options))]
		}
		combinations = append(combinations, combination)
	}
	return combinations
}

func sortedKeys(values map[string][]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
