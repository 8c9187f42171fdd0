package sim

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/steppesim/steppe/internal/platform/random"
)

// Model is the shared runtime state embedded by concrete models. It owns the
// seeded random stream, the agent identifier counter, the running flag, and
// the attached scheduler.
type Model struct {
	// Rand is the model-level random stream. All stochastic behavior in a
	// model should draw from it so a fixed seed replays a run exactly.
	Rand *rand.Rand
	// Running reports whether the model wants further steps. Concrete
	// models flip it to false when their end condition is reached.
	Running bool
	// Schedule drives agent activation. Concrete models assign it during
	// construction.
	Schedule Scheduler

	seed      int64
	currentID int64
}

// NewModel creates model runtime state seeded with seed. A zero seed draws a
// high-entropy seed so independent runs do not share streams.
func NewModel(seed int64) *Model {
	if seed == 0 {
		drawn, err := random.NewSeed()
		if err == nil {
			seed = drawn
		} else {
			seed = 1
		}
	}
	m := &Model{Running: true, seed: seed}
	m.Rand = newRand(seed)
	return m
}

// Base returns the model runtime itself so embedding a *Model satisfies
// Runnable's Base method.
func (m *Model) Base() *Model { return m }

// Seed returns the seed the random stream was last initialized with.
func (m *Model) Seed() int64 { return m.seed }

// NextID returns the next unique agent identifier.
func (m *Model) NextID() int64 {
	m.currentID++
	return m.currentID
}

// ResetRandomizer reseeds the random stream. A zero seed reuses the current
// seed, restoring the stream to its initial state.
func (m *Model) ResetRandomizer(seed int64) {
	if seed == 0 {
		seed = m.seed
	}
	m.seed = seed
	m.Rand = newRand(seed)
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// Runnable is implemented by concrete models: shared state via the embedded
// *Model plus a per-step transition.
type Runnable interface {
	Base() *Model
	Step()
}

// Run steps the model until its running flag clears, maxSteps is reached, or
// ctx is done. A maxSteps of zero or less means no step limit. It returns
// the number of steps executed.
func Run(ctx context.Context, model Runnable, maxSteps int) (int, error) {
	if model == nil || model.Base() == nil {
		return 0, fmt.Errorf("model is required")
	}

	steps := 0
	for model.Base().Running {
		if maxSteps > 0 && steps >= maxSteps {
			break
		}
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		model.Step()
		steps++
	}
	return steps, nil
}
