package wolfsheep

import (
	"testing"
)

func TestNewPlacesAnimals(t *testing.T) {
	cfg := DefaultConfig()
	model, err := New(cfg, 42)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}

	wolves, sheep := model.Counts()
	if wolves != cfg.InitialWolves {
		t.Fatalf("expected %d wolves, got %d", cfg.InitialWolves, wolves)
	}
	if sheep != cfg.InitialSheep {
		t.Fatalf("expected %d sheep, got %d", cfg.InitialSheep, sheep)
	}
	if model.Grid.AgentCount() != cfg.InitialSheep+cfg.InitialWolves {
		t.Fatalf("expected %d agents on grid, got %d",
			cfg.InitialSheep+cfg.InitialWolves, model.Grid.AgentCount())
	}
}

func TestGrassPlacesPatches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Grass = true
	model, err := New(cfg, 42)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}

	patches := 0
	for _, agent := range model.Schedule.Agents() {
		if _, ok := agent.(*GrassPatch); ok {
			patches++
		}
	}
	if patches != cfg.Width*cfg.Height {
		t.Fatalf("expected %d grass patches, got %d", cfg.Width*cfg.Height, patches)
	}
}

func TestStepKeepsGridConsistent(t *testing.T) {
	model, err := New(DefaultConfig(), 7)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}

	for i := 0; i < 20; i++ {
		model.Step()
	}

	scheduled := 0
	dead := 0
	for _, agent := range model.Schedule.Agents() {
		switch animal := agent.(type) {
		case *Wolf:
			scheduled++
			if animal.Dead() {
				dead++
			}
		case *Sheep:
			scheduled++
			if animal.Dead() {
				dead++
			}
		}
	}
	if model.Grid.AgentCount() != scheduled {
		t.Fatalf("grid has %d agents but schedule has %d animals",
			model.Grid.AgentCount(), scheduled)
	}
	wolves, sheep := model.Counts()
	if wolves+sheep != scheduled-dead {
		t.Fatalf("Counts() = %d living animals, schedule has %d",
			wolves+sheep, scheduled-dead)
	}
	if model.Schedule.Steps() != 20 {
		t.Fatalf("expected 20 steps, got %d", model.Schedule.Steps())
	}
}

func TestCountsSkipKilledAnimals(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialSheep = 5
	cfg.InitialWolves = 2
	model, err := New(cfg, 11)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}

	for _, agent := range model.Schedule.Agents() {
		if sheep, ok := agent.(*Sheep); ok {
			sheep.Kill()
			break
		}
	}

	wolves, sheep := model.Counts()
	if wolves != 2 {
		t.Fatalf("expected 2 wolves, got %d", wolves)
	}
	if sheep != 4 {
		t.Fatalf("expected 4 living sheep, got %d", sheep)
	}
}

func TestDeterministicWithSameSeed(t *testing.T) {
	run := func() (int, int) {
		model, err := New(DefaultConfig(), 99)
		if err != nil {
			t.Fatalf("new model: %v", err)
		}
		for i := 0; i < 10; i++ {
			model.Step()
		}
		return model.Counts()
	}

	w1, s1 := run()
	w2, s2 := run()
	if w1 != w2 || s1 != s2 {
		t.Fatalf("same seed diverged: %d/%d vs %d/%d", w1, s1, w2, s2)
	}
}

func TestGrassPatchRegrows(t *testing.T) {
	model, err := New(DefaultConfig(), 1)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}

	patch := newGrassPatch(model)
	patch.FullyGrown = false
	patch.Countdown = 2

	patch.Step()
	patch.Step()
	if patch.FullyGrown {
		t.Fatal("patch regrew too early")
	}
	patch.Step()
	if !patch.FullyGrown {
		t.Fatal("patch should be fully grown after the countdown")
	}
	if patch.Countdown != model.Cfg.GrassRegrowthTime {
		t.Fatalf("expected countdown reset to %d, got %d",
			model.Cfg.GrassRegrowthTime, patch.Countdown)
	}
}

func TestCollectorTracksCounts(t *testing.T) {
	model, err := New(DefaultConfig(), 3)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	model.Step()

	wolves := model.Collector.ModelSeries("wolves")
	if len(wolves) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(wolves))
	}
}
