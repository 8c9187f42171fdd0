package serve

import (
	"flag"
	"testing"

	"github.com/steppesim/steppe/scenario"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Addr != ":8521" {
		t.Fatalf("Addr = %q, want %q", cfg.Addr, ":8521")
	}
	if cfg.Watch {
		t.Fatal("Watch = true, want false")
	}
}

func TestParseConfigEnvLookup(t *testing.T) {
	env := map[string]string{
		"STEPPE_MODEL": "wolfsheep",
		"STEPPE_ADDR":  "localhost:9000",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil, lookup)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Model != "wolfsheep" {
		t.Fatalf("Model = %q, want %q", cfg.Model, "wolfsheep")
	}
	if cfg.Addr != "localhost:9000" {
		t.Fatalf("Addr = %q, want %q", cfg.Addr, "localhost:9000")
	}
}

func TestBuildElementsOrdersSweepParams(t *testing.T) {
	sc := &scenario.Scenario{
		Name:   "sweep order",
		Model:  "schelling",
		Params: map[string]any{},
		Sweep: map[string][]any{
			"width":     {8, 10},
			"homophily": {2, 3},
			"density":   {0.7, 0.8},
		},
	}

	_, userParams, err := buildElements(sc)
	if err != nil {
		t.Fatalf("buildElements() error = %v", err)
	}
	want := []string{"density", "homophily", "width"}
	if len(userParams) != len(want) {
		t.Fatalf("len(userParams) = %d, want %d", len(userParams), len(want))
	}
	for i, param := range userParams {
		if param.ParamName() != want[i] {
			t.Fatalf("userParams[%d] = %q, want %q", i, param.ParamName(), want[i])
		}
	}
}

func TestParseConfigFlagBeatsEnv(t *testing.T) {
	lookup := func(string) (string, bool) { return "localhost:9000", true }

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-addr", "localhost:9001", "-watch"}, lookup)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Addr != "localhost:9001" {
		t.Fatalf("Addr = %q, want %q", cfg.Addr, "localhost:9001")
	}
	if !cfg.Watch {
		t.Fatal("Watch = false, want true")
	}
}
