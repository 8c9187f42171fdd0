// Package initcmd implements the steppe init subcommand: scaffold a
// project directory with a manifest and an example scenario.
package initcmd

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/steppesim/steppe/internal/platform/config"
	"github.com/steppesim/steppe/internal/project"
)

// Config holds the init command configuration.
type Config struct {
	Dir   string
	Name  string
	Force bool
}

// ParseConfig parses flags into a Config. The first positional
// argument is the target directory; it defaults to the working
// directory.
func ParseConfig(fs *flag.FlagSet, args []string, _ config.EnvLookup) (Config, error) {
	cfg := Config{Dir: "."}

	fs.StringVar(&cfg.Name, "name", "", "Project name, defaults to the directory name")
	fs.BoolVar(&cfg.Force, "force", false, "Overwrite existing files")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if fs.NArg() > 0 {
		cfg.Dir = fs.Arg(0)
	}
	if cfg.Name == "" {
		abs, err := filepath.Abs(cfg.Dir)
		if err != nil {
			return Config{}, fmt.Errorf("resolve directory: %w", err)
		}
		cfg.Name = filepath.Base(abs)
	}
	return cfg, nil
}

const exampleScenario = `-- Example scenario: Schelling segregation.
-- Run it with: steppe run
-- Sweep it with: steppe batch
-- Watch it with: steppe serve -watch
return Scenario.new{
	name = "segregation baseline",
	model = "schelling",
	max_steps = 100,
	iterations = 5,
	seed = 42,
	params = {
		width = 20,
		height = 20,
		density = 0.8,
		minority_share = 0.2,
	},
	sweep = {
		homophily = {2, 3, 4},
	},
}
`

// Run scaffolds the project.
func Run(_ context.Context, cfg Config) error {
	scenarioDir := filepath.Join(cfg.Dir, "scenarios")
	if err := os.MkdirAll(scenarioDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", scenarioDir, err)
	}

	manifest := project.Manifest{
		Name:     cfg.Name,
		Scenario: filepath.Join("scenarios", "baseline.lua"),
		Database: "runs.db",
		Addr:     ":8521",
	}
	if err := manifest.Write(cfg.Dir, cfg.Force); err != nil {
		return err
	}

	scenarioPath := filepath.Join(scenarioDir, "baseline.lua")
	if !cfg.Force {
		if _, err := os.Stat(scenarioPath); err == nil {
			return fmt.Errorf("%s already exists", scenarioPath)
		}
	}
	if err := os.WriteFile(scenarioPath, []byte(exampleScenario), 0o644); err != nil {
		return fmt.Errorf("write scenario: %w", err)
	}

	log.Printf("initialized project %s in %s", cfg.Name, cfg.Dir)
	return nil
}
