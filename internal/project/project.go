// Package project reads and writes the steppe.yaml project manifest.
// The manifest supplies per-project defaults so the CLI can be run
// from a project directory without repeating flags.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestName is the file the CLI looks for in the working directory.
const ManifestName = "steppe.yaml"

// Manifest is the project configuration.
type Manifest struct {
	Name string `yaml:"name"`

	// Scenario is the default scenario script, relative to the
	// manifest directory.
	Scenario string `yaml:"scenario,omitempty"`

	// Database is the sqlite file runs are recorded to. Empty
	// disables persistence.
	Database string `yaml:"database,omitempty"`

	// Addr is the default visualization listen address.
	Addr string `yaml:"addr,omitempty"`
}

// Load reads the manifest from dir. A missing manifest is not an
// error; it returns an empty manifest and found=false.
func Load(dir string) (Manifest, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return Manifest{}, false, nil
	}
	if err != nil {
		return Manifest{}, false, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, false, fmt.Errorf("parse manifest: %w", err)
	}
	return m, true, nil
}

// Write saves the manifest into dir, refusing to overwrite an
// existing one unless force is set.
func (m Manifest) Write(dir string, force bool) error {
	path := filepath.Join(dir, ManifestName)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Resolve returns path joined to the manifest directory unless it is
// already absolute or empty.
func Resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
