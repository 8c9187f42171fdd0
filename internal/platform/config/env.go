// Package config provides environment configuration parsing and shared CLI
// exit helpers for steppe binaries.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// EnvLookup returns the value for a key when present.
type EnvLookup func(string) (string, bool)

// EnvOrDefault returns the first non-blank value among the keys, falling
// back to the provided default.
func EnvOrDefault(lookup EnvLookup, keys []string, fallback string) string {
	if lookup == nil {
		return fallback
	}
	for _, key := range keys {
		value, ok := lookup(key)
		if !ok {
			continue
		}
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
