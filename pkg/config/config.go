// Package config reads the settings that may come from the environment.
// Command-line flags override them.
package config

import (
	"github.com/xyproto/env/v2"

	"github.com/raymyers/ralph-dc/pkg/entry"
)

// Environment variables
const (
	EnvEntryScan = "RALPH_DC_ENTRY_SCAN"
	EnvStrict    = "RALPH_DC_STRICT"
	EnvNoColor   = "NO_COLOR"
)

// Config holds the tunable settings of a run
type Config struct {
	// EntryScan bounds the instructions searched for main
	EntryScan int
	// Strict aborts a procedure on the first unrecognized idiom
	Strict  bool
	NoColor bool
}

// Default returns the built-in settings
func Default() Config {
	return Config{EntryScan: entry.DefaultLimit}
}

// FromEnv returns the defaults overridden by the environment as it is
// now. The env package caches variables, so the cache is reloaded first.
func FromEnv() Config {
	env.Load()
	c := Default()
	c.EntryScan = env.Int(EnvEntryScan, c.EntryScan)
	if c.EntryScan <= 0 {
		c.EntryScan = entry.DefaultLimit
	}
	c.Strict = env.Bool(EnvStrict)
	c.NoColor = env.Str(EnvNoColor) != ""
	return c
}
