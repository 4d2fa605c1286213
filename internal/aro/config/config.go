// Package config loads the Execution Engine's defaults from a TOML file
// via BurntSushi/toml, the same library the teacher's server layer uses
// for its own on-disk configuration surface, mirrored here instead of
// the teacher's JSON session-save format since spec.md's ambient stack
// names TOML explicitly for engine defaults.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the engine defaults spec.md §3 calls out: default
// entry-point name, quiescence timeout, shutdown grace period, output
// context, and log level/format. Every field has a zero-value-safe
// default supplied by Default(), so a missing or partial file still
// produces a runnable Config.
type Config struct {
	EntryPoint        string `toml:"entry_point"`
	OutputContext     string `toml:"output_context"`
	LogLevel          string `toml:"log_level"`
	LogFormat         string `toml:"log_format"`
	QuiescenceTimeout Duration `toml:"quiescence_timeout"`
	ShutdownGrace     Duration `toml:"shutdown_grace"`
	WorkerLimit       int    `toml:"worker_limit"`
}

// Duration wraps time.Duration so it can parse a TOML string like "5s"
// rather than only an integer count of nanoseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler, which
// BurntSushi/toml consults for any string-typed key.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the plain time.Duration value.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the engine's built-in defaults, used when no config
// file is given and as the base a loaded file is merged onto.
func Default() Config {
	return Config{
		EntryPoint:        "Application-Start",
		OutputContext:     "machine",
		LogLevel:          "info",
		LogFormat:         "json",
		QuiescenceTimeout: Duration(5 * time.Second),
		ShutdownGrace:     Duration(30 * time.Second),
		WorkerLimit:       0,
	}
}

// Load reads path as TOML and merges it onto Default(); a field absent
// from the file keeps its default value. An empty path returns
// Default() unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config %q: %w", path, err)
	}
	return cfg, nil
}
