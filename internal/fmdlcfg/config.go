// Package fmdlcfg holds the configuration overlay shared by this module's
// command-line tools: a JSON config file whose fields are overridden by any
// non-zero CLI flag.
package fmdlcfg

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
)

// Config holds all configurable paths and validation settings.
type Config struct {
	InputDir   string `json:"input_dir"`
	ReportPath string `json:"report_path"`
	Workers    int    `json:"workers"`
}

// Load reads a JSON config file and returns Config. Fields not set in the
// file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("fmdlcfg: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("fmdlcfg: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	InputDir   string
	ReportPath string
	Workers    int
}

// Resolve overlays every non-zero flag value onto c, then fills any field
// still empty with a default. CLI flags take priority over the config file.
func (c *Config) Resolve(flags Flags) {
	if flags.InputDir != "" {
		c.InputDir = flags.InputDir
	}
	if flags.ReportPath != "" {
		c.ReportPath = flags.ReportPath
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}

	if c.InputDir == "" {
		c.InputDir = "."
	}
	if c.ReportPath == "" {
		c.ReportPath = "fmdlvalidate-report.json"
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
}
