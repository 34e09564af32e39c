package models

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is the optional per-project configuration file.
const ConfigFileName = ".galscan.toml"

// DefaultStaleAfter is how old a per-repo report may be before the merge
// engine flags it as stale.
const DefaultStaleAfter = 168 * time.Hour

// Config holds configuration for a scan
type Config struct {
	// Root of the project tree to scan
	Root string

	// Project name; autodetected from go.mod or the root directory
	// name when empty
	Project string

	// Include/exclude patterns in gitignore syntax; empty include
	// means every recognized source file
	Include []string
	Exclude []string

	// Honor the project's .gitignore during discovery
	UseGitignore bool

	// Output settings
	OutputFormat string // "json", "terminal"
	OutputFile   string

	// Merge settings
	StaleAfter time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Root:         ".",
		UseGitignore: true,
		OutputFormat: "json",
		StaleAfter:   DefaultStaleAfter,
	}
}

// fileConfig is the on-disk shape of .galscan.toml
type fileConfig struct {
	Project    string   `toml:"project"`
	Include    []string `toml:"include"`
	Exclude    []string `toml:"exclude"`
	StaleHours int      `toml:"stale_hours"`
}

// LoadFileConfig merges .galscan.toml from the project root into cfg.
// A missing file is not an error; values already set on cfg win.
func LoadFileConfig(cfg *Config) error {
	data, err := os.ReadFile(filepath.Join(cfg.Root, ConfigFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return err
	}

	if cfg.Project == "" {
		cfg.Project = fc.Project
	}
	if len(cfg.Include) == 0 {
		cfg.Include = fc.Include
	}
	if len(cfg.Exclude) == 0 {
		cfg.Exclude = fc.Exclude
	}
	if cfg.StaleAfter == DefaultStaleAfter && fc.StaleHours > 0 {
		cfg.StaleAfter = time.Duration(fc.StaleHours) * time.Hour
	}
	return nil
}
