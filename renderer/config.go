// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is returned for configurations that cannot be rendered.
var ErrInvalidConfig = errors.New("renderer: invalid configuration")

// Config selects the passes of the renderer.
//
// Width and Height are used while the context has no surface. CostBudget
// and RetainResources configure the scheduler and are read once by New.
type Config struct {
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`

	SSAO    bool `toml:"ssao"`
	TAA     bool `toml:"taa"`
	Gizmos  bool `toml:"gizmos"`
	AR      bool `toml:"ar"`
	Capture bool `toml:"capture"`

	// HistoryKey is the persistent key of the temporal history. Renderers
	// sharing a key across rebuilds keep their history.
	HistoryKey string `toml:"history_key"`

	CostBudget int64 `toml:"cost_budget"`

	// RetainResources keeps the render targets of the previous schedule
	// for reuse when the structure changes. On by default.
	RetainResources bool `toml:"retain_resources"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Width:           640,
		Height:          480,
		SSAO:            true,
		TAA:             true,
		Gizmos:          true,
		RetainResources: true,
	}
}

// Validate checks that the configuration can be rendered.
func (c Config) Validate() error {
	if c.Width == 0 || c.Height == 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.CostBudget < 0 {
		return fmt.Errorf("%w: negative cost budget %d", ErrInvalidConfig, c.CostBudget)
	}
	return nil
}

// ParseConfig reads a TOML configuration. Keys missing from r keep their
// DefaultConfig value; unknown keys are an error.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, strict.String())
		}
		return Config{}, fmt.Errorf("renderer: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a TOML configuration file.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("renderer: open config: %w", err)
	}
	defer f.Close()
	cfg, err := ParseConfig(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
