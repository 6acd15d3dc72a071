// Package config holds the renderer's construction-time capacities and
// live-tunable rendering options, loaded from TOML.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// HardMaxInstanceCount bounds the bindless descriptor arrays; raising it
// means re-deriving every downstream buffer offset, so it is a compile
// time constant, not a config knob.
const HardMaxInstanceCount = 4096

// Capacities are fixed at renderer construction. Changing one at runtime
// would invalidate the frame buffer layout and every descriptor set
// pointing into it.
type Capacities struct {
	MaxInstanceCount uint32 `toml:"max_instance_count"`
	MaxPointLights   uint32 `toml:"max_point_lights"`
	FramesInFlight   uint32 `toml:"frames_in_flight"`
}

// Tunables may change between frames without re-creating GPU resources.
type Tunables struct {
	FilterEnabled    bool `toml:"filter_enabled"`
	FilterIterations int  `toml:"filter_iterations"`
}

type Config struct {
	Capacities Capacities `toml:"capacities"`
	Tunables   Tunables   `toml:"tunables"`

	// BlueNoisePath caches the generated dither buffer between runs.
	BlueNoisePath string `toml:"blue_noise_path"`
}

func Default() *Config {
	return &Config{
		Capacities: Capacities{
			MaxInstanceCount: 1024,
			MaxPointLights:   32,
			FramesInFlight:   2,
		},
		Tunables: Tunables{
			FilterEnabled:    true,
			FilterIterations: 3,
		},
		BlueNoisePath: "blue_noise.tmp",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Capacities.MaxInstanceCount == 0 || c.Capacities.MaxInstanceCount > HardMaxInstanceCount {
		return fmt.Errorf("max_instance_count %d out of range (1..%d)",
			c.Capacities.MaxInstanceCount, HardMaxInstanceCount)
	}
	if c.Capacities.MaxPointLights == 0 {
		return fmt.Errorf("max_point_lights must be positive")
	}
	if c.Capacities.FramesInFlight < 2 {
		return fmt.Errorf("frames_in_flight %d below minimum of 2", c.Capacities.FramesInFlight)
	}
	if c.Tunables.FilterIterations < 0 {
		return fmt.Errorf("filter_iterations must not be negative")
	}
	return nil
}
