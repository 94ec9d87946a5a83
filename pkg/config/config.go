package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WorldState contains settings of the block state registry.
type WorldState struct {
	// VerifyStateRoots enables checking published storage against the
	// state root declared in the corresponding block header.
	VerifyStateRoots bool `yaml:"VerifyStateRoots"`
	// StateRootCacheSize is the number of memoized root computations.
	StateRootCacheSize int `yaml:"StateRootCacheSize"`
	// InitialBlockCapacity is the number of block slots preallocated
	// by the registry.
	InitialBlockCapacity int `yaml:"InitialBlockCapacity"`
}

// Config is the top-level node configuration.
type Config struct {
	WorldState WorldState `yaml:"WorldState"`
}

// DefaultWorldState returns world state settings used when no
// configuration file is given.
func DefaultWorldState() WorldState {
	return WorldState{
		VerifyStateRoots:     true,
		StateRootCacheSize:   32,
		InitialBlockCapacity: 64,
	}
}

// Validate checks for internal consistency.
func (w WorldState) Validate() error {
	if w.StateRootCacheSize < 0 {
		return fmt.Errorf("invalid StateRootCacheSize %d", w.StateRootCacheSize)
	}
	if w.InitialBlockCapacity < 0 {
		return fmt.Errorf("invalid InitialBlockCapacity %d", w.InitialBlockCapacity)
	}
	return nil
}

// Load reads and validates configuration from the given YAML file.
// Settings absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Config{WorldState: DefaultWorldState()}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("unable to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unable to parse config: %w", err)
	}
	if err := cfg.WorldState.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
