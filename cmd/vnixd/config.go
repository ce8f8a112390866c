package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the boot-glue configuration of SPEC_FULL.md's AMBIENT STACK
// section: store path, seed users, nothing more — the core kernel has no
// network-facing configuration since delivery is explicitly out of scope.
type Config struct {
	StorePath string   `yaml:"store_path"`
	SeedUsers []string `yaml:"seed_users"`
}

func defaultConfig() Config {
	return Config{
		StorePath: "vnix.store",
		SeedUsers: []string{"root"},
	}
}

func loadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
