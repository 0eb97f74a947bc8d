package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// ForkConfig holds configuration for reading a pair snapshot.
type ForkConfig struct {
	Out      string
	PGDSN    string
	Sim      string
	Seed     SeedConfig
	LogLevel string
}

// LoadFork merges config file, environment variables, and flags into ForkConfig.
func LoadFork(cfgFile string, flags *pflag.FlagSet) (ForkConfig, error) {
	v, err := load(cfgFile, flags, seedDefaults)
	if err != nil {
		return ForkConfig{}, err
	}
	seed, err := loadSeed(v)
	if err != nil {
		return ForkConfig{}, err
	}

	cfg := ForkConfig{
		Out:      v.GetString("out"),
		PGDSN:    v.GetString("pg-dsn"),
		Sim:      v.GetString("sim"),
		Seed:     seed,
		LogLevel: v.GetString("log-level"),
	}
	if !cfg.Seed.Enabled() {
		return ForkConfig{}, fmt.Errorf("rpc and pair are required")
	}
	return cfg, nil
}
