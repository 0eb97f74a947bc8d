package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

// RunConfig holds configuration for scenario replay.
type RunConfig struct {
	Input          string
	Rejects        string
	StopOnError    bool
	StartTime      uint64
	RatioTolerance decimal.Decimal
	Sink           SinkConfig
	Seed           SeedConfig
	LogLevel       string
}

// LoadRun merges config file, environment variables, and flags into RunConfig.
func LoadRun(cfgFile string, flags *pflag.FlagSet) (RunConfig, error) {
	defaults := map[string]interface{}{
		"out":             "./data/events.jsonl",
		"batch-size":      500,
		"max-retries":     5,
		"retry-backoff":   500 * time.Millisecond,
		"ratio-tolerance": "0.000001",
	}
	for key, value := range seedDefaults {
		defaults[key] = value
	}
	v, err := load(cfgFile, flags, defaults)
	if err != nil {
		return RunConfig{}, err
	}

	start, err := ParseTimestamp(v.GetString("start"))
	if err != nil {
		return RunConfig{}, fmt.Errorf("start: %w", err)
	}
	tolerance, err := getDecimal(v, "ratio-tolerance")
	if err != nil {
		return RunConfig{}, err
	}
	seed, err := loadSeed(v)
	if err != nil {
		return RunConfig{}, err
	}

	cfg := RunConfig{
		Input:          v.GetString("in"),
		Rejects:        v.GetString("rejects"),
		StopOnError:    v.GetBool("stop-on-error"),
		StartTime:      start,
		RatioTolerance: tolerance,
		Sink:           loadSink(v),
		Seed:           seed,
		LogLevel:       v.GetString("log-level"),
	}
	if cfg.Input == "" {
		return RunConfig{}, fmt.Errorf("in is required")
	}
	return cfg, nil
}
