package config

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

// ServeConfig holds configuration for the HTTP API.
type ServeConfig struct {
	Addr            string
	FlushInterval   time.Duration
	ShutdownTimeout time.Duration
	RatioTolerance  decimal.Decimal
	Sink            SinkConfig
	Seed            SeedConfig
	LogLevel        string
}

// LoadServe merges config file, environment variables, and flags into ServeConfig.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	defaults := map[string]interface{}{
		"addr":             ":8080",
		"flush-interval":   2 * time.Second,
		"shutdown-timeout": 10 * time.Second,
		"batch-size":       500,
		"max-retries":      5,
		"retry-backoff":    500 * time.Millisecond,
		"ratio-tolerance":  "0.000001",
	}
	for key, value := range seedDefaults {
		defaults[key] = value
	}
	v, err := load(cfgFile, flags, defaults)
	if err != nil {
		return ServeConfig{}, err
	}

	tolerance, err := getDecimal(v, "ratio-tolerance")
	if err != nil {
		return ServeConfig{}, err
	}
	seed, err := loadSeed(v)
	if err != nil {
		return ServeConfig{}, err
	}

	return ServeConfig{
		Addr:            v.GetString("addr"),
		FlushInterval:   v.GetDuration("flush-interval"),
		ShutdownTimeout: v.GetDuration("shutdown-timeout"),
		RatioTolerance:  tolerance,
		Sink:            loadSink(v),
		Seed:            seed,
		LogLevel:        v.GetString("log-level"),
	}, nil
}
