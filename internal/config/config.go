// Package config loads command settings. Precedence is flags, then
// POOLSIM_* environment variables, then the config file, then defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "POOLSIM"

// SeedConfig describes an on-chain pair used to create the pool. Seeding is
// enabled when both RPCURL and Pair are set.
type SeedConfig struct {
	RPCURL      string
	Pair        string
	Block       uint64
	Invert      bool
	FeeLPRate   decimal.Decimal
	FeeTeamRate decimal.Decimal
	Provider    string
}

func (s SeedConfig) Enabled() bool {
	return s.RPCURL != "" && s.Pair != ""
}

// SinkConfig selects where events go.
type SinkConfig struct {
	Out          string
	PGDSN        string
	Sim          string
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
}

// load builds a viper instance bound to flags and reads the config file. A
// missing default ./config.* file is not an error.
func load(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("sim", "default")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

var seedDefaults = map[string]interface{}{
	"fee-lp":        "0.0025",
	"fee-team":      "0.0005",
	"seed-provider": "seed",
}

func loadSeed(v *viper.Viper) (SeedConfig, error) {
	feeLP, err := getDecimal(v, "fee-lp")
	if err != nil {
		return SeedConfig{}, err
	}
	feeTeam, err := getDecimal(v, "fee-team")
	if err != nil {
		return SeedConfig{}, err
	}
	return SeedConfig{
		RPCURL:      v.GetString("rpc"),
		Pair:        v.GetString("pair"),
		Block:       v.GetUint64("block"),
		Invert:      v.GetBool("invert"),
		FeeLPRate:   feeLP,
		FeeTeamRate: feeTeam,
		Provider:    v.GetString("seed-provider"),
	}, nil
}

func loadSink(v *viper.Viper) SinkConfig {
	return SinkConfig{
		Out:          v.GetString("out"),
		PGDSN:        v.GetString("pg-dsn"),
		Sim:          v.GetString("sim"),
		BatchSize:    v.GetInt("batch-size"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
	}
}

func getDecimal(v *viper.Viper, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid decimal %q", key, raw)
	}
	return value, nil
}
