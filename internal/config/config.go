package config

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/zero-given/site33/internal/model"
)

const (
	DefaultReferencePool     = "0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc"
	DefaultIntermediateToken = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"

	minDecimalPrecision = 18
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL           string
	RemoteTimeout    time.Duration
	DecimalPrecision int32
	ReferencePool    common.Address
	// IntermediateToken is zero when the shared token should be inferred.
	IntermediateToken common.Address
	MaxAttempts       int
	RetryBackoff      time.Duration
	Pools             []string
	TokenCache        string
	PGDSN             string
	Listen            string
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("remote-timeout", 10*time.Second)
	v.SetDefault("decimal-precision", 28)
	v.SetDefault("reference-pool", DefaultReferencePool)
	v.SetDefault("intermediate-token", DefaultIntermediateToken)
	v.SetDefault("max-attempts", 3)
	v.SetDefault("retry-backoff", 250*time.Millisecond)
	v.SetDefault("listen", ":1337")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	reference, err := model.ParseAddress(v.GetString("reference-pool"))
	if err != nil {
		return Config{}, fmt.Errorf("reference-pool: %w", err)
	}
	var intermediate common.Address
	if raw := strings.TrimSpace(v.GetString("intermediate-token")); raw != "" {
		if intermediate, err = model.ParseAddress(raw); err != nil {
			return Config{}, fmt.Errorf("intermediate-token: %w", err)
		}
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		RemoteTimeout:     v.GetDuration("remote-timeout"),
		DecimalPrecision:  v.GetInt32("decimal-precision"),
		ReferencePool:     reference,
		IntermediateToken: intermediate,
		MaxAttempts:       v.GetInt("max-attempts"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		Pools:             splitList(v.GetStringSlice("pools")),
		TokenCache:        v.GetString("token-cache"),
		PGDSN:             v.GetString("pg-dsn"),
		Listen:            v.GetString("listen"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the values Load cannot check on its own.
func (c Config) Validate() error {
	if strings.TrimSpace(c.RPCURL) == "" {
		return fmt.Errorf("rpc is required")
	}
	if c.RemoteTimeout <= 0 {
		return fmt.Errorf("remote-timeout must be positive, got %s", c.RemoteTimeout)
	}
	if c.DecimalPrecision < minDecimalPrecision {
		return fmt.Errorf("decimal-precision must be >= %d, got %d", minDecimalPrecision, c.DecimalPrecision)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max-attempts must be >= 1, got %d", c.MaxAttempts)
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry-backoff must not be negative, got %s", c.RetryBackoff)
	}
	if c.ReferencePool == (common.Address{}) {
		return fmt.Errorf("reference-pool is required")
	}
	return nil
}

// splitList flattens list values that may themselves hold comma or space
// separated items, as env vars do.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		out = append(out, strings.FieldsFunc(item, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})...)
	}
	return out
}
