// Package config loads the persistent settings of the command line client.
// Values come from flags, GRADLE2NIX_ prefixed environment variables and an
// optional configuration file, in that order of precedence.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "GRADLE2NIX"

	KeyConcurrency   = "concurrency"
	KeyCacheSize     = "cache.size"
	KeyHTTPTimeout   = "http.timeout"
	KeyHTTPUserAgent = "http.userAgent"

	FlagConfig = "config"
)

type Config struct {
	// Concurrency bounds the number of parallel repository queries.
	Concurrency int         `mapstructure:"concurrency"`
	Cache       CacheConfig `mapstructure:"cache"`
	HTTP        HTTPConfig  `mapstructure:"http"`
}

type CacheConfig struct {
	// Size is the number of repository answers kept in memory.
	Size int `mapstructure:"size"`
}

type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"userAgent"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Concurrency: runtime.NumCPU(),
		Cache:       CacheConfig{Size: 4096},
		HTTP:        HTTPConfig{Timeout: 60 * time.Second, UserAgent: "gradle2nix"},
	}
}

// RegisterConfigFlag adds the --config flag to the command line.
func RegisterConfigFlag(flags *pflag.FlagSet) {
	flags.String(FlagConfig, "", "configuration file (yaml, json or toml)")
}

// Load reads the configuration. path may be empty. Flags that share a name
// with a configuration key override it when set.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault(KeyConcurrency, defaults.Concurrency)
	v.SetDefault(KeyCacheSize, defaults.Cache.Size)
	v.SetDefault(KeyHTTPTimeout, defaults.HTTP.Timeout)
	v.SetDefault(KeyHTTPUserAgent, defaults.HTTP.UserAgent)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for _, key := range []string{KeyConcurrency} {
			if flag := flags.Lookup(key); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", key, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("invalid configuration: %s must be at least 1, got %d", KeyConcurrency, c.Concurrency)
	}
	if c.Cache.Size < 1 {
		return fmt.Errorf("invalid configuration: %s must be at least 1, got %d", KeyCacheSize, c.Cache.Size)
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("invalid configuration: %s must not be negative", KeyHTTPTimeout)
	}
	return nil
}

type contextKey struct{}

// NewContext returns a context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext returns the configuration of ctx, or the defaults.
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(contextKey{}).(*Config); ok && cfg != nil {
		return cfg
	}
	return Default()
}
