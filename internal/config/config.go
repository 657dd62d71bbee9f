// Package config loads the host process's configuration via viper,
// following the same env-override + YAML-file + defaults layering the
// teacher stack uses everywhere else.
package config

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config is the full process configuration.
type Config struct {
	// Market holds the sizing knobs for every book this process hosts.
	Market struct {
		SlabCapacity       int    `mapstructure:"slab_capacity"`
		EventQueueCapacity int    `mapstructure:"event_queue_capacity"`
		CallbackInfoLen    int    `mapstructure:"callback_info_len"`
		DefaultMatchLimit  uint64 `mapstructure:"default_match_limit"`
	} `mapstructure:"market"`

	// Server configures the demo transport surface.
	Server struct {
		Host               string `mapstructure:"host"`
		Port               int    `mapstructure:"port"`
		JWTSecret          string `mapstructure:"jwt_secret"`
		RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute"`
	} `mapstructure:"server"`

	// Metrics configures the Prometheus endpoint.
	Metrics struct {
		Enabled bool   `mapstructure:"enabled"`
		Addr    string `mapstructure:"addr"`
	} `mapstructure:"metrics"`

	LogLevel string `mapstructure:"log_level"`

	// Postgres configures internal/persistence's buffer store.
	Postgres struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"postgres"`
}

var (
	cfg  *Config
	once sync.Once
)

// Load reads configuration from configPath (a directory), environment
// variables prefixed CLOB_, and falls back to the defaults below.
func Load(configPath string) (*Config, error) {
	var err error

	once.Do(func() {
		cfg = &Config{}
		setDefaults(cfg)

		v := viper.New()
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if configPath != "" {
			v.AddConfigPath(configPath)
		} else {
			v.AddConfigPath(".")
			v.AddConfigPath("./config")
			v.AddConfigPath("/etc/clobd")
		}

		v.AutomaticEnv()
		v.SetEnvPrefix("CLOB")

		if readErr := v.ReadInConfig(); readErr != nil {
			if _, ok := readErr.(viper.ConfigFileNotFoundError); !ok {
				err = fmt.Errorf("reading config file: %w", readErr)
				return
			}
		}

		if unmarshalErr := v.Unmarshal(cfg); unmarshalErr != nil {
			err = fmt.Errorf("unmarshaling config: %w", unmarshalErr)
			return
		}
	})

	return cfg, err
}

// Get returns the process-wide config, loading it with defaults if
// Load was never called.
func Get() *Config {
	if cfg == nil {
		c, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("loading config: %v", err))
		}
		return c
	}
	return cfg
}

func setDefaults(c *Config) {
	c.Market.SlabCapacity = 4096
	c.Market.EventQueueCapacity = 2048
	c.Market.CallbackInfoLen = 32
	c.Market.DefaultMatchLimit = 1_000

	c.Server.Host = "0.0.0.0"
	c.Server.Port = 8080
	c.Server.RateLimitPerMinute = 600

	c.Metrics.Enabled = true
	c.Metrics.Addr = ":9090"

	c.LogLevel = "info"
}

// NewLogger builds the process logger per LogLevel.
func NewLogger(c *Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	switch c.LogLevel {
	case "debug":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	return logger, nil
}
