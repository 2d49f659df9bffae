package model

import "time"

// Config holds all runtime settings for materialsio
type Config struct {
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Dispatch     DispatchConfig     `yaml:"dispatch" mapstructure:"dispatch"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Watch        WatchConfig        `yaml:"watch" mapstructure:"watch"`
}

// LogConfig controls the hclog root logger
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // trace, debug, info, warn, error
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

// OutputConfig controls how results are rendered
type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format"` // json or yaml
	Pretty bool   `yaml:"pretty" mapstructure:"pretty"`
}

// DispatchConfig selects adapters for run-all
type DispatchConfig struct {
	AdapterMap     string `yaml:"adapter_map" mapstructure:"adapter_map"` // "", "match", or "parser=adapter,..."
	DefaultAdapter string `yaml:"default_adapter" mapstructure:"default_adapter"`
}

// ConcurrencyConfig controls the batch worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig throttles extraction per parser. Zero disables it.
// Parsers overrides the rate for single parsers by registry name.
type RateLimitingConfig struct {
	GroupsPerSecond float64            `yaml:"groups_per_second" mapstructure:"groups_per_second"`
	BurstSize       int                `yaml:"burst_size" mapstructure:"burst_size"`
	Parsers         map[string]float64 `yaml:"parsers,omitempty" mapstructure:"parsers"`
}

// WatchConfig controls the watch command
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Output: OutputConfig{
			Format: "json",
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			BurstSize: 5,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}
