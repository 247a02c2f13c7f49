// Package config provides configuration for the winlens server.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all settings consumed by the session server and capture loop.
type Config struct {
	// Addr is the listen address for the HTTP/WebSocket server.
	Addr string

	// App selects the target window by application name (case-insensitive).
	App string

	// PID selects the target window by owning process id. Takes
	// precedence over App when both are set.
	PID int

	// Threshold is the change-detection threshold in [0,1]: the mean
	// absolute per-channel pixel difference, normalized by 255, above
	// which a new frame counts as changed. Zero means any detectable
	// difference triggers an update.
	Threshold float64

	// Interval is the capture poll interval.
	Interval time.Duration

	// Verbose enables debug logging.
	Verbose bool
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:      ":6222",
		Threshold: 0.01,
		Interval:  100 * time.Millisecond,
	}
}

// fileConfig is the YAML shape of a config file. Threshold is a pointer
// so an explicit zero can be told apart from an absent key.
type fileConfig struct {
	Addr      string   `yaml:"addr"`
	App       string   `yaml:"app"`
	PID       int      `yaml:"pid"`
	Threshold *float64 `yaml:"threshold"`
	Interval  string   `yaml:"interval"`
	Verbose   bool     `yaml:"verbose"`
}

// Load reads a YAML config file and overlays it on the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	if fc.Addr != "" {
		cfg.Addr = fc.Addr
	}
	if fc.App != "" {
		cfg.App = fc.App
	}
	if fc.PID != 0 {
		cfg.PID = fc.PID
	}
	if fc.Threshold != nil {
		cfg.Threshold = *fc.Threshold
	}
	if fc.Interval != "" {
		d, err := time.ParseDuration(fc.Interval)
		if err != nil {
			return cfg, fmt.Errorf("parse config interval: %w", err)
		}
		cfg.Interval = d
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold %v out of range [0,1]", c.Threshold)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", c.Interval)
	}
	return nil
}
