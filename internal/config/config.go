// ABOUTME: YAML configuration for the drum export service and tools
// ABOUTME: Defaults, file loading and validation
package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/op1kit/op1drum/pkg/bridge"
	"github.com/op1kit/op1drum/pkg/op1"
)

// Config represents the complete service configuration
type Config struct {
	Server    ServerConfig      `yaml:"server"`
	Discovery DiscoveryConfig   `yaml:"discovery"`
	Preview   PreviewConfig     `yaml:"preview"`
	Kit       bridge.KitOptions `yaml:"kit"`
	Logging   LoggingConfig     `yaml:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Address        string `yaml:"address"`
	Port           int    `yaml:"port"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	SessionTimeout int    `yaml:"session_timeout"` // seconds
}

// DiscoveryConfig contains mDNS advertisement configuration
type DiscoveryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"`
}

// PreviewConfig contains waveform preview configuration
type PreviewConfig struct {
	Width       int `yaml:"width"`       // envelope points per slot
	Concurrency int `yaml:"concurrency"` // decodes in flight per session
	SampleRate  int `yaml:"sample_rate"` // playback rate of the terminal editor
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Debug bool   `yaml:"debug"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:        "0.0.0.0",
			Port:           8930,
			MaxUploadBytes: 64 << 20,
			SessionTimeout: 3600,
		},
		Discovery: DiscoveryConfig{
			Enabled: true,
			Name:    "op1drum",
		},
		Preview: PreviewConfig{
			Width:       128,
			Concurrency: 4,
			SampleRate:  op1.NativeRate,
		},
	}
}

// Load reads a configuration file over the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Discovery.Validate(); err != nil {
		return fmt.Errorf("discovery config: %w", err)
	}

	if err := c.Preview.Validate(); err != nil {
		return fmt.Errorf("preview config: %w", err)
	}

	if err := validateKit(&c.Kit); err != nil {
		return fmt.Errorf("kit config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if s.MaxUploadBytes < 1024 {
		return fmt.Errorf("max_upload_bytes must be at least 1024, got %d", s.MaxUploadBytes)
	}

	if s.SessionTimeout < 1 {
		return fmt.Errorf("session_timeout must be at least 1 second, got %d", s.SessionTimeout)
	}

	return nil
}

// Validate validates discovery configuration
func (d *DiscoveryConfig) Validate() error {
	if d.Enabled && d.Name == "" {
		return fmt.Errorf("name cannot be empty when discovery is enabled")
	}
	return nil
}

// Validate validates preview configuration
func (p *PreviewConfig) Validate() error {
	if p.Width < 1 || p.Width > 4096 {
		return fmt.Errorf("width must be between 1 and 4096, got %d", p.Width)
	}

	if p.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", p.Concurrency)
	}

	if p.SampleRate < 8000 || p.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000, got %d", p.SampleRate)
	}

	return nil
}

func validateKit(k *bridge.KitOptions) error {
	if k.FX != "" && !slices.Contains(op1.FXTypes, k.FX) {
		return fmt.Errorf("fx must be one of %v, got '%s'", op1.FXTypes, k.FX)
	}

	if k.LFO != "" && !slices.Contains(op1.LFOTypes, k.LFO) {
		return fmt.Errorf("lfo must be one of %v, got '%s'", op1.LFOTypes, k.LFO)
	}

	blocks := []struct {
		name   string
		values []int
		n      int
	}{
		{"fx_params", k.FXParams, 8},
		{"lfo_params", k.LFOParams, 8},
		{"envelope", k.Envelope, 8},
		{"playmodes", k.Playmodes, op1.Slots},
		{"directions", k.Directions, op1.Slots},
		{"pitches", k.Pitches, op1.Slots},
		{"volumes", k.Volumes, op1.Slots},
		{"start_times", k.StartTimes, op1.Slots},
		{"end_times", k.EndTimes, op1.Slots},
	}
	for _, b := range blocks {
		if b.values != nil && len(b.values) != b.n {
			return fmt.Errorf("%s must have %d values, got %d", b.name, b.n, len(b.values))
		}
	}

	return nil
}

// GetSessionTimeoutDuration returns the session timeout as a time.Duration
func (s *ServerConfig) GetSessionTimeoutDuration() time.Duration {
	return time.Duration(s.SessionTimeout) * time.Second
}

// ListenAddress returns host:port for the HTTP listener
func (s *ServerConfig) ListenAddress() string {
	return fmt.Sprintf("%s:%d", s.Address, s.Port)
}
