package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete capture tool configuration
type Config struct {
	Device     DeviceConfig     `yaml:"device"`
	Capture    CaptureConfig    `yaml:"capture"`
	Visualizer VisualizerConfig `yaml:"visualizer"`
	Enhance    EnhanceConfig    `yaml:"enhance"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// DeviceConfig contains audio device acquisition parameters
type DeviceConfig struct {
	SampleRate        int    `yaml:"sample_rate"`
	EchoCancellation  bool   `yaml:"echo_cancellation"`
	NoiseSuppression  bool   `yaml:"noise_suppression"`
	AutoGainControl   bool   `yaml:"auto_gain_control"`
	PreferredMIMEType string `yaml:"preferred_mime_type"`
	FallbackMIMEType  string `yaml:"fallback_mime_type"`
}

// CaptureConfig contains recording parameters
type CaptureConfig struct {
	ChunkIntervalMs int `yaml:"chunk_interval_ms"` // milliseconds
	MaxDuration     int `yaml:"max_duration"`      // seconds, 0 = unlimited
}

// VisualizerConfig contains live frequency display parameters
type VisualizerConfig struct {
	TickIntervalMs int `yaml:"tick_interval_ms"` // milliseconds
}

// EnhanceConfig contains enhancement API configuration
type EnhanceConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	Timeout        int     `yaml:"timeout"` // seconds
	MaxConcurrent  int     `yaml:"max_concurrent"`
	SpeedFactor    float64 `yaml:"speed_factor"`
	VolumeFactor   float64 `yaml:"volume_factor"`
	RemoveNoise    bool    `yaml:"remove_noise"`
	EnhanceClarity bool    `yaml:"enhance_clarity"`
	Streamed       bool    `yaml:"streamed"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig contains the optional Prometheus listener configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides lets deployment secrets come from the environment so the
// enhancement endpoint and API key never have to live in the YAML file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ENHANCE_BASE_URL"); v != "" {
		c.Enhance.BaseURL = v
	}
	if v := os.Getenv("ENHANCE_API_KEY"); v != "" {
		c.Enhance.APIKey = v
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Device.Validate(); err != nil {
		return fmt.Errorf("device config: %w", err)
	}

	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Visualizer.Validate(); err != nil {
		return fmt.Errorf("visualizer config: %w", err)
	}

	if err := c.Enhance.Validate(); err != nil {
		return fmt.Errorf("enhance config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	return nil
}

// Validate validates device configuration
func (d *DeviceConfig) Validate() error {
	validRates := map[int]bool{8000: true, 16000: true, 22050: true, 44100: true, 48000: true}
	if !validRates[d.SampleRate] {
		return fmt.Errorf("sample_rate must be one of [8000, 16000, 22050, 44100, 48000], got %d", d.SampleRate)
	}

	if d.PreferredMIMEType == "" {
		return fmt.Errorf("preferred_mime_type cannot be empty")
	}

	return nil
}

// Validate validates capture configuration
func (c *CaptureConfig) Validate() error {
	if c.ChunkIntervalMs < 10 || c.ChunkIntervalMs > 5000 {
		return fmt.Errorf("chunk_interval_ms must be between 10 and 5000, got %d", c.ChunkIntervalMs)
	}

	if c.MaxDuration < 0 {
		return fmt.Errorf("max_duration cannot be negative, got %d", c.MaxDuration)
	}

	return nil
}

// Validate validates visualizer configuration
func (v *VisualizerConfig) Validate() error {
	if v.TickIntervalMs < 1 || v.TickIntervalMs > 1000 {
		return fmt.Errorf("tick_interval_ms must be between 1 and 1000, got %d", v.TickIntervalMs)
	}

	return nil
}

// Validate validates enhancement API configuration
func (e *EnhanceConfig) Validate() error {
	if e.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}

	if e.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", e.Timeout)
	}

	if e.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", e.MaxConcurrent)
	}

	if e.SpeedFactor < 0.5 || e.SpeedFactor > 1.0 {
		return fmt.Errorf("speed_factor must be between 0.5 and 1.0, got %f", e.SpeedFactor)
	}

	if e.VolumeFactor < 1.0 || e.VolumeFactor > 2.0 {
		return fmt.Errorf("volume_factor must be between 1.0 and 2.0, got %f", e.VolumeFactor)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	// stdout, stderr, or a file path; all valid
	return nil
}

// Validate validates metrics listener configuration
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.Port < 1 || m.Port > 65535 {
			return fmt.Errorf("metrics port must be between 1 and 65535, got %d", m.Port)
		}

		if m.Address == "" {
			return fmt.Errorf("metrics address cannot be empty when enabled")
		}
	}

	return nil
}

// GetChunkInterval returns the chunk emission interval as a time.Duration
func (c *CaptureConfig) GetChunkInterval() time.Duration {
	return time.Duration(c.ChunkIntervalMs) * time.Millisecond
}

// GetMaxDuration returns the recording cap as a time.Duration, 0 = unlimited
func (c *CaptureConfig) GetMaxDuration() time.Duration {
	return time.Duration(c.MaxDuration) * time.Second
}

// GetTickInterval returns the visualizer tick as a time.Duration
func (v *VisualizerConfig) GetTickInterval() time.Duration {
	return time.Duration(v.TickIntervalMs) * time.Millisecond
}

// GetTimeoutDuration returns the enhancement timeout as a time.Duration
func (e *EnhanceConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(e.Timeout) * time.Second
}
