package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwsl/ubersstv/sstv"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Audio        AudioConfig        `yaml:"audio"`
	Decoder      DecoderConfig      `yaml:"decoder"`
	Encoder      EncoderConfig      `yaml:"encoder"`
	MQTT         MQTTConfig         `yaml:"mqtt"`
	Prometheus   PrometheusConfig   `yaml:"prometheus"`
	Logging      LoggingConfig      `yaml:"logging"`
	VersionCheck VersionCheckConfig `yaml:"version_check"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Listen       string `yaml:"listen"`         // Address:port for the HTTP API
	EnableMCP    bool   `yaml:"enable_mcp"`     // Expose MCP tools at /mcp
	CompressWS   bool   `yaml:"compress_ws"`    // zstd-compress websocket image frames
	MaxUploadMB  int    `yaml:"max_upload_mb"`  // Upload size cap for decode/encode requests
	OutputDir    string `yaml:"output_dir"`     // Where RTP-sourced decodes write PNGs ("" = don't write)
	AllowOrigins bool   `yaml:"allow_origins"`  // Accept websocket connections from any origin
}

// AudioConfig contains audio input settings
type AudioConfig struct {
	SampleRate int        `yaml:"sample_rate"` // Canonical processing rate
	RTP        RTPConfig  `yaml:"rtp"`
	Opus       OpusConfig `yaml:"opus"`
}

// RTPConfig configures the UDP RTP PCM listener
type RTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"` // UDP address, e.g. ":5004"
}

// OpusConfig enables Ogg/Opus file input (requires the opus build tag)
type OpusConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DecoderConfig tunes the SSTV decoder
type DecoderConfig struct {
	AutoCalibrate       bool    `yaml:"auto_calibrate"`         // Refine frequency offset and re-acquire sync per line
	MaxVISSearchSeconds float64 `yaml:"max_vis_search_seconds"` // 0 = 60s default; keep at least ~2s
}

// EncoderConfig tunes the SSTV encoder
type EncoderConfig struct {
	SampleRate int `yaml:"sample_rate"`
}

// MQTTConfig contains MQTT publishing settings
type MQTTConfig struct {
	Enabled                bool          `yaml:"enabled"`
	Broker                 string        `yaml:"broker"`
	Port                   int           `yaml:"port"`
	Username               string        `yaml:"username"`
	Password               string        `yaml:"password"`
	TopicPrefix            string        `yaml:"topic_prefix"`
	MetricsIntervalSeconds int           `yaml:"metrics_interval_seconds"`
	TLS                    MQTTTLSConfig `yaml:"tls"`
}

// MQTTTLSConfig contains TLS settings for the MQTT connection
type MQTTTLSConfig struct {
	Enabled            bool   `yaml:"enabled"`
	CACert             string `yaml:"ca_cert"`
	ClientCert         string `yaml:"client_cert"`
	ClientKey          string `yaml:"client_key"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// PrometheusConfig controls the /metrics endpoint
type PrometheusConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig controls log verbosity
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// VersionCheckConfig controls the release version checker
type VersionCheckConfig struct {
	Enabled         bool   `yaml:"enabled"`
	URL             string `yaml:"url"`
	IntervalMinutes int    `yaml:"interval_minutes"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:      ":8073",
			EnableMCP:   true,
			MaxUploadMB: 64,
		},
		Audio: AudioConfig{
			SampleRate: 48000,
			RTP:        RTPConfig{Listen: ":5004"},
		},
		Decoder: DecoderConfig{
			AutoCalibrate: true,
		},
		Encoder: EncoderConfig{
			SampleRate: 48000,
		},
		MQTT: MQTTConfig{
			Port:                   1883,
			TopicPrefix:            "ubersstv",
			MetricsIntervalSeconds: 60,
		},
		Prometheus: PrometheusConfig{Enabled: true},
		VersionCheck: VersionCheckConfig{
			URL:             "https://raw.githubusercontent.com/cwsl/ubersstv/refs/heads/main/version.txt",
			IntervalMinutes: 60,
		},
	}
}

// LoadConfig reads configuration from a YAML file, applying defaults
// for anything unset
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive (got %d)", c.Audio.SampleRate)
	}
	if c.Encoder.SampleRate <= 0 {
		return fmt.Errorf("encoder.sample_rate must be positive (got %d)", c.Encoder.SampleRate)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if c.Decoder.MaxVISSearchSeconds != 0 && c.Decoder.MaxVISSearchSeconds < 2 {
		return fmt.Errorf("decoder.max_vis_search_seconds below 2s misses slow starts (got %.1f)",
			c.Decoder.MaxVISSearchSeconds)
	}
	return nil
}

// SSTVConfig converts the decoder section into core decoder config
func (c *Config) SSTVConfig() sstv.Config {
	return sstv.Config{
		AutoCalibrate:       c.Decoder.AutoCalibrate,
		MaxVISSearchSeconds: c.Decoder.MaxVISSearchSeconds,
	}
}
