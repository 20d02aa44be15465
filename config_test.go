package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if c.Audio.SampleRate != 48000 {
		t.Errorf("default sample rate = %d, want 48000", c.Audio.SampleRate)
	}
	if !c.Decoder.AutoCalibrate {
		t.Error("auto calibration should default on")
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  listen: ":9000"
  compress_ws: true
audio:
  sample_rate: 44100
mqtt:
  enabled: true
  broker: broker.example.net
decoder:
  auto_calibrate: false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Server.Listen != ":9000" || !c.Server.CompressWS {
		t.Errorf("server section not applied: %+v", c.Server)
	}
	if c.Audio.SampleRate != 44100 {
		t.Errorf("sample rate = %d, want 44100", c.Audio.SampleRate)
	}
	if c.MQTT.Broker != "broker.example.net" || c.MQTT.Port != 1883 {
		t.Errorf("mqtt defaults not merged: %+v", c.MQTT)
	}
	if c.Decoder.AutoCalibrate {
		t.Error("decoder.auto_calibrate override not applied")
	}
	if sc := c.SSTVConfig(); sc.AutoCalibrate {
		t.Error("SSTVConfig did not carry auto_calibrate")
	}
}

func TestConfigValidation(t *testing.T) {
	t.Parallel()
	c := DefaultConfig()
	c.MQTT.Enabled = true
	if err := c.Validate(); err == nil {
		t.Error("mqtt enabled without broker should fail validation")
	}

	c = DefaultConfig()
	c.Decoder.MaxVISSearchSeconds = 0.5
	if err := c.Validate(); err == nil {
		t.Error("sub-2s VIS search window should fail validation")
	}

	c = DefaultConfig()
	c.Audio.SampleRate = 0
	if err := c.Validate(); err == nil {
		t.Error("zero sample rate should fail validation")
	}
}
