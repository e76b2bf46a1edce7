// Package config loads the YAML configuration shared by the AWG tools.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"awgremote/internal/serialcomm"
)

const (
	DefaultFrequency = 1000
	DefaultBufSize   = 1024
)

// Config represents the main application configuration
type Config struct {
	Settings Settings     `yaml:"settings"`
	Serial   SerialConfig `yaml:"serial"`
	Setup    SetupConfig  `yaml:"setup"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// SerialConfig represents the link to the AWG
type SerialConfig struct {
	Port       string       `yaml:"port"`
	Framing    string       `yaml:"framing"`
	ChunkDelay TimeDuration `yaml:"chunkDelay"`
}

// SetupConfig holds the defaults used when building setup commands
type SetupConfig struct {
	Frequency uint32 `yaml:"frequency"`
	BufSize   uint32 `yaml:"bufSize"`
}

type TimeDuration time.Duration

func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("config.TimeDuration: failed to parse: %s", err)
	}

	*d = TimeDuration(duration)
	return nil
}

func (d TimeDuration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// New returns the configuration used when no file is given
func New() *Config {
	return &Config{
		Settings: Settings{LogLevel: "info"},
		Serial:   SerialConfig{Framing: string(serialcomm.FramingRaw)},
		Setup:    SetupConfig{Frequency: DefaultFrequency, BufSize: DefaultBufSize},
	}
}

// Load reads and validates the configuration file at path, unset fields keep their defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := New()
	if err = yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err = c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := serialcomm.ParseFraming(c.Serial.Framing); err != nil {
		return fmt.Errorf("config.Config: %w", err)
	}
	if c.Serial.ChunkDelay < 0 {
		return fmt.Errorf("config.Config: chunk delay must not be negative: %s", time.Duration(c.Serial.ChunkDelay))
	}

	cmd := serialcomm.Command{Command: serialcomm.CommandSetup, BufSize: c.Setup.BufSize}
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("config.Config: setup: %w", err)
	}

	return nil
}

// Level parses settings.logLevel
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.Settings.LogLevel))); err != nil {
		return 0, fmt.Errorf("config.Config: invalid log level: %s", c.Settings.LogLevel)
	}
	return level, nil
}

// Framing returns the validated serial framing
func (c *Config) Framing() serialcomm.Framing {
	framing, _ := serialcomm.ParseFraming(c.Serial.Framing)
	return framing
}
