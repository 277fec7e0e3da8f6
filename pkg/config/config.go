// Package config loads patternplay settings from YAML
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/james-see/patternplay/pkg/pattern"
	"github.com/james-see/patternplay/pkg/timeline"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when none is given
const DefaultPath = "patternplay.yaml"

// Config holds startup settings. Command line flags override file values.
type Config struct {
	Tempo       int           `yaml:"tempo"`
	Velocity    int           `yaml:"velocity"`
	NoteLength  float64       `yaml:"note_length"`
	Latency     time.Duration `yaml:"latency"`
	Channel     int           `yaml:"channel"` // 1-16
	Port        string        `yaml:"port"`    // name or index, empty for the first port
	AllChannels bool          `yaml:"all_channels"`
	LogLevel    string        `yaml:"log_level"`
	LogFile     string        `yaml:"log_file"`
	Listen      string        `yaml:"listen"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Tempo:       pattern.DefaultTempo,
		Velocity:    pattern.DefaultVelocity,
		NoteLength:  pattern.DefaultNoteLength,
		Latency:     timeline.DefaultLatency,
		Channel:     1,
		AllChannels: true,
		LogLevel:    "info",
		Listen:      ":8080",
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every setting
func (c Config) Validate() error {
	if err := pattern.ValidateTempo(c.Tempo); err != nil {
		return err
	}
	if err := pattern.ValidateVelocity(c.Velocity); err != nil {
		return err
	}
	if err := pattern.ValidateLength(c.NoteLength); err != nil {
		return err
	}
	if c.Latency < 0 {
		return pattern.Invalid("latency", c.Latency, "must not be negative")
	}
	if c.Channel < 1 || c.Channel > 16 {
		return pattern.Invalid("channel", c.Channel, "must be 1-16")
	}
	return nil
}

// MIDIChannel returns the zero based channel
func (c Config) MIDIChannel() uint8 {
	return uint8(c.Channel - 1)
}

// Marshal renders the config as YAML
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
