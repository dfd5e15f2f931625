// Package config loads the engine process configuration from YAML: the
// devices to open, ring capacities, the echo window and logging. It
// configures the process, not the mappings.
package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with YAML string parsing ("50ms", "2s").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped standard duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root of the engine configuration file.
type Config struct {
	Log       Log      `yaml:"log"`
	Engine    Engine   `yaml:"engine"`
	Midi      Midi     `yaml:"midi"`
	Osc       Osc      `yaml:"osc"`
	Keyboards []string `yaml:"keyboards"`
}

// Log configures the main-thread logger.
type Log struct {
	Level string `yaml:"level"`
}

// ZapLevel parses the configured level; empty selects info.
func (l Log) ZapLevel() (zapcore.Level, error) {
	if l.Level == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.Set(l.Level); err != nil {
		return 0, fmt.Errorf("config: bad log level %q: %w", l.Level, err)
	}
	return level, nil
}

// Engine sizes the rings and the echo window. Zero fields select the
// engine defaults.
type Engine struct {
	EventRing  int      `yaml:"event_ring"`
	RelayRing  int      `yaml:"relay_ring"`
	MainRing   int      `yaml:"main_ring"`
	EchoWindow Duration `yaml:"echo_window"`
}

// Midi names the ports to open (gomidi substring matching).
type Midi struct {
	Inputs  []string `yaml:"inputs"`
	Outputs []string `yaml:"outputs"`
}

// Osc configures the OSC socket and feedback peer.
type Osc struct {
	Listen       string `yaml:"listen"`
	FeedbackHost string `yaml:"feedback_host"`
	FeedbackPort int    `yaml:"feedback_port"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log: Log{Level: "info"},
	}
}

// Parse decodes and validates a YAML document.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses a configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w (in %s)", err, path)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if _, err := c.Log.ZapLevel(); err != nil {
		return err
	}
	for name, v := range map[string]int{
		"event_ring": c.Engine.EventRing,
		"relay_ring": c.Engine.RelayRing,
		"main_ring":  c.Engine.MainRing,
	} {
		if v < 0 {
			return fmt.Errorf("config: engine.%s must not be negative", name)
		}
	}
	if c.Engine.EchoWindow < 0 {
		return fmt.Errorf("config: engine.echo_window must not be negative")
	}
	if c.Osc.FeedbackPort < 0 || c.Osc.FeedbackPort > 65535 {
		return fmt.Errorf("config: osc.feedback_port %d out of range", c.Osc.FeedbackPort)
	}
	if c.Osc.FeedbackHost != "" && c.Osc.FeedbackPort == 0 {
		return fmt.Errorf("config: osc.feedback_host set without feedback_port")
	}
	return nil
}
