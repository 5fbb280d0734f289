package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the tunable knobs for the style engine and the auto-reply
// scheduler. Everything has a sensible default; a doppel.yaml file can
// override any subset.
type Config struct {
	CommandPrefix string    `yaml:"command_prefix"`
	AutoReply     AutoReply `yaml:"auto_reply"`
	Learning      Learning  `yaml:"learning"`
}

// AutoReply controls gating, delay, and cooldown behavior.
type AutoReply struct {
	Enabled           bool    `yaml:"enabled"`
	BaseRate          float64 `yaml:"base_rate"`
	SkipProbability   float64 `yaml:"skip_probability"`
	MaxRate           float64 `yaml:"max_rate"`
	MinDelaySeconds   int     `yaml:"min_delay_seconds"`
	MaxDelaySeconds   int     `yaml:"max_delay_seconds"`
	DelayFloorSeconds int     `yaml:"delay_floor_seconds"`
	DelayCeilSeconds  int     `yaml:"delay_ceil_seconds"`
	CooldownSeconds   int     `yaml:"cooldown_seconds"`
	BurstCap          int     `yaml:"burst_cap"`

	Proactive                bool `yaml:"proactive"`
	ProactiveCooldownSeconds int  `yaml:"proactive_cooldown_seconds"`
}

// Learning controls profile list caps.
type Learning struct {
	TemplateCap int `yaml:"template_cap"`
	StarterCap  int `yaml:"starter_cap"`
	TopicCap    int `yaml:"topic_cap"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		CommandPrefix: "!",
		AutoReply: AutoReply{
			Enabled:                  false,
			BaseRate:                 0.6,
			SkipProbability:          0.1,
			MaxRate:                  0.95,
			MinDelaySeconds:          5,
			MaxDelaySeconds:          15,
			DelayFloorSeconds:        2,
			DelayCeilSeconds:         30,
			CooldownSeconds:          120,
			BurstCap:                 3,
			Proactive:                false,
			ProactiveCooldownSeconds: 3600,
		},
		Learning: Learning{
			TemplateCap: 10,
			StarterCap:  20,
			TopicCap:    50,
		},
	}
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// MinDelay returns the lower bound of the reply delay window.
func (a AutoReply) MinDelay() time.Duration {
	return time.Duration(a.MinDelaySeconds) * time.Second
}

// MaxDelay returns the upper bound of the reply delay window.
func (a AutoReply) MaxDelay() time.Duration {
	return time.Duration(a.MaxDelaySeconds) * time.Second
}

// DelayFloor returns the global minimum delay after scaling.
func (a AutoReply) DelayFloor() time.Duration {
	return time.Duration(a.DelayFloorSeconds) * time.Second
}

// DelayCeil returns the global maximum delay after scaling.
func (a AutoReply) DelayCeil() time.Duration {
	return time.Duration(a.DelayCeilSeconds) * time.Second
}

// Cooldown returns the quiet period after an autonomous send.
func (a AutoReply) Cooldown() time.Duration {
	return time.Duration(a.CooldownSeconds) * time.Second
}

// ProactiveCooldown returns the minimum gap between proactive check-ins.
func (a AutoReply) ProactiveCooldown() time.Duration {
	return time.Duration(a.ProactiveCooldownSeconds) * time.Second
}
