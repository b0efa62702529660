// Package config loads oxy-bake settings from a config file, OXY_* environment variables and CLI flags.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override file settings, e.g. OXY_TICK_RATE.
const EnvPrefix = "OXY"

// Config holds the bake and engine settings.
type Config struct {
	// Paths
	Model  string `mapstructure:"model"`
	Output string `mapstructure:"output"`

	// Playback
	Clip      string  `mapstructure:"clip"`
	Instances int     `mapstructure:"instances"`
	Frames    int     `mapstructure:"frames"`
	Delta     float64 `mapstructure:"delta"`
	TickRate  float64 `mapstructure:"tick_rate"`

	// Engine
	MaxBones  int  `mapstructure:"max_bones"`
	Workers   int  `mapstructure:"workers"`
	Profiling bool `mapstructure:"profiling"`
}

// Default returns the settings used when neither a file nor the environment sets a key.
func Default() Config {
	return Config{
		Instances: 1,
		Frames:    250,
		Delta:     1.0 / 60,
		TickRate:  60,
		MaxBones:  loader.DefaultMaxBones,
		Workers:   max(runtime.NumCPU()-1, 1),
	}
}

// Load reads a TOML, YAML or JSON config file, picked by extension, over the defaults.
// An empty path skips the file. OXY_* environment variables override both.
func Load(path string) (Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("model", def.Model)
	v.SetDefault("output", def.Output)
	v.SetDefault("clip", def.Clip)
	v.SetDefault("instances", def.Instances)
	v.SetDefault("frames", def.Frames)
	v.SetDefault("delta", def.Delta)
	v.SetDefault("tick_rate", def.TickRate)
	v.SetDefault("max_bones", def.MaxBones)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("profiling", def.Profiling)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
// Zero values mean the flag was not given.
type Flags struct {
	Model     string
	Output    string
	Clip      string
	Instances int
	Frames    int
	Delta     float64
	MaxBones  int
	Workers   int
	Profiling bool
}

// Resolve applies non-zero flags over the loaded settings, then restores defaults for
// any setting left non-positive.
func (c *Config) Resolve(flags Flags) {
	c.Model = common.Coalesce(flags.Model, c.Model)
	c.Output = common.Coalesce(flags.Output, c.Output)
	c.Clip = common.Coalesce(flags.Clip, c.Clip)
	c.Instances = common.Coalesce(flags.Instances, c.Instances)
	c.Frames = common.Coalesce(flags.Frames, c.Frames)
	c.Delta = common.Coalesce(flags.Delta, c.Delta)
	c.MaxBones = common.Coalesce(flags.MaxBones, c.MaxBones)
	c.Workers = common.Coalesce(flags.Workers, c.Workers)
	c.Profiling = c.Profiling || flags.Profiling

	def := Default()
	if c.Instances <= 0 {
		c.Instances = def.Instances
	}
	if c.Frames <= 0 {
		c.Frames = def.Frames
	}
	if c.Delta <= 0 {
		c.Delta = def.Delta
	}
	if c.TickRate <= 0 {
		c.TickRate = def.TickRate
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
}
