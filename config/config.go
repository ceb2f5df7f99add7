// Package config loads audiomix settings from TOML or YAML files and
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/pipelined/audiomix"
	"github.com/pipelined/audiomix/chunk"
	"github.com/pipelined/audiomix/pump"
	"github.com/pipelined/audiomix/timeline"
)

// Background loop policy names.
const (
	LoopAtLeastOnce    = "at_least_once"
	LoopOnlyWhenNeeded = "only_when_needed"
)

// Output file types.
const (
	FileTypeMP3 = "mp3"
	FileTypeWAV = "wav"
)

// ErrUnsupportedFile is returned for config files other than TOML or YAML.
var ErrUnsupportedFile = errors.New("unsupported config file")

// Config holds settings shared by all operations.
type Config struct {
	OutputFileType   string  `toml:"output_file_type" yaml:"output_file_type"`
	BitRate          int     `toml:"bit_rate" yaml:"bit_rate"`
	SampleRate       int     `toml:"sample_rate" yaml:"sample_rate"`
	Channels         int     `toml:"channels" yaml:"channels"`
	GapSeconds       float64 `toml:"gap_seconds" yaml:"gap_seconds"`
	MaxEffectSeconds float64 `toml:"max_effect_seconds" yaml:"max_effect_seconds"`
	FadeSeconds      float64 `toml:"fade_seconds" yaml:"fade_seconds"`
	BatchSize        int     `toml:"batch_size" yaml:"batch_size"`
	AlignUnit        int     `toml:"align_unit" yaml:"align_unit"`
	BackgroundLoop   string  `toml:"background_loop" yaml:"background_loop"`
	LogLevel         string  `toml:"log_level" yaml:"log_level"`
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		OutputFileType:   FileTypeMP3,
		BitRate:          128000,
		SampleRate:       timeline.DefaultSampleRate,
		Channels:         1,
		MaxEffectSeconds: 15,
		FadeSeconds:      5,
		BatchSize:        pump.DefaultBatchSize,
		AlignUnit:        chunk.DefaultUnit,
		BackgroundLoop:   LoopAtLeastOnce,
		LogLevel:         "info",
	}
}

// Load reads configuration file over defaults, applies environment
// overrides and validates the result. Empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("AUDIOMIX_OUTPUT_FILE_TYPE"); v != "" {
		cfg.OutputFileType = v
	}
	if v := os.Getenv("AUDIOMIX_BACKGROUND_LOOP"); v != "" {
		cfg.BackgroundLoop = v
	}
	if v := os.Getenv("AUDIOMIX_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	ints := map[string]*int{
		"AUDIOMIX_BIT_RATE":    &cfg.BitRate,
		"AUDIOMIX_SAMPLE_RATE": &cfg.SampleRate,
		"AUDIOMIX_CHANNELS":    &cfg.Channels,
		"AUDIOMIX_BATCH_SIZE":  &cfg.BatchSize,
		"AUDIOMIX_ALIGN_UNIT":  &cfg.AlignUnit,
	}
	for name, p := range ints {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*p = n
	}
	floats := map[string]*float64{
		"AUDIOMIX_GAP_SECONDS":        &cfg.GapSeconds,
		"AUDIOMIX_MAX_EFFECT_SECONDS": &cfg.MaxEffectSeconds,
		"AUDIOMIX_FADE_SECONDS":       &cfg.FadeSeconds,
	}
	for name, p := range floats {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*p = f
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.OutputFileType {
	case FileTypeMP3, FileTypeWAV:
	default:
		return fmt.Errorf("invalid output file type: %q (must be mp3 or wav)", c.OutputFileType)
	}
	if c.OutputFileType == FileTypeMP3 && c.BitRate <= 0 {
		return fmt.Errorf("invalid bit rate: %d (must be positive)", c.BitRate)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d (must be positive)", c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("invalid channels: %d (must be 1 or 2)", c.Channels)
	}
	if c.GapSeconds < 0 {
		return fmt.Errorf("invalid gap: %v (must not be negative)", c.GapSeconds)
	}
	if c.MaxEffectSeconds < 0 || c.FadeSeconds < 0 {
		return fmt.Errorf("invalid effect durations: max %v fade %v (must not be negative)", c.MaxEffectSeconds, c.FadeSeconds)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("invalid batch size: %d (must be positive)", c.BatchSize)
	}
	if c.AlignUnit <= 0 || c.AlignUnit%(2*c.Channels) != 0 {
		return fmt.Errorf("invalid align unit: %d (must be positive multiple of sample size)", c.AlignUnit)
	}
	if _, err := c.loop(); err != nil {
		return err
	}
	return nil
}

func (c *Config) loop() (timeline.BackgroundLoop, error) {
	switch c.BackgroundLoop {
	case LoopAtLeastOnce, "":
		return timeline.LoopAtLeastOnce, nil
	case LoopOnlyWhenNeeded:
		return timeline.LoopOnlyWhenNeeded, nil
	}
	return 0, fmt.Errorf("invalid background loop: %q", c.BackgroundLoop)
}

// Policy returns timeline policy in samples of the output rate.
func (c *Config) Policy() timeline.Policy {
	p := timeline.DefaultPolicy()
	p.SampleRate = c.SampleRate
	p.GapSeconds = c.GapSeconds
	p.MaxEffectDuration = int64(c.MaxEffectSeconds * float64(c.SampleRate))
	p.FadeDuration = int64(c.FadeSeconds * float64(c.SampleRate))
	p.BackgroundLoop, _ = c.loop()
	return p
}

// OutputFormat returns format of encoded output.
func (c *Config) OutputFormat() audiomix.Format {
	return audiomix.Format{
		SampleFormat: audiomix.SampleFormatS16,
		SampleRate:   c.SampleRate,
		NumChannels:  c.Channels,
	}
}
