// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/cliprec/pkg/adapters/ffmpeg"
	"github.com/user/cliprec/pkg/orchestrator"
	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/ports"
)

// Sources
const (
	SourceFFmpeg = "ffmpeg"
	SourceTest   = "test"
)

// Config represents the full configuration for cliprec.
type Config struct {
	// Output
	OutputPath string `yaml:"output"`
	SessionDir string `yaml:"session_dir"`
	Summary    string `yaml:"summary"`

	// Capture
	Source  string        `yaml:"source"`
	Capture CaptureConfig `yaml:"capture"`

	// Encoding
	Encoder    EncoderConfig `yaml:"encoder"`
	FFmpegPath string        `yaml:"ffmpeg_path"`

	// Frame flow
	MaxBlockMs  int `yaml:"max_block_ms"`
	FrameBuffer int `yaml:"frame_buffer"`

	// Preview and control surface
	Preview  PreviewConfig `yaml:"preview"`
	Listen   string        `yaml:"listen"`
	LingerMs int           `yaml:"linger_ms"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// CaptureConfig describes the camera.
type CaptureConfig struct {
	Device string `yaml:"device"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	FPS    int    `yaml:"fps"`
	Format string `yaml:"format"`
}

// EncoderConfig selects the encoder settings.
type EncoderConfig struct {
	Quality        string `yaml:"quality"`
	Speed          string `yaml:"speed"`
	HWAccel        string `yaml:"hwaccel"`
	CloseTimeoutMs int    `yaml:"close_timeout_ms"`
}

// PreviewConfig sets the preview size; zero disables the preview.
type PreviewConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	enc := pipeline.DefaultEncoderConfig()
	return Config{
		Source: SourceFFmpeg,
		Capture: CaptureConfig{
			Device: defaultDevice(),
			Width:  enc.Width,
			Height: enc.Height,
			FPS:    enc.FPS,
			Format: string(enc.InputFormat),
		},
		Encoder: EncoderConfig{
			Quality:        string(enc.Quality),
			Speed:          string(enc.Speed),
			HWAccel:        string(enc.HWAccel),
			CloseTimeoutMs: 10000,
		},
		MaxBlockMs:  250,
		FrameBuffer: 64,
		Preview: PreviewConfig{
			Width:  854,
			Height: 480,
		},
		Listen:   "127.0.0.1:8765",
		LingerMs: 1000,
		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for values no component accepts.
func (c Config) Validate() error {
	switch c.Source {
	case SourceFFmpeg, SourceTest:
	default:
		return fmt.Errorf("unknown source %q", c.Source)
	}
	if c.Source == SourceFFmpeg && c.Capture.Device == "" {
		return fmt.Errorf("capture device is required")
	}
	if _, err := c.EncoderConfig(); err != nil {
		return err
	}
	if c.MaxBlockMs < 0 || c.FrameBuffer < 0 || c.LingerMs < 0 || c.Encoder.CloseTimeoutMs < 0 {
		return fmt.Errorf("durations and buffer sizes must not be negative")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error", "quiet":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.Preview.Width < 0 || c.Preview.Height < 0 {
		return fmt.Errorf("invalid preview size: %dx%d", c.Preview.Width, c.Preview.Height)
	}
	return nil
}

// EncoderConfig returns the pipeline encoder configuration.
func (c Config) EncoderConfig() (pipeline.EncoderConfig, error) {
	format, err := pipeline.ParsePixelFormat(c.Capture.Format)
	if err != nil {
		return pipeline.EncoderConfig{}, err
	}
	enc := pipeline.EncoderConfig{
		Width:       c.Capture.Width,
		Height:      c.Capture.Height,
		FPS:         c.Capture.FPS,
		InputFormat: format,
		Quality:     pipeline.Quality(c.Encoder.Quality),
		Speed:       pipeline.Speed(c.Encoder.Speed),
		HWAccel:     pipeline.HWAccel(c.Encoder.HWAccel),
	}
	if err := enc.Validate(); err != nil {
		return pipeline.EncoderConfig{}, err
	}
	return enc, nil
}

// CaptureSettings returns the ffmpeg capture configuration.
func (c Config) CaptureSettings() (ffmpeg.CaptureConfig, error) {
	enc, err := c.EncoderConfig()
	if err != nil {
		return ffmpeg.CaptureConfig{}, err
	}
	return ffmpeg.CaptureConfig{
		Device: c.Capture.Device,
		Width:  enc.Width,
		Height: enc.Height,
		FPS:    enc.FPS,
		Format: enc.InputFormat,
	}, nil
}

// ToOrchestratorConfig converts Config to orchestrator.Config. An empty
// output path is replaced by a timestamped name.
func (c Config) ToOrchestratorConfig(now time.Time) (orchestrator.Config, error) {
	enc, err := c.EncoderConfig()
	if err != nil {
		return orchestrator.Config{}, err
	}
	output := c.OutputPath
	if output == "" {
		output = DefaultOutputName(now)
	}
	return orchestrator.Config{
		OutputPath:    output,
		SessionDir:    c.SessionDir,
		Encoder:       enc,
		CloseTimeout:  time.Duration(c.Encoder.CloseTimeoutMs) * time.Millisecond,
		FrameBuffer:   c.FrameBuffer,
		MaxBlock:      time.Duration(c.MaxBlockMs) * time.Millisecond,
		PreviewWidth:  c.Preview.Width,
		PreviewHeight: c.Preview.Height,
		Listen:        c.Listen,
		Linger:        time.Duration(c.LingerMs) * time.Millisecond,
		Debug:         ports.ParseLogLevel(c.LogLevel) == ports.LevelDebug,
	}, nil
}

// DefaultOutputName returns the timestamped default output file name.
func DefaultOutputName(now time.Time) string {
	return "output_" + now.Format("2006-01-02_150405") + ".mp4"
}
