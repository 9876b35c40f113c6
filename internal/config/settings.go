package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"drone-dance.klederson.com/internal/logger"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidFrameRate = errors.New("frame_rate must be greater than 0")
	ErrInvalidCatchUp   = errors.New("catch_up_frames cannot be negative")
	ErrInvalidTimeout   = errors.New("connect_timeout cannot be negative")
)

// Settings is the runtime configuration of a drone-dance process.
// Values come from an optional YAML file and are then overridden by flags.
type Settings struct {
	Listen         string        `yaml:"listen"`
	Adapter        string        `yaml:"adapter"`
	Demo           bool          `yaml:"demo"`
	FrameRate      int           `yaml:"frame_rate"`
	CatchUpFrames  int           `yaml:"catch_up_frames"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Announce       bool          `yaml:"announce"`
	Log            logger.Config `yaml:"log"`
}

// Default returns settings with every field at its built-in value.
func Default() Settings {
	return Settings{
		Listen:         ":3000",
		Adapter:        "hci0",
		FrameRate:      FrameRate,
		CatchUpFrames:  CatchUpFrames,
		ConnectTimeout: ConnectTimeout,
		Log:            *logger.DefaultConfig(),
	}
}

// Load reads settings from path on top of Default. An empty path or a
// missing file yields the defaults.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("failed to read settings %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}

	return s, s.Validate()
}

// Validate checks value ranges.
func (s Settings) Validate() error {
	if s.FrameRate <= 0 {
		return ErrInvalidFrameRate
	}
	if s.CatchUpFrames < 0 {
		return ErrInvalidCatchUp
	}
	if s.ConnectTimeout < 0 {
		return ErrInvalidTimeout
	}
	return nil
}
