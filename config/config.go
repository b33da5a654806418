// Package config loads pacerd settings from an optional .env file, an
// optional YAML file and environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"mallathon/game"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Pacer  PacerConfig  `yaml:"pacer"`
	Course CourseConfig `yaml:"course"`
	AI     AIConfig     `yaml:"ai"`
	Log    LogConfig    `yaml:"log"`
	Sentry SentryConfig `yaml:"sentry"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type PacerConfig struct {
	StrideLength  float64       `yaml:"stride_length"`  // meters
	StepThreshold float64       `yaml:"step_threshold"` // m/s²
	Refractory    time.Duration `yaml:"refractory"`
	IdleAfter     time.Duration `yaml:"idle_after"`
}

type CourseConfig struct {
	Orbs        int     `yaml:"orbs"`
	Spacing     float64 `yaml:"spacing"`      // meters
	Horizon     float64 `yaml:"horizon"`      // meters
	CollectMode string  `yaml:"collect_mode"` // crossing | band
	Seed        uint64  `yaml:"seed"`         // 0 = derive from room code
}

type AIConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Dev   bool   `yaml:"dev"`
}

type SentryConfig struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Pacer: PacerConfig{
			StrideLength:  game.DefaultStrideLength,
			StepThreshold: game.StepThreshold,
			Refractory:    game.StepRefractory,
			IdleAfter:     game.IdleAfter,
		},
		Course: CourseConfig{
			Orbs:        game.OrbCount,
			Spacing:     game.OrbSpacing,
			Horizon:     game.VisibilityHorizon,
			CollectMode: "crossing",
		},
		AI: AIConfig{
			Model:   "gemini-3-flash-preview",
			Timeout: 30 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// InitConfig loads a .env file into the process environment. A missing file
// is fine; a malformed one is not.
func InitConfig(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load environment file: %w", err)
	}
	return nil
}

// Load reads path over the defaults (an empty path skips the file) and then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, err := GetEnvVariable("GEMINI_API_KEY"); err == nil {
		c.AI.APIKey = v
	} else if v, err := GetEnvVariable("API_KEY"); err == nil {
		c.AI.APIKey = v
	}
	if v, err := GetEnvVariable("PACER_ADDR"); err == nil {
		c.Server.Addr = v
	}
	if v, err := GetEnvVariable("PACER_LOG_LEVEL"); err == nil {
		c.Log.Level = v
	}
	if v, err := GetEnvVariable("SENTRY_DSN"); err == nil {
		c.Sentry.DSN = v
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Pacer.StrideLength <= 0 {
		errs = append(errs, fmt.Errorf("pacer.stride_length must be > 0, got %v", c.Pacer.StrideLength))
	}
	if c.Pacer.StepThreshold <= 0 {
		errs = append(errs, fmt.Errorf("pacer.step_threshold must be > 0, got %v", c.Pacer.StepThreshold))
	}
	if c.Course.Orbs < 0 {
		errs = append(errs, fmt.Errorf("course.orbs must be >= 0, got %d", c.Course.Orbs))
	}
	if c.Course.Spacing <= 0 {
		errs = append(errs, fmt.Errorf("course.spacing must be > 0, got %v", c.Course.Spacing))
	}
	if c.Course.Horizon <= 0 {
		errs = append(errs, fmt.Errorf("course.horizon must be > 0, got %v", c.Course.Horizon))
	}
	if _, err := ParseCollectMode(c.Course.CollectMode); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// PacerTuning converts the pacer section for game.NewPacer.
func (c Config) PacerTuning() game.PacerTuning {
	return game.PacerTuning{
		StrideLength:  c.Pacer.StrideLength,
		StepThreshold: c.Pacer.StepThreshold,
		Refractory:    c.Pacer.Refractory,
		IdleAfter:     c.Pacer.IdleAfter,
	}
}

func ParseCollectMode(s string) (game.CollectMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "crossing":
		return game.CollectCrossing, nil
	case "band":
		return game.CollectBand, nil
	}
	return game.CollectCrossing, fmt.Errorf("course.collect_mode %q is not crossing or band", s)
}

func GetEnvVariable(v string) (string, error) {
	if v == "" {
		return "", fmt.Errorf("input param empty")
	}
	b := os.Getenv(v)
	if b == "" {
		return "", fmt.Errorf("failed to get variable for %s", v)
	}

	return b, nil
}
