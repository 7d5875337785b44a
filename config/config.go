// Package config loads the YAML configuration shared by the trainer and the
// inference server.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"heartrisk/ml"
)

const (
	DefaultPath = "config.yaml"

	envModelPath = "HEARTRISK_MODEL_PATH"
	envHTTPPort  = "HEARTRISK_HTTP_PORT"
)

type Config struct {
	Training Training `yaml:"training"`
	Http     Http     `yaml:"http"`
	Log      Log      `yaml:"log"`
}

type Training struct {
	// Source is "csv" or "sqlite".
	Source       string  `yaml:"source"`
	DataPath     string  `yaml:"data_path"`
	Encoding     string  `yaml:"encoding"`
	SQLitePath   string  `yaml:"sqlite_path"`
	Table        string  `yaml:"table"`
	Target       string  `yaml:"target"`
	TestFraction float64 `yaml:"test_fraction"`
	SplitSeed    int64   `yaml:"split_seed"`
	HeadRows     int     `yaml:"head_rows"`
	ModelType    string  `yaml:"model_type"`
	ModelPath    string  `yaml:"model_path"`

	Forest ml.ForestConfig `yaml:"forest"`
}

type Http struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	ModelCacheSize int           `yaml:"model_cache_size"`
}

type Log struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns the configuration used when no file is present: train on
// heart.csv in the working directory and write model.json next to it.
func Default() *Config {
	return &Config{
		Training: Training{
			Source:       "csv",
			DataPath:     "heart.csv",
			Encoding:     "utf-8",
			Table:        "heart",
			Target:       "output",
			TestFraction: ml.DefaultTestFraction,
			SplitSeed:    ml.DefaultSeed,
			HeadRows:     5,
			ModelType:    ml.ModelTypeRandomForest,
			ModelPath:    "model.json",
			Forest:       ml.DefaultForestConfig(),
		},
		Http: Http{
			Port:           8080,
			Timeout:        30 * time.Second,
			AllowedOrigins: []string{"*"},
			MaxBodyBytes:   1 << 16,
			ModelCacheSize: 4,
		},
		Log: Log{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load decodes path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		defer file.Close()
		// An empty file decodes to io.EOF and leaves the defaults in place.
		if err := yaml.NewDecoder(file).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(envModelPath); v != "" {
		c.Training.ModelPath = v
	}
	if v := os.Getenv(envHTTPPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envHTTPPort, err)
		}
		c.Http.Port = port
	}
	return nil
}

func (c *Config) Validate() error {
	t := c.Training
	switch t.Source {
	case "csv":
		if t.DataPath == "" {
			return errors.New("training.data_path is required")
		}
	case "sqlite":
		if t.SQLitePath == "" || t.Table == "" {
			return errors.New("training.sqlite_path and training.table are required")
		}
	default:
		return fmt.Errorf("training.source must be csv or sqlite, got %q", t.Source)
	}
	if t.Target == "" {
		return errors.New("training.target is required")
	}
	if t.ModelPath == "" {
		return errors.New("training.model_path is required")
	}
	if t.TestFraction <= 0 || t.TestFraction >= 1 {
		return fmt.Errorf("training.test_fraction must be in (0, 1), got %v", t.TestFraction)
	}
	if t.Forest.TreeCount <= 0 {
		return fmt.Errorf("training.forest.tree_count must be positive, got %d", t.Forest.TreeCount)
	}
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.Http.Port)
	}
	return nil
}
