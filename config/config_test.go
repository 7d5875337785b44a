package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tr := cfg.Training
	if tr.DataPath != "heart.csv" || tr.Target != "output" || tr.ModelPath != "model.json" {
		t.Errorf("unexpected paths: %+v", tr)
	}
	if tr.TestFraction != 0.2 || tr.SplitSeed != 42 {
		t.Errorf("unexpected split: fraction %v seed %v", tr.TestFraction, tr.SplitSeed)
	}
	if tr.Forest.TreeCount != 100 || tr.Forest.Seed != 42 {
		t.Errorf("unexpected forest: %+v", tr.Forest)
	}
}

func TestLoadEmptyFileUsesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
training:
  data_path: data/heart.csv
  model_type: decision_tree
  forest:
    tree_count: 25
    max_depth: 6
http:
  port: 9090
  timeout: 5s
log:
  level: debug
  file: logs/heartrisk.log
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tr := cfg.Training
	if tr.DataPath != "data/heart.csv" || tr.ModelType != "decision_tree" {
		t.Errorf("training not overridden: %+v", tr)
	}
	if tr.Forest.TreeCount != 25 || tr.Forest.MaxDepth != 6 {
		t.Errorf("forest not overridden: %+v", tr.Forest)
	}
	if tr.Forest.Seed != 42 || tr.Target != "output" {
		t.Errorf("unset keys must keep their defaults: %+v", tr)
	}
	if cfg.Http.Port != 9090 || cfg.Http.Timeout != 5*time.Second {
		t.Errorf("http not overridden: %+v", cfg.Http)
	}
	if cfg.Log.Level != "debug" || cfg.Log.File != "logs/heartrisk.log" {
		t.Errorf("log not overridden: %+v", cfg.Log)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(envModelPath, "/tmp/other.json")
	t.Setenv(envHTTPPort, "7000")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Training.ModelPath != "/tmp/other.json" || cfg.Http.Port != 7000 {
		t.Fatalf("environment ignored: model %q port %d", cfg.Training.ModelPath, cfg.Http.Port)
	}

	t.Setenv(envHTTPPort, "seventy")
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a non-numeric port")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad yaml", content: "training: [unclosed"},
		{name: "bad source", content: "training:\n  source: parquet\n"},
		{name: "sqlite without path", content: "training:\n  source: sqlite\n"},
		{name: "fraction", content: "training:\n  test_fraction: 1.5\n"},
		{name: "no target", content: "training:\n  target: \"\"\n"},
		{name: "trees", content: "training:\n  forest:\n    tree_count: 0\n"},
		{name: "port", content: "http:\n  port: 70000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
