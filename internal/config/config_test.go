package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Dataset != "cardcycle" {
		t.Errorf("dataset = %q", cfg.Dataset)
	}
	if cfg.Model == "" {
		t.Error("default model must be set")
	}
	if len(cfg.Keywords.Payment) == 0 || len(cfg.Keywords.Tax) == 0 {
		t.Error("default keyword tables must be populated")
	}
	if len(cfg.PlanRules) == 0 {
		t.Error("default plan rules must be populated")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
project_id: my-project
dataset: spend
keywords:
  payment:
    - "SU PAGO"
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProjectID != "my-project" || cfg.Dataset != "spend" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if len(cfg.Keywords.Payment) != 1 {
		t.Errorf("payment table must be replaced wholesale, got %v", cfg.Keywords.Payment)
	}
	if len(cfg.Keywords.Tax) == 0 {
		t.Error("untouched tables must keep defaults")
	}
	if cfg.Model == "" {
		t.Error("model default must survive a partial file")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("bucket: statements\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigPath, path)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Bucket != "statements" {
		t.Errorf("bucket = %q", cfg.Bucket)
	}
}
