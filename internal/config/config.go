// Package config loads the application configuration: GCP wiring plus the
// classification keyword tables and bank plan rules, overridable from a YAML
// file so deployments can tune them without a rebuild.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dvloznov/cardcycle/internal/classify"
	"github.com/dvloznov/cardcycle/internal/rules"
)

// EnvConfigPath names the environment variable pointing at the YAML file.
const EnvConfigPath = "CARDCYCLE_CONFIG"

// Config is the full application configuration.
type Config struct {
	ProjectID string `yaml:"project_id"`
	Dataset   string `yaml:"dataset"`
	Bucket    string `yaml:"bucket"`
	Model     string `yaml:"model"`

	Keywords  classify.Keywords `yaml:"keywords"`
	PlanRules []rules.PlanRule  `yaml:"plan_rules"`
}

// Default returns the built-in configuration. ProjectID and Bucket have no
// sensible defaults and stay empty.
func Default() Config {
	return Config{
		Dataset:   "cardcycle",
		Model:     "gemini-2.5-flash",
		Keywords:  classify.DefaultKeywords(),
		PlanRules: rules.DefaultRules(),
	}
}

// Load reads a YAML file over the defaults. Fields absent from the file keep
// their default values; a keyword table present in the file replaces the
// default table wholesale.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv loads the file named by CARDCYCLE_CONFIG, or the defaults when the
// variable is unset. GOOGLE_CLOUD_PROJECT and GCS_BUCKET fill in the GCP
// fields when the file leaves them empty.
func FromEnv() (Config, error) {
	var (
		cfg Config
		err error
	)
	if path := os.Getenv(EnvConfigPath); path != "" {
		cfg, err = Load(path)
		if err != nil {
			return cfg, err
		}
	} else {
		cfg = Default()
	}
	if cfg.ProjectID == "" {
		cfg.ProjectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = os.Getenv("GCS_BUCKET")
	}
	return cfg, nil
}
