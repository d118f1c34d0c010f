// Package config holds all codesense configuration. Configuration is loaded
// from a YAML file with sane defaults, then overridden by environment
// variables. A missing config file is not an error; defaults apply.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the conventional location of the config file relative
// to the workspace root.
const DefaultConfigPath = ".codesense/config.yaml"

// Config holds all codesense configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Purpose classifier
	Classifier ClassifierConfig `yaml:"classifier"`

	// Goal alignment scoring
	Alignment AlignmentConfig `yaml:"alignment"`

	// Anomaly detection
	Anomaly AnomalyConfig `yaml:"anomaly"`

	// Pattern learner and prototype store
	Learner LearnerConfig `yaml:"learner"`

	// Archetype catalogue
	Archetype ArchetypeConfig `yaml:"archetype"`

	// Report synthesis
	Synthesis SynthesisConfig `yaml:"synthesis"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ClassifierConfig configures the purpose classifier.
type ClassifierConfig struct {
	// Categories at or above this confidence rank normally; the rest rank
	// last. Zero keeps every category in play.
	MinConfidence float64 `yaml:"min_confidence"`
}

// AlignmentConfig configures goal/code alignment scoring.
type AlignmentConfig struct {
	// Score at or above this value counts as aligned.
	Threshold float64 `yaml:"threshold"`
}

// AnomalyConfig configures the anomaly detector.
type AnomalyConfig struct {
	// Markers whose deviation weight is below this are not reported.
	DeviationThreshold float64 `yaml:"deviation_threshold"`
}

// LearnerConfig configures the pattern learner and its SQLite store.
type LearnerConfig struct {
	// StorePath is the prototype database file. Empty disables persistence;
	// prototypes then live only for the process lifetime.
	StorePath string `yaml:"store_path"`

	// Decay settings for stale prototypes.
	DecayFactor    float64 `yaml:"decay_factor"`
	DecayAfterDays int     `yaml:"decay_after_days"`
}

// ArchetypeConfig configures the archetype catalogue.
type ArchetypeConfig struct {
	// CataloguePath is an optional YAML file overriding the built-in
	// catalogue. Empty keeps the built-in templates.
	CataloguePath string `yaml:"catalogue_path"`

	// WatchCatalogue enables hot reload of the catalogue file.
	WatchCatalogue bool `yaml:"watch_catalogue"`
}

// SynthesisConfig configures report fusion. The four weights combine the
// per-layer confidences into the overall score; layers that did not run are
// excluded and the remaining weights renormalized.
type SynthesisConfig struct {
	PurposeWeight    float64 `yaml:"purpose_weight"`
	AnomalyWeight    float64 `yaml:"anomaly_weight"`
	ArchetypeWeight  float64 `yaml:"archetype_weight"`
	PredictionWeight float64 `yaml:"prediction_weight"`
}

// LoggingConfig configures the category file loggers.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "codesense",
		Version: "0.1.0",
		Classifier: ClassifierConfig{
			MinConfidence: 0.0,
		},
		Alignment: AlignmentConfig{
			Threshold: 0.5,
		},
		Anomaly: AnomalyConfig{
			DeviationThreshold: 0.5,
		},
		Learner: LearnerConfig{
			StorePath:      filepath.Join(".codesense", "prototypes.db"),
			DecayFactor:    0.9,
			DecayAfterDays: 7,
		},
		Archetype: ArchetypeConfig{
			CataloguePath:  "",
			WatchCatalogue: false,
		},
		Synthesis: SynthesisConfig{
			PurposeWeight:    1.0,
			AnomalyWeight:    1.0,
			ArchetypeWeight:  1.0,
			PredictionWeight: 1.0,
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load loads configuration from a YAML file, applying defaults for missing
// fields and environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("CODESENSE_DB"); path != "" {
		c.Learner.StorePath = path
	}
	if path := os.Getenv("CODESENSE_ARCHETYPES"); path != "" {
		c.Archetype.CataloguePath = path
	}
	if v := os.Getenv("CODESENSE_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
}

// Validate checks that thresholds and weights are usable.
func (c *Config) Validate() error {
	if c.Classifier.MinConfidence < 0 || c.Classifier.MinConfidence > 1 {
		return fmt.Errorf("classifier.min_confidence %.2f out of range [0,1]", c.Classifier.MinConfidence)
	}
	if c.Alignment.Threshold < 0 || c.Alignment.Threshold > 1 {
		return fmt.Errorf("alignment.threshold %.2f out of range [0,1]", c.Alignment.Threshold)
	}
	if c.Anomaly.DeviationThreshold < 0 || c.Anomaly.DeviationThreshold > 1 {
		return fmt.Errorf("anomaly.deviation_threshold %.2f out of range [0,1]", c.Anomaly.DeviationThreshold)
	}
	if c.Learner.DecayFactor <= 0 || c.Learner.DecayFactor >= 1 {
		return fmt.Errorf("learner.decay_factor %.2f must be in (0,1)", c.Learner.DecayFactor)
	}
	weights := []float64{
		c.Synthesis.PurposeWeight,
		c.Synthesis.AnomalyWeight,
		c.Synthesis.ArchetypeWeight,
		c.Synthesis.PredictionWeight,
	}
	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("synthesis weights must be non-negative")
		}
		sum += w
	}
	if sum == 0 {
		return fmt.Errorf("synthesis weights must not all be zero")
	}
	return nil
}
