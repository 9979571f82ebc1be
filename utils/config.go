package utils

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	ml "github.com/annolab-ml/annolab-go/pipelines/ML"
)

// Config holds the full job configuration. It is loaded from a YAML file and
// selectively overridable from ANNOLAB_* environment variables so secrets
// stay out of the file.
type Config struct {
	ItemsPath       string         `yaml:"items_path"`
	AnnotationsPath string         `yaml:"annotations_path"`
	OutputDir       string         `yaml:"output_dir"`
	Task            string         `yaml:"task"` // "binary" or "content"
	Sample          SampleConfig   `yaml:"sample"`
	Prepare         PrepareConfig  `yaml:"prepare"`
	Split           SplitConfig    `yaml:"split"`
	Trainer         TrainerConfig  `yaml:"trainer"`
	Store           StoreConfig    `yaml:"store"`
	Log             LogConfig      `yaml:"log"`
	Schedule        ScheduleConfig `yaml:"schedule"`
}

// SampleConfig configures the balanced sampler
type SampleConfig struct {
	PerClass int   `yaml:"per_class"`
	Seed     int64 `yaml:"seed"`
}

// PrepareConfig configures aggregation and class filtering
type PrepareConfig struct {
	Category   string `yaml:"category"`
	MinSupport int    `yaml:"min_support"`
}

// SplitConfig configures the stratified splitter
type SplitConfig struct {
	TestFraction float64 `yaml:"test_fraction"`
	Seed         int64   `yaml:"seed"`
}

// TrainerConfig configures the external fine-tuning service binding
type TrainerConfig struct {
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api_key"`
	BaseModel      string `yaml:"base_model"`
	Epochs         int    `yaml:"epochs"`
	Device         string `yaml:"device"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// StoreConfig configures the run store
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ScheduleConfig configures the retraining scheduler
type ScheduleConfig struct {
	CronExpr string `yaml:"cron_expr"`
}

// DefaultConfig returns the reference configuration
func DefaultConfig() *Config {
	return &Config{
		OutputDir: "data",
		Task:      "binary",
		Sample:    SampleConfig{PerClass: 100, Seed: 42},
		Prepare:   PrepareConfig{Category: ml.CategoryContent, MinSupport: 300},
		Split:     SplitConfig{TestFraction: 0.2, Seed: 42},
		Trainer: TrainerConfig{
			BaseModel: "bert-base-uncased",
			Epochs:    2,
			Device:    ml.DeviceCPU,
		},
		Store: StoreConfig{Path: "annolab.db"},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads the YAML file, applies environment overrides and
// validates the result. An empty path yields the defaults plus overrides.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides pulls selected settings from the environment
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("ANNOLAB_TRAINER_ENDPOINT"); v != "" {
		config.Trainer.Endpoint = v
	}
	if v := os.Getenv("ANNOLAB_TRAINER_API_KEY"); v != "" {
		config.Trainer.APIKey = v
	}
	if v := os.Getenv("ANNOLAB_LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
	if v := os.Getenv("ANNOLAB_STORE_PATH"); v != "" {
		config.Store.Path = v
	}
	if v := os.Getenv("ANNOLAB_EPOCHS"); v != "" {
		if epochs, err := strconv.Atoi(v); err == nil {
			config.Trainer.Epochs = epochs
		}
	}
}

// Validate checks the configuration for internal consistency
func (c *Config) Validate() error {
	if c.Task != "binary" && c.Task != "content" {
		return fmt.Errorf("task must be binary or content, got %q", c.Task)
	}
	if c.Sample.PerClass <= 0 {
		return fmt.Errorf("sample.per_class must be positive, got %d", c.Sample.PerClass)
	}
	if c.Prepare.MinSupport < 0 {
		return fmt.Errorf("prepare.min_support must not be negative, got %d", c.Prepare.MinSupport)
	}
	if c.Prepare.Category != ml.CategoryContent && c.Prepare.Category != ml.CategoryPhrasing {
		return fmt.Errorf("prepare.category must be %s or %s, got %q", ml.CategoryContent, ml.CategoryPhrasing, c.Prepare.Category)
	}
	if c.Split.TestFraction <= 0 || c.Split.TestFraction >= 1 {
		return fmt.Errorf("split.test_fraction must be in (0, 1), got %v", c.Split.TestFraction)
	}
	if c.Trainer.Epochs <= 0 {
		return fmt.Errorf("trainer.epochs must be positive, got %d", c.Trainer.Epochs)
	}
	if c.Trainer.Device != ml.DeviceCPU && c.Trainer.Device != ml.DeviceCUDA {
		return fmt.Errorf("trainer.device must be cpu or cuda, got %q", c.Trainer.Device)
	}
	return nil
}
