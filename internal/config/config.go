package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no --config is given
const DefaultConfigFile = "car-estimator.yaml"

// Unseen category policies
const (
	UnseenIgnore = "ignore"
	UnseenWarn   = "warn"
	UnseenReject = "reject"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Data     DataConfig    `yaml:"data"`
	Model    ModelConfig   `yaml:"model"`
	Features FeatureConfig `yaml:"features"`
	Display  DisplayConfig `yaml:"display"`
	Logging  LoggingConfig `yaml:"logging"`
	Form     FormOverrides `yaml:"form"`
	Version  string        `yaml:"-"`
}

// ServerConfig configures the HTTP server and the desktop window
type ServerConfig struct {
	Port     int  `yaml:"port"`
	Headless bool `yaml:"headless"`
}

// DataConfig points at the reference dataset
type DataConfig struct {
	Path      string `yaml:"path"`
	Delimiter string `yaml:"delimiter"`
	Table     string `yaml:"table"` // only used for SQLite datasets
}

// ModelConfig points at the serialized classifier
type ModelConfig struct {
	Path string `yaml:"path"`
}

// FeatureConfig describes how the dataset is turned into a feature schema
type FeatureConfig struct {
	Exclude      []string `yaml:"exclude"`
	Categorical  []string `yaml:"categorical"`
	Target       string   `yaml:"target"`
	UnseenPolicy string   `yaml:"unseen_policy"`
}

// DisplayConfig controls how results are rendered
type DisplayConfig struct {
	Currency string `yaml:"currency"`
}

// LoggingConfig configures zap
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// FormOverrides replaces the built-in choice lists when non-empty
type FormOverrides struct {
	Brands         []string `yaml:"brands"`
	Models         []string `yaml:"models"`
	Types          []string `yaml:"types"`
	FuelTypes      []string `yaml:"fuel_types"`
	Regions        []string `yaml:"regions"`
	Transmissions  []string `yaml:"transmissions"`
	SafetyFeatures []string `yaml:"safety_features"`
}

// DefaultConfig returns the settings the estimator was trained with
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Data: DataConfig{
			Path:      "Estimacar.csv",
			Delimiter: ";",
			Table:     "cars",
		},
		Model: ModelConfig{
			Path: "RandomForest_Model.gob",
		},
		Features: FeatureConfig{
			Exclude: []string{
				"Car_Id", "SerialNumber", "Unnamed: 16", "Transmission.1",
				"Condition", "Color", "Condition_Score", "Car_Age",
				"Entertainment_Features", "Sold_Price",
			},
			Categorical: []string{
				"Brand", "Model", "Type", "FuelType", "Safety_Features",
				"Region", "Transmission", "Accident_History",
			},
			Target:       "Price_Category",
			UnseenPolicy: UnseenWarn,
		},
		Display: DisplayConfig{
			Currency: "TND",
		},
		Logging: LoggingConfig{
			Level: "info",
			JSON:  true,
		},
		Version: "dev",
	}
}

// Load reads a YAML config file on top of the defaults.
// A missing file is not an error when optional is true.
func Load(path string, optional bool) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the config as YAML
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from CAR_ESTIMATOR_* environment variables
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CAR_ESTIMATOR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("CAR_ESTIMATOR_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Server.Headless = b
		}
	}
	if v := os.Getenv("CAR_ESTIMATOR_DATASET"); v != "" {
		c.Data.Path = v
	}
	if v := os.Getenv("CAR_ESTIMATOR_MODEL"); v != "" {
		c.Model.Path = v
	}
	if v := os.Getenv("CAR_ESTIMATOR_UNSEEN_POLICY"); v != "" {
		c.Features.UnseenPolicy = strings.ToLower(v)
	}
	if v := os.Getenv("CAR_ESTIMATOR_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks that the config can drive the estimator
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Data.Path == "" {
		return fmt.Errorf("data.path is required")
	}
	if c.Model.Path == "" {
		return fmt.Errorf("model.path is required")
	}
	if len(c.Data.Delimiter) != 1 {
		return fmt.Errorf("data.delimiter must be a single character, got %q", c.Data.Delimiter)
	}
	if len(c.Features.Categorical) == 0 {
		return fmt.Errorf("features.categorical must not be empty")
	}
	switch c.Features.UnseenPolicy {
	case UnseenIgnore, UnseenWarn, UnseenReject:
	default:
		return fmt.Errorf("unknown unseen_policy %q (want %s, %s or %s)",
			c.Features.UnseenPolicy, UnseenIgnore, UnseenWarn, UnseenReject)
	}
	return nil
}
