package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultModel           = "stylized"
	DefaultRegime          = "costmin"
	DefaultRho             = 0.015
	DefaultEta             = 1.5
	DefaultAlgorithm       = "nelder-mead"
	DefaultPeriods         = 10
	DefaultStopTime        = time.Minute
	DefaultRelTolerance    = 1e-6
	DefaultStallIterations = 20
	DefaultGridPoints      = 5
	DefaultBackstopPeriods = 30
	DefaultBackstopRegions = 12
	DefaultLogLevel        = "info"
)

type Config struct {
	Model      string          `yaml:"model"`
	Regime     string          `yaml:"regime"`
	Rho        float64         `yaml:"rho"`
	Eta        float64         `yaml:"eta"`
	UseNegishi bool            `yaml:"use_negishi"`
	Optimizer  OptimizerConfig `yaml:"optimizer"`
	Backstop   BackstopConfig  `yaml:"backstop"`
	LogLevel   string          `yaml:"log_level"`
}

type OptimizerConfig struct {
	Algorithm       string        `yaml:"algorithm"`
	Periods         int           `yaml:"periods"`
	StopTime        time.Duration `yaml:"stop_time"`
	RelTolerance    float64       `yaml:"rel_tolerance"`
	StallIterations int           `yaml:"stall_iterations"`
	MaxEvaluations  int           `yaml:"max_evaluations"`
	Starts          int           `yaml:"starts"`
	Seed            uint64        `yaml:"seed"`
	GridPoints      int           `yaml:"grid_points"`
}

// BackstopConfig selects the backstop price matrix: a CSV file, inline rows,
// or (when both are empty) a synthetic Periods×Regions matrix.
type BackstopConfig struct {
	File    string      `yaml:"file,omitempty"`
	Values  [][]float64 `yaml:"values,omitempty"`
	Periods int         `yaml:"periods"`
	Regions int         `yaml:"regions"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:  DefaultModel,
		Regime: DefaultRegime,
		Rho:    DefaultRho,
		Eta:    DefaultEta,
		Optimizer: OptimizerConfig{
			Algorithm:       DefaultAlgorithm,
			Periods:         DefaultPeriods,
			StopTime:        DefaultStopTime,
			RelTolerance:    DefaultRelTolerance,
			StallIterations: DefaultStallIterations,
			Starts:          1,
			Seed:            1,
			GridPoints:      DefaultGridPoints,
		},
		Backstop: BackstopConfig{
			Periods: DefaultBackstopPeriods,
			Regions: DefaultBackstopRegions,
		},
		LogLevel: DefaultLogLevel,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks what can be checked without the model or the backstop
// matrix. Algorithm and regime names are resolved by their own packages.
func (c *Config) Validate() error {
	var errs []error
	if c.Model == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if c.Regime == "" {
		errs = append(errs, errors.New("regime is required"))
	}
	if !c.UseNegishi && c.Eta <= 0 {
		errs = append(errs, fmt.Errorf("eta must be positive, got %g", c.Eta))
	}
	if !c.UseNegishi && c.Rho <= -1 {
		errs = append(errs, fmt.Errorf("rho must exceed -1, got %g", c.Rho))
	}
	if c.Optimizer.Periods < 1 {
		errs = append(errs, fmt.Errorf("optimizer.periods must be positive, got %d", c.Optimizer.Periods))
	}
	if c.Optimizer.StopTime <= 0 {
		errs = append(errs, fmt.Errorf("optimizer.stop_time must be positive, got %v", c.Optimizer.StopTime))
	}
	if c.Optimizer.Starts < 1 {
		errs = append(errs, fmt.Errorf("optimizer.starts must be at least 1, got %d", c.Optimizer.Starts))
	}
	if c.Backstop.File != "" && len(c.Backstop.Values) > 0 {
		errs = append(errs, errors.New("backstop.file and backstop.values are mutually exclusive"))
	}
	if c.Backstop.File == "" && len(c.Backstop.Values) == 0 && (c.Backstop.Periods < 2 || c.Backstop.Regions < 1) {
		errs = append(errs, fmt.Errorf("synthetic backstop needs at least 2 periods and 1 region, got %dx%d",
			c.Backstop.Periods, c.Backstop.Regions))
	}
	return errors.Join(errs...)
}
