package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mhelwig/odefit/internal/engine"
)

const (
	DefaultMethod     = "rk4"
	DefaultDt         = 0.01
	DefaultAbsTol     = 1e-8
	DefaultRelTol     = 1e-6
	DefaultMaxSteps   = 1_000_000
	DefaultGridPoints = 10
	DefaultDataDir    = ".odefit"
)

type Config struct {
	Problem string       `yaml:"problem"`
	DataDir string       `yaml:"data_dir"`
	Solver  SolverConfig `yaml:"solver"`
	Fit     FitConfig    `yaml:"fit"`
}

type SolverConfig struct {
	Method   string  `yaml:"method"`
	Dt       float64 `yaml:"dt"`
	AbsTol   float64 `yaml:"abs_tol"`
	RelTol   float64 `yaml:"rel_tol"`
	MaxSteps int     `yaml:"max_steps"`
}

type FitConfig struct {
	GridPoints int  `yaml:"grid_points"`
	Live       bool `yaml:"live"`
}

func DefaultConfig() *Config {
	return &Config{
		DataDir: DefaultDataDir,
		Solver: SolverConfig{
			Method:   DefaultMethod,
			Dt:       DefaultDt,
			AbsTol:   DefaultAbsTol,
			RelTol:   DefaultRelTol,
			MaxSteps: DefaultMaxSteps,
		},
		Fit: FitConfig{
			GridPoints: DefaultGridPoints,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Apply copies the configured values onto an engine solver.
func (c SolverConfig) Apply(s *engine.Solver) {
	if c.Method != "" {
		s.Method = engine.Method(c.Method)
	}
	if c.Dt > 0 {
		s.Dt = c.Dt
	}
	if c.AbsTol > 0 {
		s.AbsTol = c.AbsTol
	}
	if c.RelTol > 0 {
		s.RelTol = c.RelTol
	}
	if c.MaxSteps > 0 {
		s.MaxSteps = c.MaxSteps
	}
}
