package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"cartpole/internal/env"
	"cartpole/internal/nn"
)

// Config is the root configuration structure
type Config struct {
	Seed       int64              `yaml:"seed"`
	Physics    PhysicsConfig      `yaml:"physics"`
	NN         NNConfig           `yaml:"nn"`
	GA         GAConfig           `yaml:"ga"`
	Eval       EvalConfig         `yaml:"eval"`
	Fitness    env.FitnessWeights `yaml:"fitness"`
	Logging    LogConfig          `yaml:"logging"`
	Storage    StorageConfig      `yaml:"storage"`
	Supervised SupervisedConfig   `yaml:"supervised"`
}

// PhysicsConfig selects the integrator and the reset interval
type PhysicsConfig struct {
	Integrator  string  `yaml:"integrator" ini:"integrator"` // euler|semi-implicit
	ResetBound  float64 `yaml:"reset_bound" ini:"reset_bound"`
	StrictReset bool    `yaml:"strict_reset" ini:"strict_reset"`
}

// NNConfig defines the evolved network architecture
type NNConfig struct {
	Hidden     []int  `yaml:"hidden" ini:"hidden" delim:","`
	Outputs    int    `yaml:"outputs" ini:"outputs"`
	Activation string `yaml:"activation" ini:"activation"` // hardtanh|selu
	Features   string `yaml:"features" ini:"features"`     // raw|scaled
}

// GAConfig defines genetic algorithm parameters
type GAConfig struct {
	Population        int     `yaml:"population" ini:"population"`
	MutationChance    float64 `yaml:"mutation_chance" ini:"mutation_chance"` // percent
	MutationMagnitude float64 `yaml:"mutation_magnitude" ini:"mutation_magnitude"`
	RandomPercent     float64 `yaml:"random_percent" ini:"random_percent"`
}

// EvalConfig defines evaluation parameters
type EvalConfig struct {
	Workers        int     `yaml:"workers" ini:"workers"`
	BenchmarkEvery int     `yaml:"benchmark_every" ini:"benchmark_every"` // negative disables
	BenchmarkTopK  int     `yaml:"benchmark_topk" ini:"benchmark_topk"`
	BenchmarkSeeds []int64 `yaml:"benchmark_seeds" ini:"benchmark_seeds" delim:","`
}

// LogConfig defines logging parameters
type LogConfig struct {
	EveryGenSummary   bool   `yaml:"every_gen_summary" ini:"every_gen_summary"`
	TopNDebug         int    `yaml:"topn_debug" ini:"topn_debug"`
	SaveChampionEvery int    `yaml:"save_champion_every" ini:"save_champion_every"`
	ReplayEvery       int    `yaml:"replay_every" ini:"replay_every"`
	CSVPath           string `yaml:"csv_path" ini:"csv_path"`
	JSONPath          string `yaml:"json_path" ini:"json_path"`
	ArtifactsDir      string `yaml:"artifacts_dir" ini:"artifacts_dir"`
	FeedAddr          string `yaml:"feed_addr" ini:"feed_addr"`
}

// StorageConfig selects the run store
type StorageConfig struct {
	SQLitePath string `yaml:"sqlite_path" ini:"sqlite_path"` // empty keeps runs in memory
	RunID      string `yaml:"run_id" ini:"run_id"`
}

// SupervisedConfig defines the image-to-direction trainer
type SupervisedConfig struct {
	Hidden        []int   `yaml:"hidden" ini:"hidden" delim:","`
	LearningRate  float64 `yaml:"learning_rate" ini:"learning_rate"`
	ImageWidth    int     `yaml:"image_width" ini:"image_width"`
	ImageHeight   int     `yaml:"image_height" ini:"image_height"`
	SweepMin      float64 `yaml:"sweep_min" ini:"sweep_min"` // degrees
	SweepMax      float64 `yaml:"sweep_max" ini:"sweep_max"`
	SweepStep     float64 `yaml:"sweep_step" ini:"sweep_step"`
	MaxIterations int     `yaml:"max_iterations" ini:"max_iterations"`
	MaxRounds     int     `yaml:"max_rounds" ini:"max_rounds"`
}

// Load reads a YAML or INI config file and returns a Config
func Load(path string) (*Config, error) {
	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini":
		if err := loadINI(path, cfg); err != nil {
			return nil, err
		}
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Apply defaults
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// validate rejects settings the trainer cannot run with
func validate(cfg *Config) error {
	// one output is read by sign, two by argmax; either way two actions
	if cfg.NN.Outputs != 1 && cfg.NN.Outputs != 2 {
		return fmt.Errorf("nn.outputs must be 1 or 2, got %d", cfg.NN.Outputs)
	}
	for _, size := range cfg.NN.Hidden {
		if size <= 0 {
			return fmt.Errorf("nn.hidden sizes must be positive, got %v", cfg.NN.Hidden)
		}
	}
	if cfg.GA.Population < 2 {
		return fmt.Errorf("ga.population must be at least 2, got %d", cfg.GA.Population)
	}
	return nil
}

// Default returns a config with every default applied
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func loadINI(path string, cfg *Config) error {
	file, err := ini.Load(path)
	if err != nil {
		return err
	}
	cfg.Seed = file.Section("").Key("seed").MustInt64(0)

	sections := []struct {
		name string
		dst  interface{}
	}{
		{"physics", &cfg.Physics},
		{"nn", &cfg.NN},
		{"ga", &cfg.GA},
		{"eval", &cfg.Eval},
		{"fitness", &cfg.Fitness},
		{"logging", &cfg.Logging},
		{"storage", &cfg.Storage},
		{"supervised", &cfg.Supervised},
	}
	for _, s := range sections {
		if !file.HasSection(s.name) {
			continue
		}
		if err := file.Section(s.name).MapTo(s.dst); err != nil {
			return fmt.Errorf("section [%s]: %w", s.name, err)
		}
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Seed == 0 {
		cfg.Seed = 1337
	}
	if cfg.Physics.Integrator == "" {
		cfg.Physics.Integrator = "euler"
	}
	if cfg.Physics.ResetBound == 0 {
		cfg.Physics.ResetBound = env.StrictResetBound
	}
	if len(cfg.NN.Hidden) == 0 {
		cfg.NN.Hidden = []int{4}
	}
	if cfg.NN.Outputs == 0 {
		cfg.NN.Outputs = 1
	}
	if cfg.NN.Activation == "" {
		cfg.NN.Activation = "hardtanh"
	}
	if cfg.NN.Features == "" {
		cfg.NN.Features = "raw"
	}
	if cfg.GA.Population == 0 {
		cfg.GA.Population = 1000
	}
	if cfg.GA.MutationChance == 0 {
		cfg.GA.MutationChance = 10
	}
	if cfg.GA.MutationMagnitude == 0 {
		cfg.GA.MutationMagnitude = 1
	}
	if cfg.GA.RandomPercent == 0 {
		cfg.GA.RandomPercent = 2
	}

	if cfg.Eval.BenchmarkEvery == 0 {
		cfg.Eval.BenchmarkEvery = 100
	}
	if cfg.Eval.BenchmarkTopK == 0 {
		cfg.Eval.BenchmarkTopK = 5
	}
	if len(cfg.Eval.BenchmarkSeeds) == 0 {
		cfg.Eval.BenchmarkSeeds = []int64{1001, 1002, 1003, 1004, 1005}
	}

	defaults := env.DefaultFitnessWeights()
	if cfg.Fitness.StepWeight == 0 {
		cfg.Fitness.StepWeight = defaults.StepWeight
	}
	if cfg.Fitness.SpeedPenalty == 0 {
		cfg.Fitness.SpeedPenalty = defaults.SpeedPenalty
	}
	if cfg.Fitness.AnglePenalty == 0 {
		cfg.Fitness.AnglePenalty = defaults.AnglePenalty
	}
	if cfg.Fitness.WinBonus == 0 {
		cfg.Fitness.WinBonus = defaults.WinBonus
	}
	if cfg.Fitness.AgeBonus == 0 {
		cfg.Fitness.AgeBonus = defaults.AgeBonus
	}
	if cfg.Fitness.LossPenalty == 0 {
		cfg.Fitness.LossPenalty = defaults.LossPenalty
	}

	if cfg.Logging.TopNDebug == 0 {
		cfg.Logging.TopNDebug = 5
	}
	if cfg.Logging.SaveChampionEvery == 0 {
		cfg.Logging.SaveChampionEvery = 250
	}
	if cfg.Logging.ReplayEvery == 0 {
		cfg.Logging.ReplayEvery = 500
	}
	if cfg.Logging.CSVPath == "" {
		cfg.Logging.CSVPath = "runs/run.csv"
	}
	if cfg.Logging.JSONPath == "" {
		cfg.Logging.JSONPath = "runs/run.jsonl"
	}
	if cfg.Logging.ArtifactsDir == "" {
		cfg.Logging.ArtifactsDir = "artifacts"
	}
	if cfg.Storage.RunID == "" {
		cfg.Storage.RunID = "default"
	}

	if len(cfg.Supervised.Hidden) == 0 {
		cfg.Supervised.Hidden = []int{16}
	}
	if cfg.Supervised.LearningRate == 0 {
		cfg.Supervised.LearningRate = 0.01
	}
	if cfg.Supervised.ImageWidth == 0 {
		cfg.Supervised.ImageWidth = 16
	}
	if cfg.Supervised.ImageHeight == 0 {
		cfg.Supervised.ImageHeight = 16
	}
	if cfg.Supervised.SweepMin == 0 && cfg.Supervised.SweepMax == 0 {
		cfg.Supervised.SweepMin = -30
		cfg.Supervised.SweepMax = 30
	}
	if cfg.Supervised.SweepStep == 0 {
		cfg.Supervised.SweepStep = 1
	}
	if cfg.Supervised.MaxIterations == 0 {
		cfg.Supervised.MaxIterations = 10000
	}
	if cfg.Supervised.MaxRounds == 0 {
		cfg.Supervised.MaxRounds = 100000
	}
}

// Layers returns the full layer list of the evolved network
func (c *Config) Layers() []int {
	layers := []int{env.ObsDim}
	layers = append(layers, c.NN.Hidden...)
	return append(layers, c.NN.Outputs)
}

// EnvOptions converts the physics section into environment options
func (c *Config) EnvOptions() (env.Options, error) {
	integrator, err := env.ParseIntegrator(c.Physics.Integrator)
	if err != nil {
		return env.Options{}, err
	}
	return env.Options{
		Integrator:  integrator,
		ResetBound:  c.Physics.ResetBound,
		StrictReset: c.Physics.StrictReset,
	}, nil
}

// NetworkOptions converts the nn section into network options
func (c *Config) NetworkOptions() (nn.Options, error) {
	act, err := nn.GetActivation(c.NN.Activation)
	if err != nil {
		return nn.Options{}, err
	}
	return nn.Options{Activation: act}, nil
}
