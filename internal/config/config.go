package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Simulation SimulationConfig `yaml:"simulation"`
	Controller ControllerConfig `yaml:"controller"`
	Capsule    CapsuleConfig    `yaml:"capsule"`
	Gravity    []float64        `yaml:"gravity"`
	Console    ConsoleConfig    `yaml:"console"`
	Batch      BatchConfig      `yaml:"batch"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type SimulationConfig struct {
	DT       float64 `yaml:"dt"`
	Ticks    int     `yaml:"ticks"`
	TraceDir string  `yaml:"trace_dir"`
}

// ControllerConfig uses pointers so an explicit 0 is kept. Both are set after
// ApplyDefaults.
type ControllerConfig struct {
	Speed      *float64 `yaml:"speed"`
	JumpHeight *float64 `yaml:"jump_height"`
}

type CapsuleConfig struct {
	Radius     float64 `yaml:"radius"`
	Height     float64 `yaml:"height"`
	SkinWidth  float64 `yaml:"skin_width"`
	SlopeLimit float64 `yaml:"slope_limit"`
}

type ConsoleConfig struct {
	TickIntervalMs int `yaml:"tick_interval_ms"`
	MovePulseMs    int `yaml:"move_pulse_ms"`
}

type BatchConfig struct {
	Workers int `yaml:"workers"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every unset field. Zero gravity must be written out
// explicitly as [0, 0, 0].
func (c *Config) ApplyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Simulation.DT <= 0 {
		c.Simulation.DT = 1.0 / 60
	}
	if c.Simulation.Ticks <= 0 {
		c.Simulation.Ticks = 600
	}
	if c.Controller.Speed == nil {
		c.Controller.Speed = Float(2.0)
	}
	if c.Controller.JumpHeight == nil {
		c.Controller.JumpHeight = Float(1.0)
	}
	if c.Capsule.Radius <= 0 {
		c.Capsule.Radius = 0.5
	}
	if c.Capsule.Height <= 0 {
		c.Capsule.Height = 2.0
	}
	if c.Capsule.SkinWidth == 0 {
		c.Capsule.SkinWidth = 0.08
	}
	if c.Capsule.SlopeLimit == 0 {
		c.Capsule.SlopeLimit = 45
	}
	if c.Gravity == nil {
		c.Gravity = []float64{0, -9.81, 0}
	}
	if c.Console.TickIntervalMs <= 0 {
		c.Console.TickIntervalMs = 50
	}
	if c.Console.MovePulseMs <= 0 {
		c.Console.MovePulseMs = 150
	}
	if c.Batch.Workers <= 0 {
		c.Batch.Workers = 4
	}
}

func (c *Config) Validate() error {
	if len(c.Gravity) != 3 {
		return fmt.Errorf("config: gravity needs 3 components, got %d", len(c.Gravity))
	}
	if c.Capsule.Height < 2*c.Capsule.Radius {
		return fmt.Errorf("config: capsule height %.3f is below its diameter", c.Capsule.Height)
	}
	if c.Capsule.SkinWidth < 0 {
		return fmt.Errorf("config: capsule skin_width must not be negative")
	}
	if c.Controller.Speed != nil && *c.Controller.Speed < 0 {
		return fmt.Errorf("config: controller speed must not be negative")
	}
	if c.Controller.JumpHeight != nil && *c.Controller.JumpHeight < 0 {
		return fmt.Errorf("config: controller jump_height must not be negative")
	}
	return nil
}

func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
