// Package config loads service configuration from an optional YAML file with
// environment overrides. Every policy constant of the cost model, the
// optimizer, and the simulator is tunable here rather than hard-coded.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// CostModel holds the edge-cost multipliers used by the adaptive navigator.
// All factors are large but finite so the cost graph stays connected: a
// blocked or fragile-hostile edge is a last resort, never impossible.
type CostModel struct {
	BlockFactor        float64 `yaml:"block_factor"`         // blocked road multiplier
	BadPavement        float64 `yaml:"bad_pavement"`         // bad pavement, normal cargo
	FragileBadPavement float64 `yaml:"fragile_bad_pavement"` // bad pavement, fragile cargo
}

// Optimizer holds the genetic-search parameters.
type Optimizer struct {
	PopulationSize   int     `yaml:"population_size"`
	Generations      int     `yaml:"generations"`
	StallLimit       int     `yaml:"stall_limit"` // generations without improvement before cutoff
	MutationRate     float64 `yaml:"mutation_rate"`
	TournamentK      int     `yaml:"tournament_k"`
	Elite            int     `yaml:"elite"`
	Workers          int     `yaml:"workers"` // parallel fitness workers, <=1 means sequential
	TwoOptIterations int     `yaml:"two_opt_iterations"`
	FragilePenalty   float64 `yaml:"fragile_penalty"` // early-position penalty for fragile orders
}

// Simulator holds physical-execution constants.
type Simulator struct {
	TruckCapacityKg  float64 `yaml:"truck_capacity_kg"`
	DefaultSpeedKph  float64 `yaml:"default_speed_kph"`
	MinSpeedKph      float64 `yaml:"min_speed_kph"`
	BadPavementSlow  float64 `yaml:"bad_pavement_slow"`  // speed factor on bad pavement
	BlockStallMin    float64 `yaml:"block_stall_min"`    // minutes lost per blocked edge
	IntegrityPer100m float64 `yaml:"integrity_per_100m"` // % damage per 100m of bad pavement
	FuelCostPerKm    float64 `yaml:"fuel_cost_per_km"`
}

type Server struct {
	Port      string  `yaml:"port"`
	RateRPS   float64 `yaml:"rate_rps"`
	RateBurst int     `yaml:"rate_burst"`
}

type Config struct {
	CostModel CostModel `yaml:"cost_model"`
	Optimizer Optimizer `yaml:"optimizer"`
	Simulator Simulator `yaml:"simulator"`
	Server    Server    `yaml:"server"`
}

// Default returns the baseline configuration. The fragile bad-pavement
// multiplier is deliberately a policy knob: raising it increases detour
// propensity, lowering it shortens routes at the expense of cargo integrity.
func Default() Config {
	return Config{
		CostModel: CostModel{
			BlockFactor:        15,
			BadPavement:        1.4,
			FragileBadPavement: 40,
		},
		Optimizer: Optimizer{
			PopulationSize:   50,
			Generations:      50,
			StallLimit:       15,
			MutationRate:     0.1,
			TournamentK:      3,
			Elite:            2,
			Workers:          1,
			TwoOptIterations: 3,
			FragilePenalty:   50,
		},
		Simulator: Simulator{
			TruckCapacityKg:  30,
			DefaultSpeedKph:  40,
			MinSpeedKph:      5,
			BadPavementSlow:  0.8,
			BlockStallMin:    120,
			IntegrityPer100m: 1.0,
			FuelCostPerKm:    0.85,
		},
		Server: Server{Port: "8080", RateRPS: 2, RateBurst: 5},
	}
}

// Load reads cfg from path (optional, "" skips the file), then applies
// environment overrides for deployment-level settings.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg.sanitized(), nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.Server.RateRPS = f
		}
	}
	if v := os.Getenv("RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Server.RateBurst = n
		}
	}
}

// sanitized clamps nonsense values back to the defaults so a sparse or
// hand-edited config file cannot wedge a run.
func (c Config) sanitized() Config {
	d := Default()
	if c.CostModel.BlockFactor < 1 {
		c.CostModel.BlockFactor = d.CostModel.BlockFactor
	}
	if c.CostModel.BadPavement < 1 {
		c.CostModel.BadPavement = d.CostModel.BadPavement
	}
	if c.CostModel.FragileBadPavement < 1 {
		c.CostModel.FragileBadPavement = d.CostModel.FragileBadPavement
	}
	if c.Optimizer.PopulationSize <= 0 {
		c.Optimizer.PopulationSize = d.Optimizer.PopulationSize
	}
	if c.Optimizer.Generations <= 0 {
		c.Optimizer.Generations = d.Optimizer.Generations
	}
	if c.Optimizer.StallLimit <= 0 {
		c.Optimizer.StallLimit = d.Optimizer.StallLimit
	}
	if c.Optimizer.MutationRate <= 0 || c.Optimizer.MutationRate > 1 {
		c.Optimizer.MutationRate = d.Optimizer.MutationRate
	}
	if c.Optimizer.TournamentK < 2 {
		c.Optimizer.TournamentK = d.Optimizer.TournamentK
	}
	if c.Optimizer.Elite < 0 {
		c.Optimizer.Elite = d.Optimizer.Elite
	}
	if c.Optimizer.Workers < 1 {
		c.Optimizer.Workers = 1
	}
	if c.Optimizer.FragilePenalty < 0 {
		c.Optimizer.FragilePenalty = d.Optimizer.FragilePenalty
	}
	if c.Simulator.TruckCapacityKg <= 0 {
		c.Simulator.TruckCapacityKg = d.Simulator.TruckCapacityKg
	}
	if c.Simulator.DefaultSpeedKph <= 0 {
		c.Simulator.DefaultSpeedKph = d.Simulator.DefaultSpeedKph
	}
	if c.Simulator.MinSpeedKph <= 0 {
		c.Simulator.MinSpeedKph = d.Simulator.MinSpeedKph
	}
	if c.Simulator.BadPavementSlow <= 0 || c.Simulator.BadPavementSlow > 1 {
		c.Simulator.BadPavementSlow = d.Simulator.BadPavementSlow
	}
	if c.Simulator.BlockStallMin < 0 {
		c.Simulator.BlockStallMin = d.Simulator.BlockStallMin
	}
	if c.Simulator.IntegrityPer100m < 0 {
		c.Simulator.IntegrityPer100m = d.Simulator.IntegrityPer100m
	}
	if c.Simulator.FuelCostPerKm < 0 {
		c.Simulator.FuelCostPerKm = d.Simulator.FuelCostPerKm
	}
	if c.Server.Port == "" {
		c.Server.Port = d.Server.Port
	}
	return c
}
