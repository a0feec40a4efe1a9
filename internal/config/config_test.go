package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.CostModel.FragileBadPavement <= cfg.CostModel.BadPavement {
		t.Fatal("fragile multiplier must exceed the normal one")
	}
	if cfg.Simulator.TruckCapacityKg <= 0 || cfg.Server.Port == "" {
		t.Fatalf("incomplete defaults: %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("cost_model:\n  fragile_bad_pavement: 80\nsimulator:\n  truck_capacity_kg: 50\nserver:\n  port: \"9090\"\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CostModel.FragileBadPavement != 80 {
		t.Fatalf("file override lost: %v", cfg.CostModel.FragileBadPavement)
	}
	if cfg.Simulator.TruckCapacityKg != 50 {
		t.Fatalf("file override lost: %v", cfg.Simulator.TruckCapacityKg)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("file override lost: %v", cfg.Server.Port)
	}
	// Unset fields keep their defaults.
	if cfg.Optimizer.PopulationSize != Default().Optimizer.PopulationSize {
		t.Fatalf("default lost: %v", cfg.Optimizer.PopulationSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if _, err := Load(""); err != nil {
		t.Fatalf("empty path skips the file: %v", err)
	}
}

func TestSanitizedClampsNonsense(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("cost_model:\n  block_factor: 0.1\noptimizer:\n  mutation_rate: 5\nsimulator:\n  bad_pavement_slow: 2\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	d := Default()
	if cfg.CostModel.BlockFactor != d.CostModel.BlockFactor {
		t.Fatalf("block factor not clamped: %v", cfg.CostModel.BlockFactor)
	}
	if cfg.Optimizer.MutationRate != d.Optimizer.MutationRate {
		t.Fatalf("mutation rate not clamped: %v", cfg.Optimizer.MutationRate)
	}
	if cfg.Simulator.BadPavementSlow != d.Simulator.BadPavementSlow {
		t.Fatalf("pavement slowdown not clamped: %v", cfg.Simulator.BadPavementSlow)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("RATE_RPS", "9")
	t.Setenv("RATE_BURST", "12")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("PORT override lost: %v", cfg.Server.Port)
	}
	if cfg.Server.RateRPS != 9 || cfg.Server.RateBurst != 12 {
		t.Fatalf("rate overrides lost: %+v", cfg.Server)
	}
}
