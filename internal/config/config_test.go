package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "streaming"
	cfg.Data.PriceScale = 0
	cfg.Engine.InitialCash = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid config accepted")
	}
	for _, want := range []string{"unknown mode", "price_scale", "initial_cash"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %q: %v", want, err)
		}
	}
}

func TestValidateBacktestNeedsSnapshots(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "backtest"
	cfg.Data.SnapshotsPath = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("backtest without snapshots_path accepted")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LOBSIM_DATA_ASSET", "GARAN.E")
	t.Setenv("LOBSIM_LATENCY_MEAN", "75ms")
	t.Setenv("LOBSIM_POSTGRES_ENABLED", "true")
	t.Setenv("LOBSIM_ENGINE_INITIAL_CASH", "250000")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Data.Asset != "GARAN.E" {
		t.Errorf("asset = %q", cfg.Data.Asset)
	}
	if cfg.Latency.Mean.Duration != 75*time.Millisecond {
		t.Errorf("latency mean = %v", cfg.Latency.Mean.Duration)
	}
	if !cfg.Postgres.Enabled {
		t.Error("postgres enabled override ignored")
	}
	if cfg.Engine.InitialCash != 250000 {
		t.Errorf("initial cash = %v", cfg.Engine.InitialCash)
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	var d duration
	if err := d.UnmarshalText([]byte("1.5s")); err != nil {
		t.Fatal(err)
	}
	if d.Duration != 1500*time.Millisecond {
		t.Fatalf("duration = %v", d.Duration)
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Fatal("bad duration accepted")
	}
}
