package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "colony.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.Orchestrator.FreshnessWindow != 5*time.Minute || cfg.Orchestrator.MaxConcurrentOps != 5 {
		t.Errorf("orchestrator = %+v", cfg.Orchestrator)
	}
	if cfg.Strategy.ExpansionThreshold != 0.8 || cfg.Strategy.GapThreshold != 10 {
		t.Errorf("strategy = %+v", cfg.Strategy)
	}
	if len(cfg.Settlements) != 1 || cfg.Settlements[0].ID != "luna-1" {
		t.Errorf("settlements = %+v", cfg.Settlements)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
tick_interval: 250ms
concurrency: 0
orchestrator:
  freshness_window: 2m
  max_concurrent_operations: 8
  exempt_idle_services: true
retry:
  auto_retry: false
  max_attempts: -4
flowsim:
  overrun_days: 10
settlements:
  - id: " mars-1 "
    system_id: sol
    balance: 100
  - id: ceres-1
    name: Occator Station
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TickInterval != 250*time.Millisecond || cfg.Concurrency != 1 {
		t.Errorf("tick %v, concurrency %d", cfg.TickInterval, cfg.Concurrency)
	}
	if cfg.Orchestrator.FreshnessWindow != 2*time.Minute || cfg.Orchestrator.MaxConcurrentOps != 8 || cfg.Orchestrator.QueueCritical != 5 || !cfg.Orchestrator.ExemptIdle {
		t.Errorf("orchestrator = %+v", cfg.Orchestrator)
	}
	if cfg.Retry.AutoRetry || cfg.Retry.MaxAttempts != 0 {
		t.Errorf("retry = %+v", cfg.Retry)
	}
	if cfg.FlowSim.OverrunDays != 10 || cfg.FlowSim.CriticalFloor != 0.1 {
		t.Errorf("flowsim = %+v", cfg.FlowSim)
	}
	if cfg.Heuristic.OxygenCriticalRatio != 0.15 {
		t.Errorf("heuristic default lost: %+v", cfg.Heuristic)
	}
	if len(cfg.Settlements) != 2 {
		t.Fatalf("settlements = %+v", cfg.Settlements)
	}
	if s := cfg.Settlements[0]; s.ID != "mars-1" || s.Name != "mars-1" || s.Balance != 100 {
		t.Errorf("first settlement = %+v", s)
	}
	if cfg.Settlements[1].Name != "Occator Station" {
		t.Errorf("second settlement = %+v", cfg.Settlements[1])
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"duplicate settlement", "settlements:\n  - id: a\n  - id: a\n"},
		{"blank settlement id", "settlements:\n  - name: nameless\n"},
		{"no settlements", "settlements: []\n"},
		{"inverted floors", "flowsim:\n  critical_floor: 0.6\n  low_floor: 0.5\n"},
		{"ratio out of range", "heuristic:\n  oxygen_critical_ratio: 1.5\n"},
		{"inverted queue boosts", "orchestrator:\n  queue_high: 9\n  queue_critical: 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
		})
	}

	if _, err := Load(writeConfig(t, "tick_interval: [1, 2]\n")); err == nil || errors.Is(err, ErrInvalid) {
		t.Errorf("malformed yaml err = %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}
