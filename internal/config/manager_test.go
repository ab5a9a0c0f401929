package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadCreatesDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	mgr := NewManager(path)

	if err := mgr.Load(); err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("defaults were not written: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), mgr.Get()); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	mgr := NewManager(path)
	if err := mgr.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Home = Home{Country: "DE", ISP: "Telekom", DynDNS: "home.example.org"}
	cfg.Routing.AllowedInterfaces = []string{"wg0", "tun0"}
	cfg.Public.Enabled = true
	if err := mgr.Update(cfg); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	fresh := NewManager(path)
	if err := fresh.Load(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if diff := cmp.Diff(cfg, fresh.Get()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadAppliesDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := "version: 1\ncheck_interval: 7\nhome:\n  country: DE\n"
	if err := os.WriteFile(path, []byte(partial), 0600); err != nil {
		t.Fatal(err)
	}

	mgr := NewManager(path)
	if err := mgr.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	cfg := mgr.Get()
	if cfg.CheckInterval != 7 || cfg.Home.Country != "DE" {
		t.Fatalf("explicit values lost: %+v", cfg)
	}
	if cfg.Public.Provider != "smart" || cfg.DNS.Interval != 120 {
		t.Fatalf("missing fields did not default: %+v", cfg)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	bad := "version: 1\npublic:\n  interval: 60\n  provider: smart\n  strategy: nonsense\n"
	if err := os.WriteFile(path, []byte(bad), 0600); err != nil {
		t.Fatal(err)
	}

	if err := NewManager(path).Load(); err == nil {
		t.Fatalf("invalid config must be rejected")
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero check interval", func(c *Config) { c.CheckInterval = 0 }},
		{"unknown detection mode", func(c *Config) { c.Routing.DetectionMode = "turbo" }},
		{"unknown strategy", func(c *Config) { c.Public.Strategy = "vibes" }},
		{"unknown provider", func(c *Config) { c.Public.Provider = "psychic" }},
		{"custom without url", func(c *Config) { c.Public.Provider = "custom" }},
		{"zero public interval", func(c *Config) { c.Public.Interval = 0 }},
		{"zero dns interval", func(c *Config) { c.DNS.Interval = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
