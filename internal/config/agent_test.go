package config

import (
	"testing"
	"time"
)

func clearAgentEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ADDRESS", "STORE_USERNAME", "STORE_PASSWORD",
		"ORG", "BUCKET", "POLL_INTERVAL", "VENDOR_FILTER", "STATUS_ADDRESS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadAgentConfig_Defaults(t *testing.T) {
	clearAgentEnv(t)

	cfg, err := LoadAgentConfig(nil, nil)
	if err != nil {
		t.Fatalf("LoadAgentConfig: %v", err)
	}
	if cfg.Endpoint != "http://localhost:8086" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.Username != "development" || cfg.Password != "development" {
		t.Errorf("credentials = %q/%q", cfg.Username, cfg.Password)
	}
	if cfg.Org != "development" || cfg.Bucket != "development" {
		t.Errorf("org/bucket = %q/%q", cfg.Org, cfg.Bucket)
	}
	if cfg.PollInterval != 3000*time.Millisecond {
		t.Errorf("PollInterval = %v, want 3s", cfg.PollInterval)
	}
	if cfg.VendorFilter != "" || cfg.StatusAddress != "" {
		t.Errorf("VendorFilter/StatusAddress = %q/%q, want empty", cfg.VendorFilter, cfg.StatusAddress)
	}
}

func TestLoadAgentConfig_Flags(t *testing.T) {
	clearAgentEnv(t)

	cfg, err := LoadAgentConfig([]string{
		"-a", "store.local:9999",
		"-u", "admin", "-w", "hunter2",
		"-o", "ops", "-b", "telemetry",
		"-p", "500",
		"-g", "VendorX",
		"-s", ":8099",
	}, nil)
	if err != nil {
		t.Fatalf("LoadAgentConfig: %v", err)
	}
	if cfg.Endpoint != "http://store.local:9999" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.Username != "admin" || cfg.Password != "hunter2" {
		t.Errorf("credentials = %q/%q", cfg.Username, cfg.Password)
	}
	if cfg.Org != "ops" || cfg.Bucket != "telemetry" {
		t.Errorf("org/bucket = %q/%q", cfg.Org, cfg.Bucket)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 500ms", cfg.PollInterval)
	}
	if cfg.VendorFilter != "VendorX" {
		t.Errorf("VendorFilter = %q", cfg.VendorFilter)
	}
	if cfg.StatusAddress != ":8099" {
		t.Errorf("StatusAddress = %q", cfg.StatusAddress)
	}
}

func TestLoadAgentConfig_EnvBeatsFlag(t *testing.T) {
	clearAgentEnv(t)
	t.Setenv("ADDRESS", "https://env-store:8086")
	t.Setenv("ORG", "env-org")
	t.Setenv("POLL_INTERVAL", "1500")

	cfg, err := LoadAgentConfig([]string{"-a", "flag-store:1", "-o", "flag-org", "-p", "42"}, nil)
	if err != nil {
		t.Fatalf("LoadAgentConfig: %v", err)
	}
	if cfg.Endpoint != "https://env-store:8086" {
		t.Errorf("Endpoint = %q, env must win", cfg.Endpoint)
	}
	if cfg.Org != "env-org" {
		t.Errorf("Org = %q, env must win", cfg.Org)
	}
	if cfg.PollInterval != 1500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 1.5s", cfg.PollInterval)
	}
}

func TestLoadAgentConfig_PollDurationSyntax(t *testing.T) {
	clearAgentEnv(t)
	t.Setenv("POLL_INTERVAL", "2s")

	cfg, err := LoadAgentConfig(nil, nil)
	if err != nil {
		t.Fatalf("LoadAgentConfig: %v", err)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s", cfg.PollInterval)
	}
}

func TestLoadAgentConfig_InvalidPollInterval(t *testing.T) {
	clearAgentEnv(t)
	t.Setenv("POLL_INTERVAL", "soon")

	if _, err := LoadAgentConfig(nil, nil); err == nil {
		t.Fatal("expected error for unparseable poll interval")
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	clearAgentEnv(t)

	tests := []struct {
		in   string
		want string
	}{
		{"localhost:8086", "http://localhost:8086"},
		{":8086", "http://localhost:8086"},
		{"https://store", "https://store"},
		{"", "http://localhost:8086"},
	}
	for _, tt := range tests {
		if got := normalizeEndpoint(tt.in); got != tt.want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
