package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.DefaultProvider != "local-daemon" {
		t.Errorf("DefaultProvider = %q, want local-daemon", cfg.DefaultProvider)
	}
	if cfg.DaemonHost != "localhost" || cfg.DaemonPort != 8013 {
		t.Errorf("daemon defaults = %s:%d, want localhost:8013", cfg.DaemonHost, cfg.DaemonPort)
	}
	if cfg.DaemonTLS {
		t.Error("DaemonTLS should default to false")
	}
	if cfg.TargetingOnlineInitTimeout != 3*time.Second {
		t.Errorf("TargetingOnlineInitTimeout = %v, want 3s", cfg.TargetingOnlineInitTimeout)
	}
	if cfg.SegmentOnlineTimeout != 3*time.Second {
		t.Errorf("SegmentOnlineTimeout = %v, want 3s", cfg.SegmentOnlineTimeout)
	}
	if cfg.TargetingSDKKey != "dummy-offline-sdk-key" {
		t.Errorf("TargetingSDKKey = %q", cfg.TargetingSDKKey)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DEFAULT_PROVIDER", "segment-file")
	t.Setenv("DAEMON_PORT", "9999")
	t.Setenv("TARGETING_ONLINE_SEND_EVENTS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultProvider != "segment-file" {
		t.Errorf("DefaultProvider = %q, want segment-file", cfg.DefaultProvider)
	}
	if cfg.DaemonPort != 9999 {
		t.Errorf("DaemonPort = %d, want 9999", cfg.DaemonPort)
	}
	if !cfg.TargetingOnlineSendEvents {
		t.Error("TargetingOnlineSendEvents should be true")
	}
}

func TestKnownProvider(t *testing.T) {
	for _, name := range []string{
		"local-daemon", "targeting-file", "targeting-online",
		"simple-file", "segment-file", "segment-online",
	} {
		if !KnownProvider(name) {
			t.Errorf("KnownProvider(%q) = false, want true", name)
		}
	}
	if KnownProvider("launchdarkly") {
		t.Error("KnownProvider should reject names outside the closed set")
	}
	if KnownProvider("") {
		t.Error("KnownProvider should reject empty name")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DefaultProvider:            "local-daemon",
			HTTPAddr:                   ":8080",
			MetricsAddr:                ":9090",
			DaemonPort:                 8013,
			TargetingOnlineInitTimeout: time.Second,
			SegmentOnlineTimeout:       time.Second,
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown default provider", func(c *Config) { c.DefaultProvider = "nope" }, "DEFAULT_PROVIDER"},
		{"empty http addr", func(c *Config) { c.HTTPAddr = "" }, "HTTP_ADDR"},
		{"empty metrics addr", func(c *Config) { c.MetricsAddr = "" }, "METRICS_ADDR"},
		{"bad daemon port", func(c *Config) { c.DaemonPort = 0 }, "DAEMON_PORT"},
		{"zero init timeout", func(c *Config) { c.TargetingOnlineInitTimeout = 0 }, "TARGETING_ONLINE_INIT_TIMEOUT"},
		{"zero request timeout", func(c *Config) { c.SegmentOnlineTimeout = 0 }, "SEGMENT_ONLINE_TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			ve, ok := err.(ValidationError)
			if !ok {
				t.Fatalf("error type = %T, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}
