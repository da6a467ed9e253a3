package config

import (
	"strings"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`{}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Models.Architect != defaultArchitectModel {
		t.Errorf("Models.Architect = %q, want default", cfg.Models.Architect)
	}
	if cfg.Endpoints.Local != defaultLocalEndpoint {
		t.Errorf("Endpoints.Local = %q, want default", cfg.Endpoints.Local)
	}
	if cfg.Settings.MaxAttempts != defaultMaxAttempts {
		t.Errorf("Settings.MaxAttempts = %d, want %d", cfg.Settings.MaxAttempts, defaultMaxAttempts)
	}
	if len(cfg.Settings.HealthCommands) != 1 || cfg.Settings.HealthCommands[0] != "make test" {
		t.Errorf("Settings.HealthCommands = %v, want [make test]", cfg.Settings.HealthCommands)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/scriptorium.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Settings.LogLevel != defaultLogLevel {
		t.Errorf("LogLevel = %q, want default", cfg.Settings.LogLevel)
	}
}

func TestParsePartialOverridesOnlySetFields(t *testing.T) {
	cfg, err := Parse([]byte(`{"models":{"coding":"claude-opus-4"},"settings":{"maxAttempts":5}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Models.Coding != "claude-opus-4" {
		t.Errorf("Models.Coding = %q", cfg.Models.Coding)
	}
	if cfg.Models.Architect != defaultArchitectModel {
		t.Errorf("Models.Architect should still default, got %q", cfg.Models.Architect)
	}
	if cfg.Settings.MaxAttempts != 5 {
		t.Errorf("Settings.MaxAttempts = %d, want 5", cfg.Settings.MaxAttempts)
	}
	if cfg.Settings.PollIntervalMs != defaultPollIntervalMs {
		t.Errorf("PollIntervalMs should default, got %d", cfg.Settings.PollIntervalMs)
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cfg, _ := Parse([]byte(`{"settings":{"maxAttempts":0,"pollIntervalMs":0,"logLevel":"VERBOSE"},"endpoints":{"local":"notaurl"}}`))
	errs := Validate(cfg)
	if len(errs) == 0 {
		t.Fatal("expected validation errors")
	}
	joined := ""
	for _, e := range errs {
		joined += e.Error() + "\n"
	}
	for _, want := range []string{"maxAttempts", "pollIntervalMs", "logLevel", "endpoints.local"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected error mentioning %q, got:\n%s", want, joined)
		}
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg, _ := Parse([]byte(`{}`))
	if errs := Validate(cfg); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}
