// Package config loads and validates scriptorium.json: model selection per
// role, the MCP endpoint, and orchestrator-wide settings (timeouts, health
// commands, log level). Unlike the teacher's line.yaml, this file is JSON
// by spec mandate — see DESIGN.md for why that stays on encoding/json
// rather than a third-party parser.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the parsed contents of scriptorium.json. Every field is
// optional; missing fields fall back to the defaults applied in Load.
type Config struct {
	Models          Models    `json:"models"`
	ReasoningEffort Models    `json:"reasoningEffort"`
	Endpoints       Endpoints `json:"endpoints"`
	Settings        Settings  `json:"settings"`
}

// Models names the model (or reasoning effort) configured for each of the
// three generator roles.
type Models struct {
	Architect string `json:"architect"`
	Coding    string `json:"coding"`
	Manager   string `json:"manager"`
}

// Endpoints holds the address the in-process MCP server binds to.
type Endpoints struct {
	Local string `json:"local"`
}

// Settings holds the ambient/domain-stack defaults the distilled spec left
// implicit (SPEC_FULL.md §6 Expansion).
type Settings struct {
	TickIntervalMs    int      `json:"tickIntervalMs"`
	NoOutputTimeoutMs int      `json:"noOutputTimeoutMs"`
	HardTimeoutMs     int      `json:"hardTimeoutMs"`
	MaxAttempts       int      `json:"maxAttempts"`
	PollIntervalMs    int      `json:"pollIntervalMs"`
	HealthCommands    []string `json:"healthCommands"`
	LogLevel          string   `json:"logLevel"`
}

const (
	defaultLocalEndpoint      = "http://127.0.0.1:8097"
	defaultTickIntervalMs     = 200
	defaultNoOutputTimeoutMs  = 120000
	defaultHardTimeoutMs      = 1800000
	defaultMaxAttempts        = 2
	defaultPollIntervalMs     = 100
	defaultLogLevel           = "INFO"
	defaultArchitectModel     = "codex-5"
	defaultCodingModel        = "codex-5"
	defaultManagerModel       = "codex-5"
	defaultReasoningEffort    = "medium"
)

// Load reads and parses scriptorium.json at path, applying defaults for any
// missing field. A missing file is not an error at this layer — callers
// that require a config should check os.IsNotExist themselves; Load returns
// the zero Config with defaults applied in that case so tests and `status`
// style commands can run against an un-configured repo.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return applyDefaults(&Config{}), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse parses raw JSON bytes into a Config. Fields absent from data keep
// their defaults; fields present in data, even as zero or empty values, are
// kept as given and left for Validate to judge.
func Parse(data []byte) (*Config, error) {
	cfg := applyDefaults(&Config{})
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing scriptorium.json: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) *Config {
	if cfg.Models.Architect == "" {
		cfg.Models.Architect = defaultArchitectModel
	}
	if cfg.Models.Coding == "" {
		cfg.Models.Coding = defaultCodingModel
	}
	if cfg.Models.Manager == "" {
		cfg.Models.Manager = defaultManagerModel
	}
	if cfg.ReasoningEffort.Architect == "" {
		cfg.ReasoningEffort.Architect = defaultReasoningEffort
	}
	if cfg.ReasoningEffort.Coding == "" {
		cfg.ReasoningEffort.Coding = defaultReasoningEffort
	}
	if cfg.ReasoningEffort.Manager == "" {
		cfg.ReasoningEffort.Manager = defaultReasoningEffort
	}
	if cfg.Endpoints.Local == "" {
		cfg.Endpoints.Local = defaultLocalEndpoint
	}
	if cfg.Settings.TickIntervalMs == 0 {
		cfg.Settings.TickIntervalMs = defaultTickIntervalMs
	}
	if cfg.Settings.NoOutputTimeoutMs == 0 {
		cfg.Settings.NoOutputTimeoutMs = defaultNoOutputTimeoutMs
	}
	if cfg.Settings.HardTimeoutMs == 0 {
		cfg.Settings.HardTimeoutMs = defaultHardTimeoutMs
	}
	if cfg.Settings.MaxAttempts == 0 {
		cfg.Settings.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Settings.PollIntervalMs == 0 {
		cfg.Settings.PollIntervalMs = defaultPollIntervalMs
	}
	if len(cfg.Settings.HealthCommands) == 0 {
		cfg.Settings.HealthCommands = []string{"make test"}
	}
	if cfg.Settings.LogLevel == "" {
		cfg.Settings.LogLevel = defaultLogLevel
	}
	return cfg
}

// Validate returns all structural problems with cfg. An empty slice means
// cfg is usable.
func Validate(cfg *Config) []error {
	var errs []error

	if cfg.Settings.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("settings.maxAttempts must be >= 1"))
	}
	if cfg.Settings.TickIntervalMs < 0 {
		errs = append(errs, fmt.Errorf("settings.tickIntervalMs must be >= 0"))
	}
	if cfg.Settings.PollIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("settings.pollIntervalMs must be > 0"))
	}
	if len(cfg.Settings.HealthCommands) == 0 {
		errs = append(errs, fmt.Errorf("settings.healthCommands must not be empty"))
	}
	if _, _, err := ParseEndpoint(cfg.Endpoints.Local); err != nil {
		errs = append(errs, fmt.Errorf("endpoints.local: %w", err))
	}
	switch cfg.Settings.LogLevel {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		errs = append(errs, fmt.Errorf("settings.logLevel must be one of DEBUG, INFO, WARN, ERROR"))
	}

	return errs
}
