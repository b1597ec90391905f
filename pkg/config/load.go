package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Use LoadConfigWithEnvOverrides to also honor environment variables.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention SATURN_SECTION_FIELD (e.g., SATURN_SERVER_LISTEN_ADDRESS) and
// always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies SATURN_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("SATURN_STORE_BACKEND"); val != "" {
		cfg.Store.Backend = val
	}
	if val := os.Getenv("SATURN_STORE_PATH"); val != "" {
		cfg.Store.Path = val
	}

	if val := os.Getenv("SATURN_AUDIT_BACKEND"); val != "" {
		cfg.Audit.Backend = val
	}
	if val := os.Getenv("SATURN_AUDIT_PATH"); val != "" {
		cfg.Audit.Path = val
	}
	if val := os.Getenv("SATURN_AUDIT_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Audit.RetentionDays = i
		}
	}
	if val := os.Getenv("SATURN_AUDIT_PRUNE_SCHEDULE"); val != "" {
		cfg.Audit.PruneSchedule = val
	}

	if val := os.Getenv("SATURN_RATES_PATH"); val != "" {
		cfg.Rates.Path = val
	}
	if val := os.Getenv("SATURN_RATES_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Rates.Watch = b
		}
	}

	if val := os.Getenv("SATURN_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("SATURN_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("SATURN_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("SATURN_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}

	if val := os.Getenv("SATURN_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("SATURN_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("SATURN_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}

	if val := os.Getenv("SATURN_ORCHESTRATOR_PER_SOURCE_LIMIT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Orchestrator.PerSourceLimit = i
		}
	}
}
