package config

import "time"

// Config is the root configuration for the service.
type Config struct {
	// Store configures budget state persistence.
	Store StoreConfig `yaml:"store"`

	// Audit configures the cost event and alert trail.
	Audit AuditConfig `yaml:"audit"`

	// Rates configures operation unit cost overrides.
	Rates RatesConfig `yaml:"rates"`

	// Server configures the admin HTTP server.
	Server ServerConfig `yaml:"server"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Orchestrator configures lead source runs.
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
}

// StoreConfig configures budget state persistence.
type StoreConfig struct {
	// Backend selects the store implementation ("memory" or "sqlite").
	Backend string `yaml:"backend"`

	// Path is the SQLite database file for the sqlite backend.
	Path string `yaml:"path"`
}

// AuditConfig configures the audit trail.
type AuditConfig struct {
	// Backend selects the store implementation ("memory" or "sqlite").
	Backend string `yaml:"backend"`

	// Path is the SQLite database file for the sqlite backend.
	Path string `yaml:"path"`

	// RetentionDays is how long records are kept. Zero disables pruning.
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is the cron expression for the retention job.
	// Empty disables the scheduler.
	PruneSchedule string `yaml:"prune_schedule"`
}

// RatesConfig configures operation unit cost overrides.
type RatesConfig struct {
	// Path is a YAML file with unit cost overrides. Empty uses the
	// built-in rates.
	Path string `yaml:"path"`

	// Watch reloads the overrides file when it changes.
	Watch bool `yaml:"watch"`
}

// ServerConfig configures the admin HTTP server.
type ServerConfig struct {
	// ListenAddress is the host:port to bind.
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout, WriteTimeout and IdleTimeout are the HTTP server timeouts.
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig configures logging and metrics.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	Format string `yaml:"format"`

	// AddSource includes file and line number in logs.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled serves the metrics endpoint when true.
	Enabled bool `yaml:"enabled"`
}

// OrchestratorConfig configures lead source runs.
type OrchestratorConfig struct {
	// PerSourceLimit is the maximum leads requested per source per run.
	PerSourceLimit int `yaml:"per_source_limit"`
}
