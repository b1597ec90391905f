package config

import "time"

// Default values applied to unset fields.
const (
	DefaultStoreBackend  = "memory"
	DefaultAuditBackend  = "memory"
	DefaultListenAddress = "127.0.0.1:8080"
	DefaultRetentionDays = 90
	DefaultPruneSchedule = "0 3 * * *"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "json"
	DefaultSourceLimit   = 100
)

// ApplyDefaults fills in default values for unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = DefaultStoreBackend
	}
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = DefaultRetentionDays
	}
	if cfg.Audit.PruneSchedule == "" {
		cfg.Audit.PruneSchedule = DefaultPruneSchedule
	}

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}

	if cfg.Orchestrator.PerSourceLimit == 0 {
		cfg.Orchestrator.PerSourceLimit = DefaultSourceLimit
	}
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
