package config

import "fmt"

// Validate checks the configuration for errors.
func Validate(cfg *Config) error {
	switch cfg.Store.Backend {
	case "memory":
	case "sqlite":
		if cfg.Store.Path == "" {
			return fmt.Errorf("store: path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("store: unknown backend %q", cfg.Store.Backend)
	}

	switch cfg.Audit.Backend {
	case "memory":
	case "sqlite":
		if cfg.Audit.Path == "" {
			return fmt.Errorf("audit: path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("audit: unknown backend %q", cfg.Audit.Backend)
	}

	if cfg.Audit.RetentionDays < 0 {
		return fmt.Errorf("audit: retention_days cannot be negative")
	}

	if cfg.Server.ListenAddress == "" {
		return fmt.Errorf("server: listen_address is required")
	}
	if cfg.Server.ReadTimeout < 0 || cfg.Server.WriteTimeout < 0 ||
		cfg.Server.IdleTimeout < 0 || cfg.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server: timeouts cannot be negative")
	}

	if cfg.Orchestrator.PerSourceLimit < 0 {
		return fmt.Errorf("orchestrator: per_source_limit cannot be negative")
	}

	return nil
}
