// Package config defines the service configuration.
//
// Configuration is loaded from a YAML file, filled in with defaults,
// optionally overridden by SATURN_* environment variables, and validated.
// Environment variables always take precedence over file values.
package config
