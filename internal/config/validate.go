package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration error: %s", e.Errors[0])
	}
	return fmt.Sprintf("configuration errors:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// validateConfig performs validation on the complete configuration.
// Returns a list of validation errors.
func validateConfig(cfg *Config) []string {
	var errs []string

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log level: invalid value %q (must be debug, info, warn, or error)", cfg.LogLevel))
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log format: invalid value %q (must be json or text)", cfg.LogFormat))
	}

	if cfg.SSHUser == "" {
		errs = append(errs, "ssh user: required")
	}

	if cfg.SSHPort < 1 || cfg.SSHPort > 65535 {
		errs = append(errs, fmt.Sprintf("ssh port: must be between 1 and 65535, got %d", cfg.SSHPort))
	}

	if cfg.SSHTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ssh timeout: must be positive, got %s", cfg.SSHTimeout))
	}

	if cfg.VerifyHostKey && cfg.KnownHostsFile == "" {
		errs = append(errs, "ssh known hosts file: required when host key verification is enabled")
	}

	if cfg.ReconnectRetries < 0 {
		errs = append(errs, fmt.Sprintf("reconnect retries: must not be negative, got %d", cfg.ReconnectRetries))
	}

	return errs
}
