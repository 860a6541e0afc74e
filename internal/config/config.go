// Package config handles loading and validation of rshell configuration
// from defaults, an optional YAML or TOML file, and RSHELL_* environment
// variables, in that order of precedence.
package config

import (
	"log/slog"
	"time"

	"gitlab.bluewillows.net/root/rshell/pkg/remote"
	"gitlab.bluewillows.net/root/rshell/pkg/sshutil"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "RSHELL_"

// Configuration defaults.
const (
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "text"
	DefaultTraceRemoteExecution = true
	DefaultVerifyHostKey        = false
)

// Config holds the runtime configuration.
type Config struct {
	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
	LogFile   string // optional; records are also written here as JSON

	// SSH credentials and transport
	SSHUser          string
	SSHKeyFile       string
	SSHKeyPassphrase string
	SSHPort          int
	SSHTimeout       time.Duration
	VerifyHostKey    bool
	KnownHostsFile   string

	// Execution
	ReconnectRetries     int
	TraceRemoteExecution bool

	// MetricsTextfile, if set, receives the metrics in text format on exit.
	MetricsTextfile string
}

// Defaults returns a Config with every default applied.
func Defaults() *Config {
	return &Config{
		LogLevel:             DefaultLogLevel,
		LogFormat:            DefaultLogFormat,
		SSHUser:              sshutil.DefaultSSHUser,
		SSHKeyFile:           sshutil.DefaultSSHKeyFile,
		SSHPort:              sshutil.DefaultSSHPort,
		SSHTimeout:           sshutil.DefaultSSHTimeout,
		VerifyHostKey:        DefaultVerifyHostKey,
		ReconnectRetries:     remote.DefaultReconnectRetries,
		TraceRemoteExecution: DefaultTraceRemoteExecution,
	}
}

// Load builds the configuration. The file at path is read if path is set,
// otherwise the file named by RSHELL_CONFIG, if any. Environment variables
// override the file. Every problem found is reported in one
// *ValidationError.
func Load(path string) (*Config, error) {
	var errs []string

	cfg := Defaults()

	if path == "" {
		path = getEnv(EnvPrefix + "CONFIG")
	}

	if path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			errs = append(errs, "config file: "+err.Error())
		} else {
			slog.Debug("loaded configuration from file", slog.String("path", path))
			errs = append(errs, fileCfg.applyTo(cfg)...)
		}
	}

	errs = append(errs, applyEnv(cfg)...)
	errs = append(errs, validateConfig(cfg)...)

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return cfg, nil
}

// Validate checks the configuration after callers changed it, for example
// from command-line flags.
func (c *Config) Validate() error {
	if errs := validateConfig(c); len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// SSHConfig returns the credential material for the remote client.
func (c *Config) SSHConfig() *sshutil.Config {
	return &sshutil.Config{
		User:           c.SSHUser,
		Port:           c.SSHPort,
		KeyFile:        c.SSHKeyFile,
		KeyPassphrase:  c.SSHKeyPassphrase,
		Timeout:        c.SSHTimeout,
		VerifyHostKey:  c.VerifyHostKey,
		KnownHostsFile: c.KnownHostsFile,
	}
}

// ClientOptions returns the remote client options the configuration implies.
func (c *Config) ClientOptions() []remote.Option {
	return []remote.Option{
		remote.WithReconnectRetries(c.ReconnectRetries),
		remote.WithScriptTrace(c.TraceRemoteExecution),
	}
}
