package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileConfig represents the configuration file structure. The same layout
// is accepted as YAML (.yml, .yaml) or TOML (.toml).
type FileConfig struct {
	Logging   *FileLoggingConfig   `yaml:"logging,omitempty" toml:"logging"`
	SSH       *FileSSHConfig       `yaml:"ssh,omitempty" toml:"ssh"`
	Execution *FileExecutionConfig `yaml:"execution,omitempty" toml:"execution"`
	Metrics   *FileMetricsConfig   `yaml:"metrics,omitempty" toml:"metrics"`
}

// FileLoggingConfig holds logging settings.
type FileLoggingConfig struct {
	Level  string `yaml:"level,omitempty" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format,omitempty" toml:"format"` // json, text
	File   string `yaml:"file,omitempty" toml:"file"`
}

// FileSSHConfig holds SSH credential and transport settings.
type FileSSHConfig struct {
	User           string `yaml:"user,omitempty" toml:"user"`
	KeyFile        string `yaml:"key_file,omitempty" toml:"key_file"`
	KeyPassphrase  string `yaml:"key_passphrase,omitempty" toml:"key_passphrase"`
	Port           int    `yaml:"port,omitempty" toml:"port"`
	Timeout        string `yaml:"timeout,omitempty" toml:"timeout"` // Go duration format (e.g., "30s")
	VerifyHostKey  *bool  `yaml:"verify_host_key,omitempty" toml:"verify_host_key"`
	KnownHostsFile string `yaml:"known_hosts_file,omitempty" toml:"known_hosts_file"`
}

// FileExecutionConfig holds command execution settings.
type FileExecutionConfig struct {
	ReconnectRetries *int  `yaml:"reconnect_retries,omitempty" toml:"reconnect_retries"`
	Trace            *bool `yaml:"trace,omitempty" toml:"trace"`
}

// FileMetricsConfig holds metrics export settings.
type FileMetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty" toml:"textfile"`
}

// envVarPattern matches ${VAR} or ${VAR:-default} syntax.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// InterpolateEnvVars replaces ${VAR} patterns with environment variable values.
// Supports ${VAR:-default} syntax for default values.
func InterpolateEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 3 {
			defaultValue = groups[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// interpolateEnvVars interpolates environment variables in all string
// fields.
func (c *FileConfig) interpolateEnvVars() {
	if c.Logging != nil {
		c.Logging.Level = InterpolateEnvVars(c.Logging.Level)
		c.Logging.Format = InterpolateEnvVars(c.Logging.Format)
		c.Logging.File = InterpolateEnvVars(c.Logging.File)
	}

	if c.SSH != nil {
		c.SSH.User = InterpolateEnvVars(c.SSH.User)
		c.SSH.KeyFile = InterpolateEnvVars(c.SSH.KeyFile)
		c.SSH.KeyPassphrase = InterpolateEnvVars(c.SSH.KeyPassphrase)
		c.SSH.Timeout = InterpolateEnvVars(c.SSH.Timeout)
		c.SSH.KnownHostsFile = InterpolateEnvVars(c.SSH.KnownHostsFile)
	}

	if c.Metrics != nil {
		c.Metrics.Textfile = InterpolateEnvVars(c.Metrics.Textfile)
	}
}

// LoadFile reads and parses a configuration file, picking the format from
// the extension. Environment variables in ${VAR} format are interpolated.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg FileConfig

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing TOML config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q (use .yaml, .yml or .toml)", ext)
	}

	cfg.interpolateEnvVars()

	return &cfg, nil
}

// applyTo copies every value set in the file onto cfg. Returns the values
// that could not be parsed.
func (c *FileConfig) applyTo(cfg *Config) []string {
	var errs []string

	if c.Logging != nil {
		if c.Logging.Level != "" {
			cfg.LogLevel = strings.ToLower(c.Logging.Level)
		}
		if c.Logging.Format != "" {
			cfg.LogFormat = strings.ToLower(c.Logging.Format)
		}
		if c.Logging.File != "" {
			cfg.LogFile = c.Logging.File
		}
	}

	if c.SSH != nil {
		if c.SSH.User != "" {
			cfg.SSHUser = c.SSH.User
		}
		if c.SSH.KeyFile != "" {
			cfg.SSHKeyFile = c.SSH.KeyFile
		}
		if c.SSH.KeyPassphrase != "" {
			cfg.SSHKeyPassphrase = c.SSH.KeyPassphrase
		}
		if c.SSH.Port != 0 {
			cfg.SSHPort = c.SSH.Port
		}
		if c.SSH.Timeout != "" {
			timeout, err := time.ParseDuration(c.SSH.Timeout)
			if err != nil {
				errs = append(errs, fmt.Sprintf("ssh.timeout: invalid duration %q (use format like 30s, 1m)", c.SSH.Timeout))
			} else {
				cfg.SSHTimeout = timeout
			}
		}
		if c.SSH.VerifyHostKey != nil {
			cfg.VerifyHostKey = *c.SSH.VerifyHostKey
		}
		if c.SSH.KnownHostsFile != "" {
			cfg.KnownHostsFile = c.SSH.KnownHostsFile
		}
	}

	if c.Execution != nil {
		if c.Execution.ReconnectRetries != nil {
			cfg.ReconnectRetries = *c.Execution.ReconnectRetries
		}
		if c.Execution.Trace != nil {
			cfg.TraceRemoteExecution = *c.Execution.Trace
		}
	}

	if c.Metrics != nil && c.Metrics.Textfile != "" {
		cfg.MetricsTextfile = c.Metrics.Textfile
	}

	return errs
}
