package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Environment variable names, without EnvPrefix.
const (
	envLogLevel             = "LOG_LEVEL"
	envLogFormat            = "LOG_FORMAT"
	envLogFile              = "LOG_FILE"
	envSSHUser              = "SSH_USER"
	envSSHKey               = "SSH_KEY"
	envSSHKeyPassphrase     = "SSH_KEY_PASSPHRASE"
	envSSHPort              = "SSH_PORT"
	envSSHTimeout           = "SSH_TIMEOUT"
	envVerifyHostKey        = "SSH_VERIFY_HOST_KEY"
	envKnownHostsFile       = "SSH_KNOWN_HOSTS_FILE"
	envReconnectRetries     = "RECONNECT_RETRIES"
	envTraceRemoteExecution = "TRACE_REMOTE_EXECUTION"
	envMetricsTextfile      = "METRICS_TEXTFILE"
)

// applyEnv overrides cfg with every RSHELL_* variable that is set. Returns
// the variables whose values could not be parsed.
func applyEnv(cfg *Config) []string {
	var errs []string

	if v := getEnv(EnvPrefix + envLogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := getEnv(EnvPrefix + envLogFormat); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v := getEnv(EnvPrefix + envLogFile); v != "" {
		cfg.LogFile = v
	}

	if v := getEnv(EnvPrefix + envSSHUser); v != "" {
		cfg.SSHUser = v
	}
	if v := getEnv(EnvPrefix + envSSHKey); v != "" {
		cfg.SSHKeyFile = v
	}
	if v := getEnvWithFileFallback(envSSHKeyPassphrase); v != "" {
		cfg.SSHKeyPassphrase = v
	}
	if v := getEnv(EnvPrefix + envSSHPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s%s: invalid integer %q", EnvPrefix, envSSHPort, v))
		} else {
			cfg.SSHPort = port
		}
	}
	if v := getEnv(EnvPrefix + envSSHTimeout); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s%s: invalid duration %q (use format like 30s, 1m)", EnvPrefix, envSSHTimeout, v))
		} else {
			cfg.SSHTimeout = timeout
		}
	}
	if v := getEnv(EnvPrefix + envVerifyHostKey); v != "" {
		if b, ok := parseBool(v); ok {
			cfg.VerifyHostKey = b
		} else {
			errs = append(errs, fmt.Sprintf("%s%s: invalid boolean %q", EnvPrefix, envVerifyHostKey, v))
		}
	}
	if v := getEnv(EnvPrefix + envKnownHostsFile); v != "" {
		cfg.KnownHostsFile = v
	}

	if v := getEnv(EnvPrefix + envReconnectRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s%s: invalid integer %q", EnvPrefix, envReconnectRetries, v))
		} else {
			cfg.ReconnectRetries = n
		}
	}
	if v := getEnv(EnvPrefix + envTraceRemoteExecution); v != "" {
		if b, ok := parseBool(v); ok {
			cfg.TraceRemoteExecution = b
		} else {
			errs = append(errs, fmt.Sprintf("%s%s: invalid boolean %q", EnvPrefix, envTraceRemoteExecution, v))
		}
	}

	if v := getEnv(EnvPrefix + envMetricsTextfile); v != "" {
		cfg.MetricsTextfile = v
	}

	return errs
}
