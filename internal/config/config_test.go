package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"gitlab.bluewillows.net/root/rshell/pkg/sshutil"
)

// clearEnv blanks every RSHELL_ variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG", envLogLevel, envLogFormat, envLogFile, envSSHUser, envSSHKey,
		envSSHKeyPassphrase, envSSHKeyPassphrase + "_FILE", envSSHPort, envSSHTimeout,
		envVerifyHostKey, envKnownHostsFile, envReconnectRetries,
		envTraceRemoteExecution, envMetricsTextfile,
	} {
		t.Setenv(EnvPrefix+key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.LogFormat != DefaultLogFormat {
		t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, DefaultLogFormat)
	}
	if cfg.SSHUser != "root" {
		t.Errorf("SSHUser = %q, want root", cfg.SSHUser)
	}
	if cfg.SSHKeyFile != "~/.ssh/id_rsa" {
		t.Errorf("SSHKeyFile = %q, want ~/.ssh/id_rsa", cfg.SSHKeyFile)
	}
	if cfg.SSHPort != 22 {
		t.Errorf("SSHPort = %d, want 22", cfg.SSHPort)
	}
	if cfg.SSHTimeout != sshutil.DefaultSSHTimeout {
		t.Errorf("SSHTimeout = %s, want %s", cfg.SSHTimeout, sshutil.DefaultSSHTimeout)
	}
	if cfg.ReconnectRetries != 1 {
		t.Errorf("ReconnectRetries = %d, want 1", cfg.ReconnectRetries)
	}
	if cfg.VerifyHostKey {
		t.Error("VerifyHostKey should default to false")
	}
	if !cfg.TraceRemoteExecution {
		t.Error("TraceRemoteExecution should default to true")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := writeConfigFile(t, "rshell.yaml", `
logging:
  level: debug
ssh:
  user: from-file
  port: 2222
`)

	t.Setenv("RSHELL_SSH_USER", "from-env")
	t.Setenv("RSHELL_SSH_TIMEOUT", "45s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SSHUser != "from-env" {
		t.Errorf("SSHUser = %q, want env value", cfg.SSHUser)
	}
	if cfg.SSHPort != 2222 {
		t.Errorf("SSHPort = %d, want file value 2222", cfg.SSHPort)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want file value", cfg.LogLevel)
	}
	if cfg.SSHTimeout != 45*time.Second {
		t.Errorf("SSHTimeout = %s, want 45s", cfg.SSHTimeout)
	}
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	clearEnv(t)

	path := writeConfigFile(t, "rshell.toml", "[ssh]\nuser = \"toml-user\"\n")
	t.Setenv("RSHELL_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SSHUser != "toml-user" {
		t.Errorf("SSHUser = %q, want toml-user", cfg.SSHUser)
	}
}

func TestLoad_CollectsAllErrors(t *testing.T) {
	clearEnv(t)

	t.Setenv("RSHELL_LOG_LEVEL", "verbose")
	t.Setenv("RSHELL_SSH_PORT", "not-a-port")
	t.Setenv("RSHELL_SSH_VERIFY_HOST_KEY", "maybe")
	t.Setenv("RSHELL_RECONNECT_RETRIES", "-1")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if len(verr.Errors) != 4 {
		t.Errorf("got %d errors, want 4:\n%v", len(verr.Errors), err)
	}

	for _, want := range []string{"RSHELL_SSH_PORT", "RSHELL_SSH_VERIFY_HOST_KEY", "log level", "reconnect retries"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)

	_, err := Load("/nonexistent/rshell.yaml")
	if err == nil || !strings.Contains(err.Error(), "config file") {
		t.Errorf("Load() error = %v, want config file error", err)
	}
}

func TestLoad_PassphraseFromSecretFile(t *testing.T) {
	clearEnv(t)

	secret := writeConfigFile(t, "passphrase", "hunter2\n")
	t.Setenv("RSHELL_SSH_KEY_PASSPHRASE_FILE", secret)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SSHKeyPassphrase != "hunter2" {
		t.Errorf("SSHKeyPassphrase = %q, want secret file contents", cfg.SSHKeyPassphrase)
	}
}

func TestConfig_SSHConfig(t *testing.T) {
	cfg := Defaults()
	cfg.SSHUser = "deploy"
	cfg.SSHKeyFile = "/keys/deploy"
	cfg.SSHPort = 2222
	cfg.VerifyHostKey = true
	cfg.KnownHostsFile = "/keys/known_hosts"

	sc := cfg.SSHConfig()

	if sc.User != "deploy" || sc.KeyFile != "/keys/deploy" || sc.Port != 2222 {
		t.Errorf("SSHConfig() = %+v", sc)
	}
	if !sc.VerifyHostKey || sc.KnownHostsFile != "/keys/known_hosts" {
		t.Errorf("host key settings not carried: %+v", sc)
	}
	if err := sc.Validate(); err != nil {
		t.Errorf("SSHConfig().Validate() = %v", err)
	}
}

func TestConfig_ClientOptions(t *testing.T) {
	cfg := Defaults()
	if got := len(cfg.ClientOptions()); got != 2 {
		t.Errorf("ClientOptions() returned %d options, want 2", got)
	}
}
