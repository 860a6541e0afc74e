package config

import (
	"strings"
	"testing"
)

func TestValidationError(t *testing.T) {
	single := &ValidationError{Errors: []string{"ssh user: required"}}
	if got := single.Error(); got != "configuration error: ssh user: required" {
		t.Errorf("single error = %q", got)
	}

	multi := &ValidationError{Errors: []string{"a", "b"}}
	if got := multi.Error(); got != "configuration errors:\n  - a\n  - b" {
		t.Errorf("multi error = %q", got)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			modify: func(*Config) {},
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.LogLevel = "trace" },
			wantErr: "log level",
		},
		{
			name:    "bad log format",
			modify:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: "log format",
		},
		{
			name:    "empty user",
			modify:  func(c *Config) { c.SSHUser = "" },
			wantErr: "ssh user",
		},
		{
			name:    "port out of range",
			modify:  func(c *Config) { c.SSHPort = 70000 },
			wantErr: "ssh port",
		},
		{
			name:    "zero timeout",
			modify:  func(c *Config) { c.SSHTimeout = 0 },
			wantErr: "ssh timeout",
		},
		{
			name:    "verify without known hosts",
			modify:  func(c *Config) { c.VerifyHostKey = true },
			wantErr: "known hosts",
		},
		{
			name: "verify with known hosts",
			modify: func(c *Config) {
				c.VerifyHostKey = true
				c.KnownHostsFile = "~/.ssh/known_hosts"
			},
		},
		{
			name:    "negative retries",
			modify:  func(c *Config) { c.ReconnectRetries = -2 },
			wantErr: "reconnect retries",
		},
		{
			name:   "zero retries allowed",
			modify: func(c *Config) { c.ReconnectRetries = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
