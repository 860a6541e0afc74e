package sshutil

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gitlab.bluewillows.net/root/rshell/internal/sshtest"
)

func discardHandler(string, io.Writer, io.Writer) int { return 0 }

func TestNewDialer(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		config := &Config{User: "admin", KeyFile: "/path/to/key"}

		d, err := NewDialer(config)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.config != config {
			t.Error("expected dialer to keep the config")
		}
		if d.logger == nil {
			t.Error("expected logger to be set")
		}
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := NewDialer(nil)
		if err == nil {
			t.Fatal("expected error for nil config")
		}
		if !strings.Contains(err.Error(), "config is required") {
			t.Errorf("error = %q, want it to contain %q", err.Error(), "config is required")
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		if _, err := NewDialer(&Config{}); err == nil {
			t.Error("expected error for invalid config")
		}
	})

	t.Run("with logger option", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
		d, err := NewDialer(&Config{User: "admin"}, WithLogger(logger))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.logger != logger {
			t.Error("expected custom logger to be set")
		}
	})

	t.Run("with nil logger keeps default", func(t *testing.T) {
		d, err := NewDialer(&Config{User: "admin"}, WithLogger(nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.logger == nil {
			t.Error("expected default logger to be kept")
		}
	})
}

func TestDialer_Dial(t *testing.T) {
	keyFile, pub := sshtest.KeyPair(t)
	server := sshtest.Start(t, pub, discardHandler)

	t.Run("authenticates with key", func(t *testing.T) {
		d, err := NewDialer(&Config{User: "tester", Port: server.Port, KeyFile: keyFile})
		if err != nil {
			t.Fatalf("NewDialer() error = %v", err)
		}

		conn, err := d.Dial(t.Context(), server.Host)
		if err != nil {
			t.Fatalf("Dial() error = %v", err)
		}
		if conn.Host() != server.Host {
			t.Errorf("Host() = %q, want %q", conn.Host(), server.Host)
		}
		if err := conn.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
		if err := conn.Close(); err != nil {
			t.Errorf("second Close() must be a no-op, got %v", err)
		}
	})

	t.Run("public key path accepted", func(t *testing.T) {
		d, err := NewDialer(&Config{User: "tester", Port: server.Port, KeyFile: keyFile + PublicKeySuffix})
		if err != nil {
			t.Fatalf("NewDialer() error = %v", err)
		}

		conn, err := d.Dial(t.Context(), server.Host)
		if err != nil {
			t.Fatalf("Dial() error = %v", err)
		}
		_ = conn.Close()
	})

	t.Run("unknown key is rejected", func(t *testing.T) {
		otherKey, _ := sshtest.KeyPair(t)
		d, err := NewDialer(&Config{User: "tester", Port: server.Port, KeyFile: otherKey})
		if err != nil {
			t.Fatalf("NewDialer() error = %v", err)
		}

		_, err = d.Dial(t.Context(), server.Host)
		if !errors.Is(err, ErrAuthenticationFailed) {
			t.Errorf("Dial() error = %v, want ErrAuthenticationFailed", err)
		}
	})

	t.Run("missing key file", func(t *testing.T) {
		d, err := NewDialer(&Config{User: "tester", Port: server.Port})
		if err != nil {
			t.Fatalf("NewDialer() error = %v", err)
		}

		_, err = d.Dial(t.Context(), server.Host)
		if err == nil {
			t.Fatal("expected error without a key file")
		}
		if !strings.Contains(err.Error(), "no key file configured") {
			t.Errorf("error = %q, want it to contain %q", err.Error(), "no key file configured")
		}
	})

	t.Run("nothing listening", func(t *testing.T) {
		d, err := NewDialer(&Config{User: "tester", Port: 1, KeyFile: keyFile, Timeout: time.Second})
		if err != nil {
			t.Fatalf("NewDialer() error = %v", err)
		}

		if _, err := d.Dial(t.Context(), "127.0.0.1"); err == nil {
			t.Error("expected error dialing a closed port")
		}
	})

	t.Run("host key verification rejects unknown host", func(t *testing.T) {
		knownHosts := filepath.Join(t.TempDir(), "known_hosts")
		if err := os.WriteFile(knownHosts, nil, 0o600); err != nil {
			t.Fatalf("writing known_hosts: %v", err)
		}

		d, err := NewDialer(&Config{
			User:           "tester",
			Port:           server.Port,
			KeyFile:        keyFile,
			VerifyHostKey:  true,
			KnownHostsFile: knownHosts,
		})
		if err != nil {
			t.Fatalf("NewDialer() error = %v", err)
		}

		if _, err := d.Dial(t.Context(), server.Host); err == nil {
			t.Error("expected error for a host missing from known_hosts")
		}
	})
}

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"auth failure", errors.New("ssh: unable to authenticate, attempted methods [none publickey]"), true},
		{"network failure", errors.New("connection reset by peer"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isAuthError(tt.err); got != tt.want {
				t.Errorf("isAuthError() = %v, want %v", got, tt.want)
			}
		})
	}
}
