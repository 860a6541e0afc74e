// Package sshutil provides the SSH transport used by the remote shell client.
//
// Key features:
//   - Credential model with the .pub public-key path convention
//   - Context-aware dialing with public-key authentication
//   - Command processes with separate stdout/stderr streams and exit status
//   - SFTP-based FileSystem over an established connection
package sshutil

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// Default SSH client configuration values.
const (
	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultSSHUser is the login used when none is configured.
	DefaultSSHUser = "root"

	// DefaultSSHKeyFile is the private key used when none is configured.
	DefaultSSHKeyFile = "~/.ssh/id_rsa"

	// DefaultSSHTimeout is the default connection timeout.
	DefaultSSHTimeout = 30 * time.Second

	// PublicKeySuffix is appended to a private key path to find its public key.
	PublicKeySuffix = ".pub"
)

// Config holds the credential material and transport settings shared by every
// connection to every host.
type Config struct {
	// User is the SSH username (required).
	User string

	// Port is the SSH server port (default: 22).
	Port int

	// KeyFile is the path to the SSH key pair. Either the private or the
	// public (.pub) path may be given; the other is derived.
	KeyFile string

	// KeyPassphrase is the passphrase for an encrypted private key (optional).
	KeyPassphrase string

	// Timeout is the SSH connection timeout (default: 30s).
	Timeout time.Duration

	// VerifyHostKey enables host key verification against KnownHostsFile.
	// WARNING: when false, host keys are not checked at all. The key pair
	// authenticates the client, but the server is taken on trust.
	VerifyHostKey bool

	// KnownHostsFile is the known_hosts file used when VerifyHostKey is set.
	KnownHostsFile string
}

// Validate checks that all required configuration is present and valid.
// A missing KeyFile is not reported here; the remote client surfaces it
// as a configuration error on first contact with a host.
func (c *Config) Validate() error {
	var errs []string

	if c.User == "" {
		errs = append(errs, "user is required")
	}

	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, "port must be between 0 and 65535")
	}

	if c.Timeout < 0 {
		errs = append(errs, "timeout must be non-negative")
	}

	if c.VerifyHostKey && c.KnownHostsFile == "" {
		errs = append(errs, "known_hosts_file is required when host key verification is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("ssh config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetPort returns the configured port or the default.
func (c *Config) GetPort() int {
	if c.Port > 0 {
		return c.Port
	}
	return DefaultSSHPort
}

// Address returns the SSH server address for host in host:port format.
func (c *Config) Address(host string) string {
	return net.JoinHostPort(host, strconv.Itoa(c.GetPort()))
}

// GetTimeout returns the configured timeout or the default.
func (c *Config) GetTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultSSHTimeout
}

// PrivateKeyPath returns the absolute private key path, stripping a .pub
// suffix if KeyFile names the public key.
func (c *Config) PrivateKeyPath() (string, error) {
	return expandPath(strings.TrimSuffix(c.KeyFile, PublicKeySuffix))
}

// PublicKeyPath returns the absolute public key path, appending .pub if
// KeyFile names the private key.
func (c *Config) PublicKeyPath() (string, error) {
	path := c.KeyFile
	if !strings.HasSuffix(path, PublicKeySuffix) {
		path += PublicKeySuffix
	}
	return expandPath(path)
}

// ReadPublicKey reads the public key in authorized_keys format and checks
// that it parses.
func (c *Config) ReadPublicKey() (string, error) {
	path, err := c.PublicKeyPath()
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading public key %s: %w", path, err)
	}

	if _, _, _, _, err := ssh.ParseAuthorizedKey(data); err != nil {
		return "", fmt.Errorf("parsing public key %s: %w", path, err)
	}

	return strings.TrimSpace(string(data)), nil
}

// KnownHostsPath returns the absolute known_hosts path, or "" if none is set.
func (c *Config) KnownHostsPath() (string, error) {
	if c.KnownHostsFile == "" {
		return "", nil
	}
	return expandPath(c.KnownHostsFile)
}

// expandPath resolves a leading ~ and makes path absolute.
func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}
