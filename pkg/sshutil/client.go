package sshutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Sentinel errors for SSH operations.
var (
	// ErrNotConnected is returned when an operation is attempted on a closed connection.
	ErrNotConnected = errors.New("ssh connection is closed")

	// ErrAuthenticationFailed is returned when SSH authentication fails.
	ErrAuthenticationFailed = errors.New("ssh authentication failed")

	// ErrConnectionTimeout is returned when the connection times out.
	ErrConnectionTimeout = errors.New("ssh connection timed out")
)

// Dialer opens authenticated SSH connections using one Config.
type Dialer struct {
	config *Config
	logger *slog.Logger
}

// DialerOption is a functional option for configuring the Dialer.
type DialerOption func(*Dialer)

// WithLogger sets a custom logger for the dialer and the connections it opens.
func WithLogger(logger *slog.Logger) DialerOption {
	return func(d *Dialer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDialer creates a Dialer with the given configuration.
func NewDialer(config *Config, opts ...DialerOption) (*Dialer, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	d := &Dialer{
		config: config,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Dial connects and authenticates to host.
func (d *Dialer) Dial(ctx context.Context, host string) (*Conn, error) {
	sshConfig, err := d.buildSSHConfig()
	if err != nil {
		return nil, fmt.Errorf("building SSH config: %w", err)
	}

	address := d.config.Address(host)

	d.logger.Debug("connecting to SSH server",
		slog.String("host", host),
		slog.Int("port", d.config.GetPort()),
		slog.String("user", d.config.User),
	)

	timeout := d.config.GetTimeout()
	dialCtx, dialCancel := context.WithTimeout(ctx, timeout)
	defer dialCancel()

	dialer := &net.Dialer{
		Timeout: timeout,
	}

	netConn, err := dialer.DialContext(dialCtx, "tcp", address)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrConnectionTimeout
		}
		return nil, fmt.Errorf("dialing %s: %w", address, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, address, sshConfig)
	if err != nil {
		_ = netConn.Close()
		if isAuthError(err) {
			return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
		}
		return nil, fmt.Errorf("SSH handshake failed: %w", err)
	}

	d.logger.Debug("SSH connection established",
		slog.String("host", host),
		slog.Int("port", d.config.GetPort()),
	)

	return &Conn{
		host:   host,
		client: ssh.NewClient(sshConn, chans, reqs),
		logger: d.logger,
	}, nil
}

// buildSSHConfig creates the ssh.ClientConfig from our Config.
func (d *Dialer) buildSSHConfig() (*ssh.ClientConfig, error) {
	authMethods, err := d.buildAuthMethods()
	if err != nil {
		return nil, fmt.Errorf("building auth methods: %w", err)
	}

	hostKeyCallback, err := d.buildHostKeyCallback()
	if err != nil {
		return nil, fmt.Errorf("building host key callback: %w", err)
	}

	return &ssh.ClientConfig{
		User:            d.config.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         d.config.GetTimeout(),
	}, nil
}

// buildAuthMethods loads the private key as the only authentication method.
func (d *Dialer) buildAuthMethods() ([]ssh.AuthMethod, error) {
	if d.config.KeyFile == "" {
		return nil, errors.New("no key file configured")
	}

	path, err := d.config.PrivateKeyPath()
	if err != nil {
		return nil, err
	}

	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file %s: %w", path, err)
	}

	signer, err := d.parsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("parsing key from file: %w", err)
	}

	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

// parsePrivateKey parses a private key, handling encrypted keys if a passphrase is provided.
func (d *Dialer) parsePrivateKey(keyData []byte) (ssh.Signer, error) {
	if d.config.KeyPassphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(keyData, []byte(d.config.KeyPassphrase))
	}
	return ssh.ParsePrivateKey(keyData)
}

// buildHostKeyCallback creates the host key callback based on config.
func (d *Dialer) buildHostKeyCallback() (ssh.HostKeyCallback, error) {
	if d.config.VerifyHostKey {
		path, err := expandPath(d.config.KnownHostsFile)
		if err != nil {
			return nil, err
		}
		callback, err := knownhosts.New(path)
		if err != nil {
			return nil, fmt.Errorf("loading known_hosts %s: %w", path, err)
		}
		return callback, nil
	}

	return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // verification explicitly disabled
}

// isAuthError checks if an error is an authentication-related error.
func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "unable to authenticate") ||
		strings.Contains(errStr, "no supported methods") ||
		strings.Contains(errStr, "permission denied") ||
		strings.Contains(errStr, "publickey")
}
