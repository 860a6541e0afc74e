package remote

import (
	"log/slog"

	"gitlab.bluewillows.net/root/rshell/pkg/localexec"
)

// DefaultReconnectRetries is how many times a command that could not be
// issued is retried on a fresh connection.
const DefaultReconnectRetries = 1

// DefaultSSHBinary is the ssh client used to run scripts.
const DefaultSSHBinary = "ssh"

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Every record carries the host.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRegistry sets the connection registry. Clients sharing a registry
// share one connection per host.
func WithRegistry(registry *Registry) Option {
	return func(c *Client) {
		if registry != nil {
			c.registry = registry
		}
	}
}

// WithDialer replaces the SSH dialer.
func WithDialer(dialer Dialer) Option {
	return func(c *Client) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

// WithSpawner replaces the local process spawner used for scripts.
func WithSpawner(spawner localexec.Spawner) Option {
	return func(c *Client) {
		if spawner != nil {
			c.spawner = spawner
		}
	}
}

// WithReconnectRetries sets how many reconnects a single command may
// trigger. Zero disables reconnecting.
func WithReconnectRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithScriptTrace runs scripts under bash -x so every line is echoed to
// stderr. Enabled by default.
func WithScriptTrace(enabled bool) Option {
	return func(c *Client) {
		c.trace = enabled
	}
}

// WithSSHBinary sets the ssh client used to run scripts.
func WithSSHBinary(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.sshBinary = path
		}
	}
}

type execOptions struct {
	canFail     bool
	mask        []string
	log         bool
	description string
}

// ExecOption configures one Execute or RunScript call.
type ExecOption func(*execOptions)

// CanFail controls whether a non-zero exit is returned as an
// *ExecutionError. Defaults to true.
func CanFail(canFail bool) ExecOption {
	return func(o *execOptions) {
		o.canFail = canFail
	}
}

// Mask hides words from logs and error messages.
func Mask(words ...string) ExecOption {
	return func(o *execOptions) {
		o.mask = append(o.mask, words...)
	}
}

// Log controls whether the call emits a log record. Defaults to true for
// Execute and false for RunScript.
func Log(enabled bool) ExecOption {
	return func(o *execOptions) {
		o.log = enabled
	}
}

// Description names a script in logs and errors instead of its first line.
func Description(description string) ExecOption {
	return func(o *execOptions) {
		o.description = description
	}
}

func newExecOptions(log bool, opts []ExecOption) execOptions {
	o := execOptions{canFail: true, log: log}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
