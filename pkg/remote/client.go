package remote

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gitlab.bluewillows.net/root/rshell/internal/metrics"
	"gitlab.bluewillows.net/root/rshell/pkg/localexec"
	"gitlab.bluewillows.net/root/rshell/pkg/sshutil"
)

// State is the lifecycle state of a Client.
type State int

const (
	StateUnconnected State = iota
	StateProvisioning
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateProvisioning:
		return "provisioning"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Client runs commands and scripts on one host. Clients for the same host
// share a single connection through their Registry.
type Client struct {
	host      string
	config    *sshutil.Config
	registry  *Registry
	dialer    Dialer
	spawner   localexec.Spawner
	logger    *slog.Logger
	retries   int
	trace     bool
	sshBinary string

	// swapMu serializes connect and reconnect on this client.
	swapMu sync.Mutex

	mu      sync.Mutex
	channel Channel
	state   State
}

// New returns a client for host. If the registry already holds a connection
// for host it is adopted as is. Otherwise the public key is registered on the
// host through the ssh binary and a new connection is dialed and cached.
func New(ctx context.Context, host string, config *sshutil.Config, opts ...Option) (*Client, error) {
	if host == "" {
		return nil, &ConfigurationError{Field: "host", Message: "host is required"}
	}
	if config == nil {
		return nil, &ConfigurationError{Host: host, Field: "ssh", Message: "ssh config is required"}
	}

	c := &Client{
		host:      host,
		config:    config,
		registry:  SharedRegistry(),
		spawner:   localexec.ExecSpawner{},
		logger:    slog.Default(),
		retries:   DefaultReconnectRetries,
		trace:     true,
		sshBinary: DefaultSSHBinary,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.dialer == nil {
		d, err := sshutil.NewDialer(config, sshutil.WithLogger(c.logger))
		if err != nil {
			return nil, &ConfigurationError{Host: host, Field: "ssh", Message: err.Error()}
		}
		c.dialer = &sshDialer{dialer: d}
	}

	c.logger = c.logger.With(slog.String("host", host))

	c.swapMu.Lock()
	defer c.swapMu.Unlock()

	unlock := c.registry.lockHost(host)
	defer unlock()

	if ch, ok := c.registry.Get(host); ok {
		c.logger.Debug("reusing cached connection")
		c.channel = ch
		c.state = StateConnected
		return c, nil
	}

	if err := c.connect(ctx, false); err != nil {
		return nil, err
	}
	return c, nil
}

// Host returns the host this client runs commands on.
func (c *Client) Host() string {
	return c.host
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Reconnect registers the key again, dials a fresh connection and replaces
// the cached one for every client of this host. On failure the stale
// connection is evicted from the registry and the client moves to
// StateFailed.
func (c *Client) Reconnect(ctx context.Context) error {
	return c.reconnect(ctx, nil)
}

// reconnect replaces failed, the connection a command could not be issued
// on. If another client of the host already replaced it, the replacement is
// adopted without dialing. A nil failed always dials.
func (c *Client) reconnect(ctx context.Context, failed Channel) error {
	c.swapMu.Lock()
	defer c.swapMu.Unlock()

	unlock := c.registry.lockHost(c.host)
	defer unlock()

	if failed != nil {
		if current, ok := c.registry.Get(c.host); ok && current != failed {
			c.logger.Debug("adopting connection replaced by another client")
			c.mu.Lock()
			c.channel = current
			c.state = StateConnected
			c.mu.Unlock()
			return nil
		}
	}

	c.mu.Lock()
	stale := c.channel
	c.mu.Unlock()
	if failed != nil {
		stale = failed
	}

	c.logger.Info("reconnecting")

	err := c.connect(ctx, true)
	metrics.RecordReconnect(err)
	if err != nil {
		if stale != nil && c.registry.Remove(c.host, stale) {
			c.logger.Debug("evicted stale connection")
		}

		c.setState(StateFailed)
		c.logger.Error("reconnect failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Close closes the client's connection. The registry entry is kept; the next
// command on any client of this host reconnects.
func (c *Client) Close() error {
	c.mu.Lock()
	ch := c.channel
	c.channel = nil
	c.state = StateUnconnected
	c.mu.Unlock()

	if ch == nil {
		return nil
	}
	return ch.Close()
}

// connect registers the key and dials. With replace set the new channel
// overwrites the registry entry and the displaced one is closed; otherwise
// a channel cached by a faster client wins and ours is closed. Callers hold
// the host lock.
func (c *Client) connect(ctx context.Context, replace bool) error {
	op := OpDial
	if replace {
		op = OpReconnect
		c.setState(StateReconnecting)
	} else {
		c.setState(StateProvisioning)
	}

	if err := c.register(ctx); err != nil {
		return err
	}

	ch, err := c.dialer.Dial(ctx, c.host)
	if err != nil {
		return &TransportError{Host: c.host, Op: op, Err: err}
	}

	if replace {
		if previous := c.registry.Replace(c.host, ch); previous != nil && previous != ch {
			_ = previous.Close()
		}
	} else if winner, stored := c.registry.Put(c.host, ch); !stored {
		c.logger.Debug("connection already cached by another client")
		_ = ch.Close()
		ch = winner
	}

	c.mu.Lock()
	c.channel = ch
	c.state = StateConnected
	c.mu.Unlock()

	c.logger.Debug("connected")
	return nil
}

// register appends the public key to the remote authorized_keys file. It is
// idempotent.
func (c *Client) register(ctx context.Context) error {
	if c.config.KeyFile == "" {
		return &ConfigurationError{
			Host:    c.host,
			Field:   "key_file",
			Message: "an SSH key must be configured to connect",
		}
	}

	key, err := c.config.ReadPublicKey()
	if err != nil {
		return &ConfigurationError{Host: c.host, Field: "key_file", Message: err.Error()}
	}

	c.logger.Debug("registering public key")

	_, err = c.RunScript(ctx, authorizeKeyScript(key), Description("register ssh key"))
	metrics.RecordProvision(err)
	if err != nil {
		if IsConfiguration(err) {
			return err
		}
		return &TransportError{Host: c.host, Op: OpProvision, Err: err}
	}
	return nil
}

func authorizeKeyScript(key string) []string {
	quoted := localexec.Quote(key)
	return []string{
		"mkdir -p ~/.ssh",
		"chmod 700 ~/.ssh",
		"touch ~/.ssh/authorized_keys",
		fmt.Sprintf("grep -qxF %s ~/.ssh/authorized_keys || echo %s >> ~/.ssh/authorized_keys", quoted, quoted),
		"chmod 600 ~/.ssh/authorized_keys",
		"if command -v restorecon >/dev/null 2>&1; then restorecon -r ~/.ssh; fi",
	}
}

// currentChannel returns the channel commands should use, picking up any
// replacement another client made since the last call.
func (c *Client) currentChannel() Channel {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ch, ok := c.registry.Get(c.host); ok {
		c.channel = ch
	}
	return c.channel
}
