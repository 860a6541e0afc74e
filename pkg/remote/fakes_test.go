package remote

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.bluewillows.net/root/rshell/internal/sshtest"
	"gitlab.bluewillows.net/root/rshell/pkg/localexec"
	"gitlab.bluewillows.net/root/rshell/pkg/sshutil"
)

var errConnectionLost = errors.New("connection lost")

type fakeProcess struct {
	stdout  string
	stderr  string
	code    int
	waitErr error
}

func (p *fakeProcess) Stdout() io.Reader { return strings.NewReader(p.stdout) }
func (p *fakeProcess) Stderr() io.Reader { return strings.NewReader(p.stderr) }

func (p *fakeProcess) Wait() (int, error) {
	if p.waitErr != nil {
		return -1, p.waitErr
	}
	return p.code, nil
}

// commandFunc answers one command on a fake channel.
type commandFunc func(command string) *fakeProcess

type fakeChannel struct {
	id  int
	run commandFunc

	mu       sync.Mutex
	broken   bool
	closed   bool
	commands []string
	// onFailure runs before Start reports a lost connection.
	onFailure func()
}

func (c *fakeChannel) Start(command string) (Process, error) {
	c.mu.Lock()
	if c.broken || c.closed {
		hook := c.onFailure
		c.mu.Unlock()
		if hook != nil {
			hook()
		}
		return nil, errConnectionLost
	}
	defer c.mu.Unlock()

	c.commands = append(c.commands, command)
	if c.run == nil {
		return &fakeProcess{}, nil
	}
	return c.run(command), nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) Break() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broken = true
}

func (c *fakeChannel) OnFailure(hook func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFailure = hook
}

func (c *fakeChannel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeChannel) Commands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.commands...)
}

type fakeDialer struct {
	run commandFunc

	mu       sync.Mutex
	err      error
	broken   bool
	channels []*fakeChannel
	// beforeReturn runs after the channel is created, before Dial returns.
	beforeReturn func()
}

func (d *fakeDialer) Dial(_ context.Context, _ string) (Channel, error) {
	d.mu.Lock()
	if d.err != nil {
		err := d.err
		d.mu.Unlock()
		return nil, err
	}
	ch := &fakeChannel{id: len(d.channels) + 1, run: d.run, broken: d.broken}
	d.channels = append(d.channels, ch)
	hook := d.beforeReturn
	d.mu.Unlock()

	if hook != nil {
		hook()
	}
	return ch, nil
}

func (d *fakeDialer) SetErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *fakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.channels)
}

func (d *fakeDialer) Channel(i int) *fakeChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channels[i]
}

type spawnCall struct {
	argv  []string
	stdin string
}

type fakeSpawner struct {
	mu     sync.Mutex
	calls  []spawnCall
	result localexec.Result
	err    error
}

func (s *fakeSpawner) Spawn(_ context.Context, argv []string, stdin string) (*localexec.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, spawnCall{argv: argv, stdin: stdin})
	if s.err != nil {
		return nil, s.err
	}
	result := s.result
	return &result, nil
}

func (s *fakeSpawner) Calls() []spawnCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]spawnCall(nil), s.calls...)
}

func (s *fakeSpawner) SetResult(r localexec.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = r
}

// bashSpawner runs the script body with the local bash instead of over ssh.
type bashSpawner struct{}

func (bashSpawner) Spawn(ctx context.Context, _ []string, stdin string) (*localexec.Result, error) {
	return localexec.ExecSpawner{}.Spawn(ctx, []string{"bash"}, stdin)
}

func testConfig(t *testing.T) *sshutil.Config {
	t.Helper()
	keyFile, _ := sshtest.KeyPair(t)
	return &sshutil.Config{User: "deploy", Port: 2222, KeyFile: keyFile}
}

func captureLogs() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})), &buf
}

type testEnv struct {
	registry *Registry
	dialer   *fakeDialer
	spawner  *fakeSpawner
	config   *sshutil.Config
}

func newTestEnv(t *testing.T, run commandFunc) *testEnv {
	t.Helper()
	return &testEnv{
		registry: NewRegistry(),
		dialer:   &fakeDialer{run: run},
		spawner:  &fakeSpawner{},
		config:   testConfig(t),
	}
}

func (e *testEnv) client(t *testing.T, host string, opts ...Option) *Client {
	t.Helper()

	all := append([]Option{
		WithRegistry(e.registry),
		WithDialer(e.dialer),
		WithSpawner(e.spawner),
	}, opts...)

	c, err := New(t.Context(), host, e.config, all...)
	require.NoError(t, err)
	return c
}
