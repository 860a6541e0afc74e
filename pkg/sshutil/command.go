package sshutil

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/crypto/ssh"
)

// Conn is an authenticated connection to one host.
type Conn struct {
	host   string
	logger *slog.Logger

	mu     sync.RWMutex
	client *ssh.Client
}

// Host returns the host this connection was dialed for.
func (c *Conn) Host() string {
	return c.host
}

// Close closes the SSH connection.
// Safe to call multiple times.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}

	err := c.client.Close()
	c.client = nil

	c.logger.Debug("SSH connection closed",
		slog.String("host", c.host),
	)

	return err
}

// sshClient returns the underlying client, or ErrNotConnected after Close.
func (c *Conn) sshClient() (*ssh.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.client == nil {
		return nil, ErrNotConnected
	}
	return c.client, nil
}

// Process is a command started on the remote host.
type Process struct {
	session *ssh.Session
	stdout  io.Reader
	stderr  io.Reader
}

// Start issues command in a new session. Any error means the command never
// reached the remote shell.
func (c *Conn) Start(command string) (*Process, error) {
	client, err := c.sshClient()
	if err != nil {
		return nil, err
	}

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("creating SSH session: %w", err)
	}

	stdout, err := session.StdoutPipe()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("opening stdout: %w", err)
	}

	stderr, err := session.StderrPipe()
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("opening stderr: %w", err)
	}

	if err := session.Start(command); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("starting command: %w", err)
	}

	return &Process{session: session, stdout: stdout, stderr: stderr}, nil
}

// Stdout returns the remote standard output stream.
func (p *Process) Stdout() io.Reader {
	return p.stdout
}

// Stderr returns the remote standard error stream.
func (p *Process) Stderr() io.Reader {
	return p.stderr
}

// Wait blocks until the command exits and returns its exit status. Both
// streams must be drained first. The session is closed afterwards.
func (p *Process) Wait() (int, error) {
	defer func() { _ = p.session.Close() }()

	err := p.session.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}

	return -1, fmt.Errorf("waiting for command: %w", err)
}
