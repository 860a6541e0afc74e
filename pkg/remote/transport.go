package remote

import (
	"context"
	"io"

	"gitlab.bluewillows.net/root/rshell/pkg/sshutil"
)

// Channel is an authenticated connection able to run commands on one host.
type Channel interface {
	// Start issues command. An error means the command never reached the
	// remote shell.
	Start(command string) (Process, error)
	Close() error
}

// Process is a command running on the remote host.
type Process interface {
	Stdout() io.Reader
	Stderr() io.Reader
	// Wait returns the exit status once both streams are drained.
	Wait() (int, error)
}

// FileChannel is a Channel that can also transfer files.
type FileChannel interface {
	Channel
	FileSystem() (sshutil.FileSystem, error)
}

// Dialer opens channels.
type Dialer interface {
	Dial(ctx context.Context, host string) (Channel, error)
}

// sshDialer adapts sshutil.Dialer to Dialer.
type sshDialer struct {
	dialer *sshutil.Dialer
}

func (d *sshDialer) Dial(ctx context.Context, host string) (Channel, error) {
	conn, err := d.dialer.Dial(ctx, host)
	if err != nil {
		return nil, err
	}
	return &sshChannel{conn: conn}, nil
}

// sshChannel adapts sshutil.Conn to FileChannel.
type sshChannel struct {
	conn *sshutil.Conn
}

func (c *sshChannel) Start(command string) (Process, error) {
	proc, err := c.conn.Start(command)
	if err != nil {
		return nil, err
	}
	return proc, nil
}

func (c *sshChannel) Close() error {
	return c.conn.Close()
}

func (c *sshChannel) FileSystem() (sshutil.FileSystem, error) {
	fs, err := c.conn.FileSystem()
	if err != nil {
		return nil, err
	}
	return fs, nil
}
