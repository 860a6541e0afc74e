package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/pkg/sftp"

	"gitlab.bluewillows.net/root/rshell/internal/metrics"
	"gitlab.bluewillows.net/root/rshell/pkg/sshutil"
)

// WriteFile writes data to path on the host over SFTP, creating parent
// directories as needed.
func (c *Client) WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	start := time.Now()

	err := c.withFileSystem(ctx, path, func(fs sshutil.FileSystem) error {
		return fs.WriteFile(path, data, perm)
	})
	c.recordTransfer("wrote file", path, len(data), start, err)
	return err
}

// ReadFile reads path from the host over SFTP.
func (c *Client) ReadFile(ctx context.Context, path string) ([]byte, error) {
	start := time.Now()

	var data []byte
	err := c.withFileSystem(ctx, path, func(fs sshutil.FileSystem) error {
		var err error
		data, err = fs.ReadFile(path)
		return err
	})
	c.recordTransfer("read file", path, len(data), start, err)
	return data, err
}

// Stat describes path on the host. It records no transfer.
func (c *Client) Stat(ctx context.Context, path string) (os.FileInfo, error) {
	var info os.FileInfo
	err := c.withFileSystem(ctx, path, func(fs sshutil.FileSystem) error {
		var err error
		info, err = fs.Stat(path)
		return err
	})
	return info, err
}

// withFileSystem opens an SFTP session on the current connection, reconnecting
// if the session cannot be opened, and runs fn with it.
func (c *Client) withFileSystem(ctx context.Context, path string, fn func(sshutil.FileSystem) error) error {
	if c.State() == StateFailed {
		return &TransportError{Host: c.host, Op: OpTransfer, Command: path, Err: ErrClientFailed}
	}

	fs, err := withReconnect(ctx, c, func(ch Channel) (sshutil.FileSystem, error) {
		fc, ok := ch.(FileChannel)
		if !ok {
			return nil, &TransportError{Host: c.host, Op: OpTransfer, Command: path, Err: ErrTransferUnsupported}
		}
		return fc.FileSystem()
	})
	if err != nil {
		if isIssueError(err) {
			return &TransportError{Host: c.host, Op: OpTransfer, Command: path, Err: err}
		}
		return err
	}
	defer func() { _ = fs.Close() }()

	if err := fn(fs); err != nil {
		if isConnectionLost(err) {
			return &TransportError{Host: c.host, Op: OpTransfer, Command: path, Err: err}
		}
		return fmt.Errorf("[%s] %w", c.host, err)
	}
	return nil
}

// isConnectionLost reports whether err came from the connection under an SFTP
// session rather than from the remote file system.
func isConnectionLost(err error) bool {
	return errors.Is(err, sftp.ErrSSHFxConnectionLost) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, sshutil.ErrNotConnected)
}

func (c *Client) recordTransfer(msg, path string, size int, start time.Time, err error) {
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveExecution(metrics.KindTransfer, metrics.ResultError, elapsed)
		return
	}

	metrics.ObserveExecution(metrics.KindTransfer, metrics.ResultSuccess, elapsed)
	c.logger.Info(msg,
		slog.String("path", path),
		slog.Int("bytes", size),
		slog.Duration("duration", elapsed),
	)
}
