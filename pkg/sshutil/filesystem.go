package sshutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"sync"

	"github.com/pkg/sftp"
)

// FileSystem defines the remote file operations available over a connection.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
	Stat(path string) (os.FileInfo, error)
	Close() error
}

// SFTPFileSystem implements FileSystem over SFTP.
type SFTPFileSystem struct {
	conn   *Conn
	logger *slog.Logger

	mu         sync.RWMutex
	sftpClient *sftp.Client
}

// NewSFTPFileSystem creates a new SFTP-based FileSystem on conn.
// Connect must be called before use.
func NewSFTPFileSystem(conn *Conn) *SFTPFileSystem {
	return &SFTPFileSystem{
		conn:   conn,
		logger: conn.logger,
	}
}

// FileSystem opens an SFTP session on the connection.
func (c *Conn) FileSystem() (*SFTPFileSystem, error) {
	fs := NewSFTPFileSystem(c)
	if err := fs.Connect(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Connect establishes the SFTP session over the SSH connection.
func (fs *SFTPFileSystem) Connect() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.sftpClient != nil {
		return nil
	}

	client, err := fs.conn.sshClient()
	if err != nil {
		return err
	}

	fs.logger.Debug("establishing SFTP session", slog.String("host", fs.conn.host))

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return fmt.Errorf("creating SFTP client: %w", err)
	}

	fs.sftpClient = sftpClient
	return nil
}

// Close closes the SFTP session.
// Safe to call multiple times. Does not close the underlying SSH connection.
func (fs *SFTPFileSystem) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.sftpClient == nil {
		return nil
	}

	err := fs.sftpClient.Close()
	fs.sftpClient = nil

	return err
}

// getSFTP returns the SFTP client, ensuring it's connected.
func (fs *SFTPFileSystem) getSFTP() (*sftp.Client, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.sftpClient == nil {
		return nil, ErrNotConnected
	}

	return fs.sftpClient, nil
}

// ReadFile reads the contents of a file from the remote system.
func (fs *SFTPFileSystem) ReadFile(name string) ([]byte, error) {
	sftpClient, err := fs.getSFTP()
	if err != nil {
		return nil, err
	}

	file, err := sftpClient.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", name, err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", name, err)
	}

	fs.logger.Debug("file read",
		slog.String("path", name),
		slog.Int("bytes", len(data)),
	)

	return data, nil
}

// WriteFile writes data to a file on the remote system, creating parent
// directories as needed.
func (fs *SFTPFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	sftpClient, err := fs.getSFTP()
	if err != nil {
		return err
	}

	dir := path.Dir(name)
	if dir != "." && dir != "/" {
		if err := fs.mkdirAll(sftpClient, dir, 0o755); err != nil {
			return fmt.Errorf("creating parent directory %s: %w", dir, err)
		}
	}

	file, err := sftpClient.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("opening file %s for write: %w", name, err)
	}
	defer func() { _ = file.Close() }()

	n, err := file.Write(data)
	if err != nil {
		return fmt.Errorf("writing to file %s: %w", name, err)
	}
	if n != len(data) {
		return fmt.Errorf("short write to file %s: wrote %d of %d bytes", name, n, len(data))
	}

	if err := sftpClient.Chmod(name, perm); err != nil {
		fs.logger.Warn("failed to set file permissions",
			slog.String("path", name),
			slog.String("error", err.Error()),
		)
	}

	fs.logger.Debug("file written",
		slog.String("path", name),
		slog.Int("bytes", n),
	)

	return nil
}

// Stat returns file info for a path on the remote system.
func (fs *SFTPFileSystem) Stat(name string) (os.FileInfo, error) {
	sftpClient, err := fs.getSFTP()
	if err != nil {
		return nil, err
	}

	info, err := sftpClient.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}

	return info, nil
}

func (fs *SFTPFileSystem) mkdirAll(sftpClient *sftp.Client, name string, perm os.FileMode) error {
	if info, err := sftpClient.Stat(name); err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("path exists but is not a directory: %s", name)
	}

	if err := sftpClient.MkdirAll(name); err != nil {
		return fmt.Errorf("creating directory %s: %w", name, err)
	}

	if err := sftpClient.Chmod(name, perm); err != nil {
		fs.logger.Warn("failed to set directory permissions",
			slog.String("path", name),
			slog.String("error", err.Error()),
		)
	}

	return nil
}
