package sshutil

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestNewSFTPFileSystem(t *testing.T) {
	conn := &Conn{host: "example.com", logger: slog.Default()}

	t.Run("basic creation", func(t *testing.T) {
		fs := NewSFTPFileSystem(conn)
		if fs.conn != conn {
			t.Error("expected filesystem to keep the connection")
		}
		if fs.logger == nil {
			t.Error("expected logger to be set")
		}
	})

	t.Run("not connected", func(t *testing.T) {
		fs := NewSFTPFileSystem(conn)

		if _, err := fs.ReadFile("/etc/hosts"); !errors.Is(err, ErrNotConnected) {
			t.Errorf("ReadFile() error = %v, want ErrNotConnected", err)
		}
		if err := fs.WriteFile("/tmp/x", []byte("x"), 0o644); !errors.Is(err, ErrNotConnected) {
			t.Errorf("WriteFile() error = %v, want ErrNotConnected", err)
		}
		if _, err := fs.Stat("/tmp"); !errors.Is(err, ErrNotConnected) {
			t.Errorf("Stat() error = %v, want ErrNotConnected", err)
		}
		if err := fs.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
}

func TestSFTPFileSystem_RoundTrip(t *testing.T) {
	conn, _ := dialTestServer(t)

	fs, err := conn.FileSystem()
	if err != nil {
		t.Fatalf("FileSystem() error = %v", err)
	}
	t.Cleanup(func() { _ = fs.Close() })

	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "deeper", "file.txt")

	if err := fs.WriteFile(target, []byte("payload"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	data, err := fs.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("ReadFile() = %q, want %q", data, "payload")
	}

	info, err := fs.Stat(target)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size() != int64(len("payload")) {
		t.Errorf("Stat().Size() = %d, want %d", info.Size(), len("payload"))
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Stat().Mode() = %v, want 0600", info.Mode().Perm())
	}

	local, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("os.ReadFile() error = %v", err)
	}
	if string(local) != "payload" {
		t.Errorf("local content = %q, want %q", local, "payload")
	}

	// Writing under an existing directory reuses it.
	if err := fs.WriteFile(filepath.Join(dir, "nested", "other.txt"), []byte("x"), 0o644); err != nil {
		t.Errorf("WriteFile() into existing directory error = %v", err)
	}

	// A file where a parent directory should be.
	if err := fs.WriteFile(filepath.Join(target, "child"), []byte("x"), 0o644); err == nil {
		t.Error("expected error when a parent path is a file")
	}
}

func TestSFTPFileSystem_Missing(t *testing.T) {
	conn, _ := dialTestServer(t)

	fs, err := conn.FileSystem()
	if err != nil {
		t.Fatalf("FileSystem() error = %v", err)
	}
	t.Cleanup(func() { _ = fs.Close() })

	missing := filepath.Join(t.TempDir(), "missing")

	if _, err := fs.ReadFile(missing); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile() error = %v, want os.ErrNotExist", err)
	}
	if _, err := fs.Stat(missing); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Stat() error = %v, want os.ErrNotExist", err)
	}
}
