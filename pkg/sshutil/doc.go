// Package sshutil provides the SSH transport used by the remote shell client.
//
// # Overview
//
// The package provides three main components:
//
//   - [Dialer]: Opens authenticated connections from one [Config]
//   - [Conn]: A live connection that starts command [Process]es
//   - [SFTPFileSystem]: Implements [FileSystem] over SFTP on a [Conn]
//
// # Basic Usage
//
//	config := &sshutil.Config{
//		User:    "admin",
//		Port:    22,
//		KeyFile: "~/.ssh/id_ed25519",
//	}
//
//	dialer, err := sshutil.NewDialer(config)
//	if err != nil {
//		return err
//	}
//
//	conn, err := dialer.Dial(ctx, "db-1.internal")
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	proc, err := conn.Start("uptime")
//	if err != nil {
//		return err
//	}
//	out, _ := io.ReadAll(proc.Stdout())
//	_, _ = io.ReadAll(proc.Stderr())
//	code, err := proc.Wait()
//
// # Key Files
//
// KeyFile may name either half of a key pair. [Config.PrivateKeyPath] strips
// a trailing .pub and [Config.PublicKeyPath] appends one; both expand a
// leading ~.
//
// # Security Considerations
//
// Host key verification is off unless VerifyHostKey is set, in which case
// KnownHostsFile is required and loaded with the knownhosts package. Leaving
// it off trusts whatever answers on the address; only do so on networks
// where that is acceptable.
package sshutil
