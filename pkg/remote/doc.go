// Package remote runs commands and scripts on remote hosts over SSH.
//
// # Overview
//
// A Client is bound to one host. Before the first connection to a host the
// client appends its public key to the host's ~/.ssh/authorized_keys through
// the system ssh binary, then dials a connection with golang.org/x/crypto/ssh
// and caches it in a Registry. Every Client for the same host shares that
// connection; later clients skip key registration entirely.
//
// # Usage
//
//	config := &sshutil.Config{User: "root", KeyFile: "~/.ssh/id_rsa"}
//
//	client, err := remote.New(ctx, "db1.example.com", config)
//	if err != nil {
//	    return err
//	}
//
//	result, err := client.Execute(ctx, "systemctl is-active postgresql",
//	    remote.CanFail(false))
//
//	_, err = client.RunScript(ctx, []string{
//	    "export PGPASSWORD=" + password,
//	    "psql -c 'select 1'",
//	}, remote.Mask(password), remote.Description("check database"))
//
// # Reconnecting
//
// If Execute cannot issue a command on the cached connection, the client
// registers its key again, dials a fresh connection, replaces the registry
// entry and retries. The number of retries is set with WithReconnectRetries.
// Reconnects are serialized per host: when several clients fail on the same
// connection, the first one dials and the others adopt its replacement.
// A failed reconnect leaves the client in StateFailed.
//
// # Scripts
//
// RunScript feeds the script to "bash -x" on stdin of a new ssh process. An
// ERR trap makes the script exit with the status of the first failing line.
//
// # Masking
//
// Words passed with Mask are replaced by ******** in every log record and
// error message. Returned results are never masked.
package remote
