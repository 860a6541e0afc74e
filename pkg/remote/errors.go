package remote

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("configuration error")

	// ErrTransport matches every *TransportError.
	ErrTransport = errors.New("transport error")

	// ErrExecution matches every *ExecutionError.
	ErrExecution = errors.New("execution error")

	// ErrClientFailed is returned by Execute once a reconnect has failed.
	// An explicit Reconnect may still recover the client.
	ErrClientFailed = errors.New("client is in failed state")

	// ErrTransferUnsupported is returned when the cached channel cannot
	// carry file transfers.
	ErrTransferUnsupported = errors.New("channel does not support file transfer")
)

// Transport operations reported in TransportError.Op.
const (
	OpDial      = "dial"
	OpIssue     = "issue"
	OpExecute   = "execute"
	OpRead      = "read"
	OpWait      = "wait"
	OpReconnect = "reconnect"
	OpProvision = "provision"
	OpScript    = "script"
	OpTransfer  = "transfer"
)

// ConfigurationError indicates missing or unusable client configuration.
type ConfigurationError struct {
	Host    string
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] configuration error: %s: %s", e.Host, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] configuration error: %s", e.Host, e.Message)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// TransportError indicates the command or script never ran to completion
// because the connection could not be used.
type TransportError struct {
	Host string
	Op   string
	// Command is the masked command or script description, if any.
	Command string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("[%s] %s failed for:\n%s\n%v", e.Host, e.Op, e.Command, e.Err)
	}
	return fmt.Sprintf("[%s] %s failed: %v", e.Host, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// ExecutionError indicates a command or script that ran and exited non-zero.
type ExecutionError struct {
	Host string
	// Command is the masked command, or the masked description of a script.
	Command  string
	ExitCode int
	// Stderr is the unmasked remote standard error.
	Stderr string
	Script bool
}

func (e *ExecutionError) Error() string {
	kind := "command"
	if e.Script {
		kind = "script"
	}
	return fmt.Sprintf("[%s] failed to run %s (exit code %d):\n%s\n%s",
		e.Host, kind, e.ExitCode, e.Command, e.Stderr)
}

// Is reports whether target is ErrExecution.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsTransport reports whether err is a transport error.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsExecution reports whether err is a non-zero exit.
func IsExecution(err error) bool {
	return errors.Is(err, ErrExecution)
}

// isIssueError reports whether err means the command never reached the
// remote shell, which is the only case worth reconnecting for.
func isIssueError(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Op == OpIssue
}
