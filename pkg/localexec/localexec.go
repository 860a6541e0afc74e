// Package localexec runs processes on the local machine and collects their output.
package localexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"gitlab.bluewillows.net/root/rshell/pkg/mask"
)

// Result holds the output of a finished process.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ExitError is returned when a process exits non-zero and the caller asked
// for fail-fast behavior. Command is already masked.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("failed to execute command: %s (exit code %d)", e.Command, e.ExitCode)
}

// Spawner starts a process, feeds it stdin and waits for it to finish.
// A non-zero exit is reported in the Result, not as an error; an error means
// the process could not be started or waited on.
type Spawner interface {
	Spawn(ctx context.Context, argv []string, stdin string) (*Result, error)
}

// ExecSpawner implements Spawner with os/exec.
type ExecSpawner struct {
	Dir string
}

// Spawn runs argv[0] with the remaining arguments.
func (s ExecSpawner) Spawn(ctx context.Context, argv []string, stdin string) (*Result, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = s.Dir
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("failed to run %s: %w", argv[0], err)
		}
	}

	return result, nil
}

// Options controls a single Execute call.
type Options struct {
	// Dir is the working directory. Empty means the current one.
	Dir string

	// Shell runs the command through /bin/sh -c. The command must then be a
	// single string.
	Shell bool

	// CanFail returns an *ExitError on a non-zero exit.
	CanFail bool

	// Mask lists words hidden from log output.
	Mask []string

	// Log emits one record with the masked command and output.
	Log bool

	// Logger receives the record. Defaults to slog.Default().
	Logger *slog.Logger
}

// Execute runs cmd locally. With Shell set, cmd is joined with spaces and
// handed to /bin/sh -c; otherwise cmd[0] is executed directly.
func Execute(ctx context.Context, cmd []string, opts Options) (*Result, error) {
	if len(cmd) == 0 {
		return nil, errors.New("empty command")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := mask.New(opts.Mask, mask.ShellQuoteRules...)

	var argv []string
	var display string
	if opts.Shell {
		display = strings.Join(cmd, " ")
		argv = []string{"/bin/sh", "-c", display}
	} else {
		display = QuoteArgs(cmd)
		argv = cmd
	}
	masked := m.Mask(display)

	result, err := ExecSpawner{Dir: opts.Dir}.Spawn(ctx, argv, "")
	if err != nil {
		return nil, fmt.Errorf("executing %s: %w", masked, err)
	}

	if opts.Log {
		logger.Info("executing local command",
			slog.String("command", masked),
			slog.Int("exit_code", result.ExitCode),
			slog.String("stdout", m.Mask(result.Stdout)),
			slog.String("stderr", m.Mask(result.Stderr)),
		)
	}

	if result.ExitCode != 0 && opts.CanFail {
		return result, &ExitError{
			Command:  masked,
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
		}
	}

	return result, nil
}
