package remote

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"gitlab.bluewillows.net/root/rshell/internal/metrics"
	"gitlab.bluewillows.net/root/rshell/pkg/mask"
	"gitlab.bluewillows.net/root/rshell/pkg/sshutil"
)

// Result is the outcome of a command or script that ran to completion.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Execute runs command on the host over the cached connection. If the
// command cannot be issued the client reconnects and tries again, up to the
// configured number of retries.
//
// A non-zero exit is returned as an *ExecutionError alongside the result
// unless CanFail(false) is given.
func (c *Client) Execute(ctx context.Context, command string, opts ...ExecOption) (*Result, error) {
	o := newExecOptions(true, opts)
	m := mask.New(o.mask, mask.ShellQuoteRules...)
	masked := m.Mask(command)
	start := time.Now()

	if c.State() == StateFailed {
		return nil, fmt.Errorf("[%s] %w", c.host, ErrClientFailed)
	}

	proc, err := withReconnect(ctx, c, func(ch Channel) (Process, error) {
		return ch.Start(command)
	})
	if err != nil {
		metrics.ObserveExecution(metrics.KindCommand, metrics.ResultError, time.Since(start))
		if isIssueError(err) {
			var te *TransportError
			errors.As(err, &te)
			return nil, &TransportError{Host: c.host, Op: OpExecute, Command: masked, Err: te.Err}
		}
		return nil, err
	}

	stdout, stderr, err := drain(proc)
	if err != nil {
		_, _ = proc.Wait()
		metrics.ObserveExecution(metrics.KindCommand, metrics.ResultError, time.Since(start))
		return nil, &TransportError{Host: c.host, Op: OpRead, Command: masked, Err: err}
	}

	code, err := proc.Wait()
	if err != nil {
		metrics.ObserveExecution(metrics.KindCommand, metrics.ResultError, time.Since(start))
		return nil, &TransportError{Host: c.host, Op: OpWait, Command: masked, Err: err}
	}

	result := &Result{
		ExitCode: code,
		Stdout:   strings.Join(stdout, "\n"),
		Stderr:   strings.Join(stderr, "\n"),
	}
	elapsed := time.Since(start)

	if o.log {
		c.logger.Info("executed command",
			slog.String("exec_id", uuid.NewString()),
			slog.String("command", masked),
			slog.Int("exit_code", code),
			slog.String("stdout", m.Lines(stdout)),
			slog.String("stderr", m.Lines(stderr)),
			slog.Duration("duration", elapsed),
		)
	}

	if code != 0 {
		metrics.ObserveExecution(metrics.KindCommand, metrics.ResultFailed, elapsed)
		if o.canFail {
			return result, &ExecutionError{
				Host:     c.host,
				Command:  masked,
				ExitCode: code,
				Stderr:   result.Stderr,
			}
		}
		return result, nil
	}

	metrics.ObserveExecution(metrics.KindCommand, metrics.ResultSuccess, elapsed)
	return result, nil
}

// withReconnect runs attempt on the current channel. An attempt error means
// the operation never reached the host; it is retried on a fresh connection.
// Attempts that return a *TransportError themselves are not retried.
func withReconnect[T any](ctx context.Context, c *Client, attempt func(Channel) (T, error)) (T, error) {
	policy := retrypolicy.Builder[T]().
		HandleIf(func(_ T, err error) bool {
			return isIssueError(err)
		}).
		WithMaxRetries(c.retries).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[T]) {
			c.logger.Warn("could not reach host, retrying on a new connection",
				slog.Int("retry", e.Retries()),
				slog.String("error", e.LastError().Error()),
			)
		}).
		Build()

	// failed is the channel the previous attempt could not use.
	var failed Channel

	return failsafe.NewExecutor[T](policy).
		WithContext(ctx).
		GetWithExecution(func(exec failsafe.Execution[T]) (T, error) {
			var zero T

			if exec.Attempts() > 1 {
				if err := c.reconnect(ctx, failed); err != nil {
					return zero, err
				}
			}

			ch := c.currentChannel()
			if ch == nil {
				return zero, &TransportError{Host: c.host, Op: OpIssue, Err: sshutil.ErrNotConnected}
			}
			failed = ch

			v, err := attempt(ch)
			if err != nil {
				var te *TransportError
				if errors.As(err, &te) {
					return zero, err
				}
				return zero, &TransportError{Host: c.host, Op: OpIssue, Err: err}
			}
			return v, nil
		})
}

// drain reads both streams to completion at the same time so neither can
// block the other.
func drain(proc Process) (stdout, stderr []string, err error) {
	var g errgroup.Group

	g.Go(func() error {
		var err error
		stdout, err = readLines(proc.Stdout())
		return err
	})
	g.Go(func() error {
		var err error
		stderr, err = readLines(proc.Stderr())
		return err
	})

	err = g.Wait()
	return stdout, stderr, err
}

// readLines splits r into lines without their terminators.
func readLines(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)

	var lines []string
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			lines = append(lines, strings.TrimSuffix(line, "\r"))
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
	}
}
