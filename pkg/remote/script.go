package remote

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"gitlab.bluewillows.net/root/rshell/internal/metrics"
	"gitlab.bluewillows.net/root/rshell/pkg/mask"
)

// scriptPrelude makes the remote shell exit with the status of the first
// failing line.
var scriptPrelude = []string{
	"function script_trap(){ exit $? ; }",
	"trap script_trap ERR",
}

// RunScript runs lines as one bash script on the host. The script is fed on
// stdin to a new ssh process, so it never uses the cached connection. The
// first failing line aborts the script with that line's exit status.
func (c *Client) RunScript(ctx context.Context, lines []string, opts ...ExecOption) (*Result, error) {
	o := newExecOptions(false, opts)
	m := mask.New(o.mask, mask.ShellQuoteRules...)
	start := time.Now()

	description := o.description
	if description == "" {
		first := ""
		if len(lines) > 0 {
			first = lines[0]
		}
		description = first + "..."
	}
	description = m.Mask(description)

	argv, err := c.sshCommand()
	if err != nil {
		return nil, err
	}

	body := make([]string, 0, len(scriptPrelude)+len(lines))
	body = append(body, scriptPrelude...)
	body = append(body, lines...)

	spawned, err := c.spawner.Spawn(ctx, argv, strings.Join(body, "\n")+"\n")
	if err != nil {
		metrics.ObserveExecution(metrics.KindScript, metrics.ResultError, time.Since(start))
		return nil, &TransportError{Host: c.host, Op: OpScript, Command: description, Err: err}
	}

	result := &Result{
		ExitCode: spawned.ExitCode,
		Stdout:   spawned.Stdout,
		Stderr:   spawned.Stderr,
	}
	elapsed := time.Since(start)

	if o.log {
		c.logger.Info("executed script",
			slog.String("exec_id", uuid.NewString()),
			slog.String("description", description),
			slog.Int("exit_code", result.ExitCode),
			slog.String("stdout", m.Mask(result.Stdout)),
			slog.String("stderr", m.Mask(result.Stderr)),
			slog.Duration("duration", elapsed),
		)
	}

	if result.ExitCode != 0 {
		metrics.ObserveExecution(metrics.KindScript, metrics.ResultFailed, elapsed)
		if o.canFail {
			return result, &ExecutionError{
				Host:     c.host,
				Command:  description,
				ExitCode: result.ExitCode,
				Stderr:   result.Stderr,
				Script:   true,
			}
		}
		return result, nil
	}

	metrics.ObserveExecution(metrics.KindScript, metrics.ResultSuccess, elapsed)
	return result, nil
}

// sshCommand builds the ssh argv that opens a remote shell reading the
// script from stdin.
func (c *Client) sshCommand() ([]string, error) {
	if c.config.KeyFile == "" {
		return nil, &ConfigurationError{
			Host:    c.host,
			Field:   "key_file",
			Message: "an SSH key must be configured to run scripts",
		}
	}

	key, err := c.config.PrivateKeyPath()
	if err != nil {
		return nil, &ConfigurationError{Host: c.host, Field: "key_file", Message: err.Error()}
	}

	argv := []string{c.sshBinary}

	if c.config.VerifyHostKey {
		argv = append(argv, "-o", "StrictHostKeyChecking=yes")
		knownHosts, err := c.config.KnownHostsPath()
		if err != nil {
			return nil, &ConfigurationError{Host: c.host, Field: "known_hosts_file", Message: err.Error()}
		}
		if knownHosts != "" {
			argv = append(argv, "-o", "UserKnownHostsFile="+knownHosts)
		}
	} else {
		argv = append(argv, "-o", "StrictHostKeyChecking=no", "-o", "UserKnownHostsFile=/dev/null")
	}

	timeout := int(c.config.GetTimeout().Seconds())
	if timeout < 1 {
		timeout = 1
	}

	shell := "bash"
	if c.trace {
		shell = "bash -x"
	}

	argv = append(argv,
		"-o", "ConnectTimeout="+strconv.Itoa(timeout),
		"-p", strconv.Itoa(c.config.GetPort()),
		"-i", key,
		fmt.Sprintf("%s@%s", c.config.User, c.host),
		shell,
	)
	return argv, nil
}
