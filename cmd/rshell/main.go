// rshell runs commands and scripts on remote hosts over SSH. On first contact
// with a host it registers the local public key in the host's
// authorized_keys, then reuses one cached connection per host.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gitlab.bluewillows.net/root/rshell/pkg/localexec"
	"gitlab.bluewillows.net/root/rshell/pkg/remote"
)

// Version and BuildDate are set via ldflags during build.
// Example: -ldflags="-X main.Version=v1.0.0 -X main.BuildDate=2026-01-03"
var (
	Version   = "dev"
	BuildDate = "unknown"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(exitCode(err))
	}
}

func run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if finishErr := a.finish(); finishErr != nil && err == nil {
		err = finishErr
	}
	return err
}

// exitCode passes a remote or local non-zero exit status through to the
// caller; every other failure exits 1.
func exitCode(err error) int {
	var execErr *remote.ExecutionError
	if errors.As(err, &execErr) && execErr.ExitCode > 0 && execErr.ExitCode < 256 {
		return execErr.ExitCode
	}

	var localErr *localexec.ExitError
	if errors.As(err, &localErr) && localErr.ExitCode > 0 && localErr.ExitCode < 256 {
		return localErr.ExitCode
	}

	return 1
}
