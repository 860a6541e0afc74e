package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gitlab.bluewillows.net/root/rshell/internal/config"
	"gitlab.bluewillows.net/root/rshell/internal/metrics"
	"gitlab.bluewillows.net/root/rshell/internal/status"
	"gitlab.bluewillows.net/root/rshell/pkg/remote"
	"gitlab.bluewillows.net/root/rshell/pkg/sshutil"
)

const (
	flagConfig          = "config"
	flagLogLevel        = "log-level"
	flagLogFormat       = "log-format"
	flagLogFile         = "log-file"
	flagUser            = "user"
	flagKey             = "key"
	flagPort            = "port"
	flagTimeout         = "timeout"
	flagVerifyHostKey   = "verify-host-key"
	flagKnownHosts      = "known-hosts"
	flagRetries         = "retries"
	flagTrace           = "trace"
	flagMetricsTextfile = "metrics-textfile"
	flagMask            = "mask"
	flagNoFail          = "no-fail"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string

	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error

	// clientOptions are appended to the options of every remote client.
	clientOptions []remote.Option
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "rshell",
		Short: "Run commands and scripts on remote hosts over SSH",
		Long: `rshell runs commands and scripts on remote hosts over SSH.

Before the first connection to a host, the public key (<key>.pub) is appended
to the host's ~/.ssh/authorized_keys through the ssh binary. Settings come
from defaults, an optional config file, RSHELL_* environment variables and
flags, each overriding the previous.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.configPath, flagConfig, "c", "", "config file (.yaml, .yml or .toml)")
	f.String(flagLogLevel, config.DefaultLogLevel, "log level: debug, info, warn, error")
	f.String(flagLogFormat, config.DefaultLogFormat, "log format: json, text")
	f.String(flagLogFile, "", "also append JSON log records to this file")
	f.StringP(flagUser, "u", sshutil.DefaultSSHUser, "SSH user")
	f.StringP(flagKey, "i", sshutil.DefaultSSHKeyFile, "SSH private key; the public key is expected next to it with a .pub suffix")
	f.IntP(flagPort, "p", sshutil.DefaultSSHPort, "SSH port")
	f.Duration(flagTimeout, sshutil.DefaultSSHTimeout, "SSH connection timeout")
	f.Bool(flagVerifyHostKey, config.DefaultVerifyHostKey, "verify host keys against --known-hosts")
	f.String(flagKnownHosts, "", "known_hosts file used with --verify-host-key")
	f.Int(flagRetries, remote.DefaultReconnectRetries, "reconnect attempts when a command cannot be issued")
	f.Bool(flagTrace, config.DefaultTraceRemoteExecution, "run scripts under bash -x")
	f.String(flagMetricsTextfile, "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		newExecCmd(a),
		newScriptCmd(a),
		newPutCmd(a),
		newGetCmd(a),
		newLocalCmd(a),
		newVersionCmd(),
	)

	return root
}

// setup loads the configuration, applies flags set on the command line and
// installs the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if err := applyFlags(cmd.Flags(), cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog, err := setupLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a.cfg = cfg
	a.logger = logger
	a.closeLog = closeLog

	metrics.SetBuildInfo(Version, runtime.Version())

	return nil
}

// finish writes the metrics text file and closes the log file. It runs
// whether or not the command succeeded.
func (a *app) finish() error {
	var errs []error

	if a.cfg != nil && a.cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
			errs = append(errs, fmt.Errorf("writing metrics: %w", err))
		}
	}

	if a.closeLog != nil {
		if err := a.closeLog(); err != nil {
			errs = append(errs, fmt.Errorf("closing log file: %w", err))
		}
		a.closeLog = nil
	}

	return errors.Join(errs...)
}

// newClient returns a remote client for host configured from a.cfg.
func (a *app) newClient(ctx context.Context, host string) (*remote.Client, error) {
	opts := append(a.cfg.ClientOptions(), remote.WithLogger(a.logger))
	opts = append(opts, a.clientOptions...)
	return remote.New(ctx, host, a.cfg.SSHConfig(), opts...)
}

// printResult writes the command output and a status line.
func printResult(cmd *cobra.Command, label string, exitCode int, stdout, stderr string) {
	stdout = strings.TrimSuffix(stdout, "\n")
	stderr = strings.TrimSuffix(stderr, "\n")

	if stdout != "" {
		fmt.Fprintln(cmd.OutOrStdout(), stdout)
	}
	if stderr != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), stderr)
	}

	state, color := status.ForExitCode(exitCode)
	fmt.Fprintln(cmd.ErrOrStderr(), status.Message(label, state, color))
}

// applyFlags copies every flag the user set explicitly onto cfg.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	stringFlags := map[string]*string{
		flagLogLevel:        &cfg.LogLevel,
		flagLogFormat:       &cfg.LogFormat,
		flagLogFile:         &cfg.LogFile,
		flagUser:            &cfg.SSHUser,
		flagKey:             &cfg.SSHKeyFile,
		flagKnownHosts:      &cfg.KnownHostsFile,
		flagMetricsTextfile: &cfg.MetricsTextfile,
	}
	for name, dst := range stringFlags {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	intFlags := map[string]*int{
		flagPort:    &cfg.SSHPort,
		flagRetries: &cfg.ReconnectRetries,
	}
	for name, dst := range intFlags {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetInt(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	boolFlags := map[string]*bool{
		flagVerifyHostKey: &cfg.VerifyHostKey,
		flagTrace:         &cfg.TraceRemoteExecution,
	}
	for name, dst := range boolFlags {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	if flags.Changed(flagTimeout) {
		v, err := flags.GetDuration(flagTimeout)
		if err != nil {
			return err
		}
		cfg.SSHTimeout = v
	}

	return nil
}

// since returns the elapsed time rounded for display.
func since(start time.Time) time.Duration {
	return time.Since(start).Round(time.Millisecond)
}

// printDone prints a success line the way pterm formats it.
func printDone(cmd *cobra.Command, format string, a ...any) {
	pterm.Fprintln(cmd.ErrOrStderr(), pterm.Success.Sprintf(format, a...))
}
