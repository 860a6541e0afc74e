package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gitlab.bluewillows.net/root/rshell/internal/metrics"
	"gitlab.bluewillows.net/root/rshell/pkg/localexec"
	"gitlab.bluewillows.net/root/rshell/pkg/mask"
)

func newLocalCmd(a *app) *cobra.Command {
	var (
		masks  []string
		noFail bool
		shell  bool
		dir    string
	)

	cmd := &cobra.Command{
		Use:   "local -- COMMAND...",
		Short: "Run a command on this machine with masked logging",
		Example: `  rshell local -- ls -la /tmp
  rshell local --shell --mask "$PASS" -- 'echo "$PASS" | sudo -S true'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()

			result, err := localexec.Execute(cmd.Context(), args, localexec.Options{
				Dir:     dir,
				Shell:   shell,
				CanFail: !noFail,
				Mask:    masks,
				Log:     true,
				Logger:  a.logger,
			})

			switch {
			case result == nil:
				metrics.ObserveExecution(metrics.KindLocal, metrics.ResultError, time.Since(start))
			case result.ExitCode != 0:
				metrics.ObserveExecution(metrics.KindLocal, metrics.ResultFailed, time.Since(start))
			default:
				metrics.ObserveExecution(metrics.KindLocal, metrics.ResultSuccess, time.Since(start))
			}

			if result != nil {
				m := mask.New(masks, mask.ShellQuoteRules...)
				display := localexec.QuoteArgs(args)
				if shell {
					display = strings.Join(args, " ")
				}
				printResult(cmd, "[local] "+m.Mask(display), result.ExitCode, result.Stdout, result.Stderr)
			}
			return err
		},
	}

	cmd.Flags().StringArrayVar(&masks, flagMask, nil, "word to hide from logs and errors (repeatable)")
	cmd.Flags().BoolVar(&noFail, flagNoFail, false, "treat a non-zero exit as success")
	cmd.Flags().BoolVar(&shell, "shell", false, "run the command through /bin/sh -c")
	cmd.Flags().StringVar(&dir, "dir", "", "working directory")

	return cmd
}
