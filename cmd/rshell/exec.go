package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gitlab.bluewillows.net/root/rshell/pkg/mask"
	"gitlab.bluewillows.net/root/rshell/pkg/remote"
)

func newExecCmd(a *app) *cobra.Command {
	var (
		masks  []string
		noFail bool
		quiet  bool
	)

	cmd := &cobra.Command{
		Use:   "exec HOST -- COMMAND...",
		Short: "Run a command on a remote host",
		Long: `Runs a command on HOST over the cached SSH connection. If the command
cannot be issued, rshell reconnects and tries again up to --retries times.
The remote exit status becomes rshell's exit status.`,
		Example: `  rshell exec db1.example.com -- systemctl is-active postgresql
  rshell exec --mask "$TOKEN" web1 -- curl -sH "Authorization: $TOKEN" localhost/health`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			host := args[0]
			command := strings.Join(args[1:], " ")

			client, err := a.newClient(cmd.Context(), host)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			result, err := client.Execute(cmd.Context(), command,
				remote.Mask(masks...),
				remote.CanFail(!noFail),
				remote.Log(!quiet),
			)
			if result != nil {
				label := fmt.Sprintf("[%s] %s", host, mask.New(masks, mask.ShellQuoteRules...).Mask(command))
				printResult(cmd, label, result.ExitCode, result.Stdout, result.Stderr)
			}
			return err
		},
	}

	cmd.Flags().StringArrayVar(&masks, flagMask, nil, "word to hide from logs and errors (repeatable)")
	cmd.Flags().BoolVar(&noFail, flagNoFail, false, "treat a non-zero exit as success")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not log the command and its output")

	return cmd
}
