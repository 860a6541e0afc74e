package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"gitlab.bluewillows.net/root/rshell/pkg/remote"
)

func newScriptCmd(a *app) *cobra.Command {
	var (
		masks       []string
		noFail      bool
		logRecord   bool
		description string
	)

	cmd := &cobra.Command{
		Use:   "script HOST [FILE]",
		Short: "Run a bash script on a remote host",
		Long: `Runs FILE, or standard input when FILE is omitted or "-", as one bash
script on HOST through a new ssh process. The first failing line stops the
script and its status becomes rshell's exit status.`,
		Example: `  rshell script db1.example.com setup.sh
  printf 'cd /srv/app\ngit pull\nmake install\n' | rshell script app1 --description deploy`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			host := args[0]

			source := "-"
			if len(args) == 2 {
				source = args[1]
			}

			lines, err := readScript(cmd.InOrStdin(), source)
			if err != nil {
				return err
			}

			client, err := a.newClient(cmd.Context(), host)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			opts := []remote.ExecOption{
				remote.Mask(masks...),
				remote.CanFail(!noFail),
				remote.Log(logRecord),
			}
			if description != "" {
				opts = append(opts, remote.Description(description))
			}

			result, err := client.RunScript(cmd.Context(), lines, opts...)
			if result != nil {
				label := description
				if label == "" {
					label = source
				}
				printResult(cmd, fmt.Sprintf("[%s] %s", host, label), result.ExitCode, result.Stdout, result.Stderr)
			}
			return err
		},
	}

	cmd.Flags().StringArrayVar(&masks, flagMask, nil, "word to hide from logs and errors (repeatable)")
	cmd.Flags().BoolVar(&noFail, flagNoFail, false, "treat a non-zero exit as success")
	cmd.Flags().BoolVar(&logRecord, "log", false, "log the script output")
	cmd.Flags().StringVarP(&description, "description", "d", "", "name for the script in logs and errors")

	return cmd
}

// readScript returns the lines of source, or of stdin for "-". A trailing
// newline does not produce an empty last line.
func readScript(stdin io.Reader, source string) ([]string, error) {
	var data []byte
	var err error

	if source == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}

	text := strings.TrimSuffix(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if text == "" {
		return nil, fmt.Errorf("script %s is empty", source)
	}
	return strings.Split(text, "\n"), nil
}
