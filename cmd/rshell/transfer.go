package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newPutCmd(a *app) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:     "put HOST LOCAL REMOTE",
		Short:   "Copy a local file to a remote host over SFTP",
		Example: `  rshell put web1 ./nginx.conf /etc/nginx/nginx.conf --mode 0644`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, local, target := args[0], args[1], args[2]

			perm, err := parseMode(mode)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(local)
			if err != nil {
				return fmt.Errorf("reading %s: %w", local, err)
			}

			client, err := a.newClient(cmd.Context(), host)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			start := time.Now()
			if err := client.WriteFile(cmd.Context(), target, data, perm); err != nil {
				return err
			}

			printDone(cmd, "copied %s to %s:%s (%d bytes) in %v", local, host, target, len(data), since(start))
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "0644", "permissions of the remote file, in octal")

	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get HOST REMOTE [LOCAL]",
		Short: "Copy a file from a remote host over SFTP",
		Long: `Copies REMOTE from HOST to LOCAL. LOCAL defaults to the base name of
REMOTE in the current directory; "-" writes to standard output.`,
		Example: `  rshell get db1 /etc/postgresql/16/main/postgresql.conf
  rshell get db1 /var/log/syslog - | tail`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, source := args[0], args[1]

			local := filepath.Base(source)
			if len(args) == 3 {
				local = args[2]
			}

			client, err := a.newClient(cmd.Context(), host)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			info, err := client.Stat(cmd.Context(), source)
			if err != nil {
				return err
			}
			if info.IsDir() {
				return fmt.Errorf("%s:%s is a directory", host, source)
			}

			start := time.Now()
			data, err := client.ReadFile(cmd.Context(), source)
			if err != nil {
				return err
			}

			if local == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}

			if err := os.WriteFile(local, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", local, err)
			}

			printDone(cmd, "copied %s:%s to %s (%d bytes) in %v", host, source, local, len(data), since(start))
			return nil
		},
	}

	return cmd
}

// parseMode parses an octal permission string such as "0644".
func parseMode(s string) (os.FileMode, error) {
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil || n > 0o7777 {
		return 0, fmt.Errorf("invalid mode %q: use octal permissions like 0644", s)
	}
	return os.FileMode(n), nil
}
