package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const (
	cmdServe   = "serve"
	cmdMigrate = "migrate"
	cmdStatus  = "status"
	cmdHistory = "history"
	cmdReset   = "reset"
)

type command struct {
	name    string
	userID  string
	role    string
	created time.Time
	limit   int
}

type runFunc func(cmd *cobra.Command, c command) error

// newRootCmd builds the mfad command tree. Each subcommand resolves its flags
// into a command and hands it to run. The bare root runs serve.
func newRootCmd(run runFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "mfad",
		Short: "Operations side of an MFA deployment",
		Long: `mfad applies schema migrations, sweeps expired lockouts and serves
/metrics /healthz /readyz. The admin commands act on one user through the
same stores and locks the embedding application uses.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, command{name: cmdServe})
		},
	}

	root.AddCommand(
		simpleCmd(cmdServe, "Migrate, sweep expired lockouts and serve ops endpoints", run),
		simpleCmd(cmdMigrate, "Apply schema migrations and exit", run),
		newStatusCmd(run),
		newHistoryCmd(run),
		newResetCmd(run),
	)
	return root
}

func simpleCmd(name, short string, run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, command{name: name})
		},
	}
}

func newStatusCmd(run runFunc) *cobra.Command {
	c := command{name: cmdStatus}
	var created string
	cmd := &cobra.Command{
		Use:   "status --user ID [--role R] [--created RFC3339]",
		Short: "Print enrollment, lockout and enforcement state for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if created != "" {
				t, err := time.Parse(time.RFC3339, created)
				if err != nil {
					return fmt.Errorf("invalid --created: %w", err)
				}
				c.created = t
			}
			return run(cmd, c)
		},
	}
	userFlag(cmd, &c.userID)
	cmd.Flags().StringVar(&c.role, "role", "", "role used for the enforcement report")
	cmd.Flags().StringVar(&created, "created", "", "account creation time, RFC 3339")
	return cmd
}

func newHistoryCmd(run runFunc) *cobra.Command {
	c := command{name: cmdHistory}
	cmd := &cobra.Command{
		Use:   "history --user ID [--limit N]",
		Short: "Print the newest audit events of a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, c)
		},
	}
	userFlag(cmd, &c.userID)
	cmd.Flags().IntVar(&c.limit, "limit", 0, "number of events, newest first")
	return cmd
}

func newResetCmd(run runFunc) *cobra.Command {
	c := command{name: cmdReset}
	cmd := &cobra.Command{
		Use:   "reset --user ID",
		Short: "Disable MFA for a user who lost their device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, c)
		},
	}
	userFlag(cmd, &c.userID)
	return cmd
}

func userFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVar(dst, "user", "", "user id")
	_ = cmd.MarkFlagRequired("user")
}
