package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sessions",
		Short:         "List session keys with private data in the database",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			_, st, err := openStore(rootOpts, formatter)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := st.Close(); closeErr != nil {
					formatter.VerboseLog("error closing database: %v", closeErr)
				}
			}()

			keys, err := st.Sessions(commandContext(cmd))
			if err != nil {
				return fail(formatter, "failed to list sessions", err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(keys)
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
	return cmd
}

// NewPurgeCommand creates the purge command.
func NewPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete all shared data and this session's private data",
		Long: `Delete every shared record and every private record of --session.

Other sessions keep their private data, including their participant
identity, but will find the participant list and state empty.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			cfg, st, err := openStore(rootOpts, formatter)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := st.Close(); closeErr != nil {
					formatter.VerboseLog("error closing database: %v", closeErr)
				}
			}()

			if err := st.Purge(commandContext(cmd), cfg.Session); err != nil {
				return fail(formatter, "failed to purge", err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(map[string]string{"purged": cfg.Session})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged shared data and session %s.\n", cfg.Session)
			return nil
		},
	}
	return cmd
}
