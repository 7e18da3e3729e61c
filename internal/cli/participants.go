package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewParticipantsCommand creates the participants command.
func NewParticipantsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "participants",
		Short: "List the contexts that have joined the session",
		Long: `List the shared participant list, in join order.

The participant of the current --session is marked with an asterisk.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			ctx := commandContext(cmd)

			s, err := resumeSession(ctx, rootOpts, formatter)
			if err != nil {
				return err
			}
			defer s.close()

			list, err := s.engine.Participants(ctx)
			if err != nil {
				return fail(formatter, "failed to read participants", err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(list)
			}

			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No participants.")
				return nil
			}

			localID := s.engine.ParticipantID()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\tID\tINDEX\tNAME")
			for _, p := range list {
				marker := ""
				if p.ID == localID {
					marker = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", marker, p.ID, p.DisplayIndex, p.Person.DisplayName)
			}
			return tw.Flush()
		},
	}
	return cmd
}
