package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSendCommand creates the send command.
func NewSendCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send a message to the other contexts",
		Long: `Append a message to the shared message log.

Every other context that has joined receives it on its next synchronization
pass. The sender does not receive its own message. Delivery is best effort:
the log keeps only the most recent messages.`,
		Example:       `  hangup send "hello from tab a" --session tab-a`,
		Args:          cobra.ExactArgs(1),
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

			if err := s.engine.SendMessage(ctx, args[0]); err != nil {
				return fail(formatter, "failed to send message", err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(map[string]string{
					"sender_id": s.engine.ParticipantID(),
					"body":      args[0],
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Message sent.")
			return nil
		},
	}
	return cmd
}
