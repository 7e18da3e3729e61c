package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewNoticeCommand creates the notice command.
func NewNoticeCommand(rootOpts *RootOptions) *cobra.Command {
	var permanent bool

	cmd := &cobra.Command{
		Use:   "notice <message>",
		Short: "Display a notice in every context",
		Long: `Ask every context, including this one, to display a notice.

A notice that is not --permanent is dismissed locally by each context after
a few seconds. A permanent notice stays until 'hangup dismiss'.`,
		Example: `  hangup notice "deploy in 5 minutes"
  hangup notice "read only" --permanent`,
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

			if err := s.engine.DisplayNotice(ctx, args[0], permanent); err != nil {
				return fail(formatter, "failed to display notice", err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(map[string]any{"message": args[0], "permanent": permanent})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Notice displayed.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&permanent, "permanent", false, "keep the notice until dismissed")

	return cmd
}

// NewDismissCommand creates the dismiss command.
func NewDismissCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dismiss",
		Short:         "Dismiss the notice in every context",
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

			if err := s.engine.DismissNotice(ctx); err != nil {
				return fail(formatter, "failed to dismiss notice", err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(map[string]bool{"dismissed": true})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Notice dismissed.")
			return nil
		},
	}
	return cmd
}
