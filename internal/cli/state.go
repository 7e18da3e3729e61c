package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/hangup/internal/ir"
)

// NewStateCommand creates the state command and its subcommands.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Read and change the shared key/value state",
		Long: `Read and change the session's shared state as this context.

Changes are visible to every other context on its next synchronization
pass. Writes are last-write-wins per key.`,
	}

	cmd.AddCommand(newStateGetCommand(rootOpts))
	cmd.AddCommand(newStateSetCommand(rootOpts))
	cmd.AddCommand(newStateClearCommand(rootOpts))
	cmd.AddCommand(newStateDeltaCommand(rootOpts))

	return cmd
}

func newStateGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Print the shared state, or one value",
		Example: `  hangup state get
  hangup state get color --format json`,
		Args:          cobra.MaximumNArgs(1),
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

			if len(args) == 1 {
				key := args[0]
				value, ok, err := s.engine.Value(ctx, key)
				if err != nil {
					return fail(formatter, "failed to read state", err)
				}
				if !ok {
					return failWith(formatter, ErrCodeNotFound, ExitFailure,
						"key not found", fmt.Errorf("no value for %q", key))
				}
				if rootOpts.Format == "json" {
					return formatter.Success(map[string]string{"key": key, "value": value})
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			}

			state, err := s.engine.State(ctx)
			if err != nil {
				return fail(formatter, "failed to read state", err)
			}
			if rootOpts.Format == "json" {
				return formatter.Success(state)
			}
			w := cmd.OutOrStdout()
			for _, k := range state.SortedKeys() {
				fmt.Fprintf(w, "%s=%s\n", k, state[k])
			}
			return nil
		},
	}
}

func newStateSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "set <key> <value>",
		Short:         "Set one shared value",
		Example:       `  hangup state set color red`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(rootOpts, cmd, ir.SharedState{args[0]: args[1]}, nil)
		},
	}
}

func newStateClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear <key>...",
		Short:         "Remove shared values",
		Example:       `  hangup state clear color size`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(rootOpts, cmd, nil, args)
		},
	}
}

func newStateDeltaCommand(rootOpts *RootOptions) *cobra.Command {
	var removals []string

	cmd := &cobra.Command{
		Use:   "delta <updates-json>",
		Short: "Apply updates and removals in one write",
		Long: `Apply a delta in one atomic write.

Updates are a JSON object of string values. Keys named with --remove are
deleted after the updates are applied, so a key both updated and removed
ends up absent.`,
		Example: `  hangup state delta '{"color":"red","size":"L"}'
  hangup state delta '{}' --remove color --remove size`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			updates, err := ir.ParseDelta([]byte(args[0]))
			if err != nil {
				return fail(newFormatter(rootOpts, cmd), "invalid updates", err)
			}
			return submit(rootOpts, cmd, updates, removals)
		},
	}

	cmd.Flags().StringArrayVar(&removals, "remove", nil, "key to remove (repeatable)")

	return cmd
}

// submit resumes the session and writes one delta.
func submit(rootOpts *RootOptions, cmd *cobra.Command, updates ir.SharedState, removals []string) error {
	formatter := newFormatter(rootOpts, cmd)
	ctx := commandContext(cmd)

	s, err := resumeSession(ctx, rootOpts, formatter)
	if err != nil {
		return err
	}
	defer s.close()

	formatter.VerboseLog("Submitting %d update(s), %d removal(s)", len(updates), len(removals))
	if err := s.engine.SubmitDelta(ctx, updates, removals); err != nil {
		return fail(formatter, "failed to submit delta", err)
	}

	state, err := s.engine.State(ctx)
	if err != nil {
		return fail(formatter, "failed to read state", err)
	}
	if rootOpts.Format == "json" {
		return formatter.Success(state)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "State updated (%d key(s)).\n", len(state))
	return nil
}
