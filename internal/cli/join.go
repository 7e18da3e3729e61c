package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// JoinOptions holds flags for the join command.
type JoinOptions struct {
	*RootOptions
	Interval time.Duration // overrides the configured polling interval when non-zero
	Detach   bool          // bootstrap and return without polling
}

// NewJoinCommand creates the join command.
func NewJoinCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JoinOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join the session and stream its events",
		Long: `Join the shared session as this context and print every event it observes.

The context is bootstrapped (creating its participant identity on first use),
then polls the database until interrupted. On Ctrl-C the context leaves the
participant list; with clear_data_on_exit the shared data is purged too.
If a shared record is found corrupted, polling halts and join leaves the
session and exits with an error.

With --detach the context joins and returns immediately, so one-shot
commands (state, send, notice) can act as this participant.

Example:
  hangup join --db ./team.db --session tab-a
  hangup join --session tab-b --interval 250ms --format json
  hangup join --session tab-c --detach`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJoin(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "polling interval (overrides config interval_ms)")
	cmd.Flags().BoolVar(&opts.Detach, "detach", false, "join and return without polling")

	return cmd
}

func runJoin(opts *JoinOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Interval < 0 {
		return failWith(formatter, ErrCodeInvalidArgument, ExitCommandError,
			"invalid interval", fmt.Errorf("interval must be positive, got %s", opts.Interval))
	}

	s, err := openSession(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer s.close()

	interval := s.cfg.Interval()
	if opts.Interval > 0 {
		interval = opts.Interval
	}

	printer := &eventPrinter{w: cmd.OutOrStdout(), format: opts.Format}
	printer.subscribe(s.engine)

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, leaving session", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	if err := s.engine.Bootstrap(ctx); err != nil {
		return fail(formatter, "failed to join session", err)
	}
	slog.Info("session joined",
		"session", s.cfg.Session,
		"participant_id", s.engine.ParticipantID(),
		"db", s.cfg.Database,
	)

	if opts.Detach {
		return nil
	}

	if err := s.engine.Start(ctx, interval); err != nil {
		return fail(formatter, "failed to start polling", err)
	}
	if opts.Format != "json" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Joined as %s. Press Ctrl-C to leave.\n", s.engine.ParticipantID())
	}

	select {
	case <-ctx.Done():
	case <-s.engine.HaltC():
		slog.Warn("synchronization halted, leaving session", "session", s.cfg.Session)
	}

	// The command context may be done; leaving must still reach the store.
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()

	halted := s.engine.Halted()
	if err := s.engine.Close(closeCtx); err != nil {
		return fail(formatter, "failed to leave session", err)
	}
	if halted != nil {
		return fail(formatter, "synchronization halted", halted)
	}

	slog.Info("session left", "session", s.cfg.Session)
	return nil
}

// NewLeaveCommand creates the leave command.
func NewLeaveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leave",
		Short: "Remove this context from the session",
		Long: `Remove this context's participant from the shared list.

Used after 'hangup join --detach'. With clear_data_on_exit the shared
data and this session's private data are purged as well.`,
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

			id := s.engine.ParticipantID()
			if err := s.engine.Close(ctx); err != nil {
				return fail(formatter, "failed to leave session", err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(map[string]string{"participant_id": id, "session": s.cfg.Session})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Participant %s left.\n", id)
			return nil
		},
	}
	return cmd
}
