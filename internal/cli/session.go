package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/hangup/internal/config"
	"github.com/roach88/hangup/internal/engine"
	"github.com/roach88/hangup/internal/ir"
	"github.com/roach88/hangup/internal/store"
)

// session bundles what a command needs to act as one context.
type session struct {
	cfg    config.Config
	store  *store.Store
	engine *engine.Engine
}

// close releases the database. The engine is left as is.
func (s *session) close() {
	if err := s.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// newFormatter builds the formatter every command writes through.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// resolveConfig loads the config file and applies flag overrides.
func resolveConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if opts.Session != "" {
		cfg.Session = opts.Session
	}
	return cfg, nil
}

// openStore resolves the config and opens its database.
func openStore(opts *RootOptions, f *OutputFormatter) (config.Config, *store.Store, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return config.Config{}, nil, failWith(f, ErrCodeConfig, ExitCommandError, "invalid configuration", err)
	}

	slog.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return config.Config{}, nil, failWith(f, ErrCodeStore, ExitCommandError, "failed to open database", err)
	}
	return cfg, st, nil
}

// openSession opens the store and builds an engine for the configured
// session. The engine has not been bootstrapped or resumed.
func openSession(opts *RootOptions, f *OutputFormatter) (*session, error) {
	cfg, st, err := openStore(opts, f)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:    cfg,
		store:  st,
		engine: newEngine(st, cfg, opts),
	}, nil
}

// resumeSession opens a session that must have been joined before, for
// one-shot commands acting as an existing participant.
func resumeSession(ctx context.Context, opts *RootOptions, f *OutputFormatter) (*session, error) {
	s, err := openSession(opts, f)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Resume(ctx); err != nil {
		s.close()
		if ir.IsNotBootstrapped(err) {
			return nil, failWith(f, ErrCodeNotBootstrapped, ExitCommandError,
				"session "+s.cfg.Session+" has not joined (run 'hangup join' first)", err)
		}
		return nil, fail(f, "failed to resume session", err)
	}
	return s, nil
}

// newEngine builds an engine from the effective configuration.
func newEngine(st *store.Store, cfg config.Config, opts *RootOptions) *engine.Engine {
	engineOpts := []engine.EngineOption{
		engine.WithLogger(slog.Default()),
		engine.WithDebug(cfg.Debug),
		engine.WithMessageLogLimit(cfg.MessageLogLimit),
		engine.WithClearDataOnClose(cfg.ClearDataOnExit),
	}
	if cfg.DisplayName != "" {
		engineOpts = append(engineOpts, engine.WithDisplayName(cfg.DisplayName))
	}
	if opts.IDGenerator != nil {
		engineOpts = append(engineOpts, engine.WithIDGenerator(opts.IDGenerator))
	}
	return engine.New(st, cfg.Session, engineOpts...)
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute (as in tests).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
