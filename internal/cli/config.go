package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/hangup/internal/config"
)

// ConfigResult is the effective configuration and where it came from.
type ConfigResult struct {
	Source string        `json:"source"` // config file, or "defaults"
	Config config.Config `json:"config"`
}

// ConfigErrorDetails locates a rejected configuration value.
type ConfigErrorDetails struct {
	Field  string `json:"field"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate and print the effective configuration",
		Long: `Validate the CUE config file against the schema and print the result.

Schema defaults fill every field the file leaves out, and --db and --session
override the file. Without --config only the defaults apply.`,
		Example: `  hangup config --config ./hangup.cue
  hangup config --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(rootOpts, cmd)
		},
	}
	return cmd
}

func runConfig(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	source := opts.ConfigPath
	if source == "" {
		source = "defaults"
	}
	formatter.VerboseLog("Loading configuration from %s", source)

	cfg, err := resolveConfig(opts)
	if err != nil {
		return outputConfigError(formatter, err)
	}

	if opts.Format == "json" {
		return formatter.Success(ConfigResult{Source: source, Config: cfg})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ Configuration valid (%s)\n", source)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "database\t%s\n", cfg.Database)
	fmt.Fprintf(tw, "session\t%s\n", cfg.Session)
	fmt.Fprintf(tw, "interval_ms\t%d\n", cfg.IntervalMS)
	fmt.Fprintf(tw, "debug\t%t\n", cfg.Debug)
	fmt.Fprintf(tw, "clear_data_on_exit\t%t\n", cfg.ClearDataOnExit)
	fmt.Fprintf(tw, "display_name\t%s\n", cfg.DisplayName)
	fmt.Fprintf(tw, "message_log_limit\t%d\n", cfg.MessageLogLimit)
	return tw.Flush()
}

// outputConfigError reports a rejected or unreadable configuration.
func outputConfigError(formatter *OutputFormatter, err error) error {
	var cfgErr *config.Error
	if !errors.As(err, &cfgErr) {
		return failWith(formatter, ErrCodeNotFound, ExitCommandError, "failed to read configuration", err)
	}

	details := ConfigErrorDetails{Field: cfgErr.Field}
	if cfgErr.Pos.IsValid() {
		details.Line = cfgErr.Pos.Line()
		details.Column = cfgErr.Pos.Column()
	}

	if formatter.Format == "json" {
		_ = formatter.Error(ErrCodeConfig, cfgErr.Error(), details)
	} else {
		fmt.Fprintf(formatter.Writer, "✗ %s\n", cfgErr.Error())
	}
	return WrapExitError(ExitCommandError, "invalid configuration", err)
}
