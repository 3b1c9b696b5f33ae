package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/boardsync/internal/config"
	"github.com/roach88/boardsync/internal/orderkey"
	"github.com/roach88/boardsync/internal/reconcile"
	"github.com/roach88/boardsync/internal/repair"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config is filled in by the root command before any subcommand runs.
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the boardsync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "boardsync",
		Short: "boardsync - whiteboard scene reconciliation",
		Long: `Merge, validate and store collaborative whiteboard scenes.

Scenes are JSON arrays of records ordered by fractional order keys.
Settings are read from a CUE file (boardsync.cue by default).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, ErrCodeConfig, err)
			}
			opts.Config = cfg

			level := cfg.LogLevel
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", config.DefaultFile, "CUE configuration file")

	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRepairCommand(opts))
	cmd.AddCommand(NewKeysCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewSceneCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// config returns the loaded configuration, or the defaults when a
// subcommand runs without the root command.
func (o *RootOptions) config() *config.Config {
	if o.Config == nil {
		o.Config = config.Default()
	}
	return o.Config
}

// generator builds the configured key generator.
func (o *RootOptions) generator(opts ...orderkey.Option) (*orderkey.Generator, error) {
	return o.config().NewGenerator(opts...)
}

// repairer builds a repairer over the configured alphabet.
func (o *RootOptions) repairer() (*repair.Repairer, error) {
	gen, err := o.generator()
	if err != nil {
		return nil, err
	}
	return repair.New(gen), nil
}

// reconciler builds a reconciler over the configured alphabet.
func (o *RootOptions) reconciler() (*reconcile.Reconciler, error) {
	rep, err := o.repairer()
	if err != nil {
		return nil, err
	}
	return reconcile.New(rep), nil
}
