package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/petitions/internal/api"
	"github.com/roach88/petitions/internal/app"
	"github.com/roach88/petitions/internal/config"
	"github.com/roach88/petitions/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the petitions CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "petitions",
		Short: "Browse, create and manage petitions",
		Long: `A command-line client for the petitions API.

Browse and search petitions, support them, and manage your own:
create petitions with up to three support tiers and edit them later.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default "+config.DefaultPath()+")")

	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewProfileCommand(opts))
	cmd.AddCommand(NewCategoriesCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewMineCommand(opts))
	cmd.AddCommand(NewSupportCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// runtime is what a command needs to talk to the API.
type runtime struct {
	cfg    *config.Config
	app    *app.App
	store  *store.Store
	logger *slog.Logger
	out    *OutputFormatter
}

func (r *runtime) Close() {
	if err := r.store.Close(); err != nil {
		r.logger.Warn("close state database", "error", err)
	}
}

// open loads the config and wires the app. Failures are already reported
// through the formatter when open returns.
func (o *RootOptions) open(cmd *cobra.Command) (*runtime, error) {
	out := o.formatter(cmd)

	cfg, err := config.Load(config.Options{Path: o.ConfigPath})
	if err != nil {
		return nil, out.Fail("", err)
	}

	level := cfg.LogLevel()
	if o.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	statePath := cfg.StatePath()
	if err := os.MkdirAll(filepath.Dir(statePath), 0o700); err != nil {
		return nil, out.Fail("", fmt.Errorf("create state directory: %w", err))
	}
	st, err := store.Open(statePath)
	if err != nil {
		return nil, out.Fail("", err)
	}

	client := api.New(cfg.BaseURL(), api.WithTimeout(cfg.Timeout()), api.WithLogger(logger))
	a := app.New(client, st,
		app.WithLogger(logger),
		app.WithImageRetry(cfg.RetryPolicy()),
	)
	out.VerboseLog("api %s, state %s", cfg.BaseURL(), statePath)
	return &runtime{cfg: cfg, app: a, store: st, logger: logger, out: out}, nil
}
