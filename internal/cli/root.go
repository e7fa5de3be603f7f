package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/equery/internal/config"
	"github.com/roach88/equery/internal/engine"
	"github.com/roach88/equery/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Config and Logger are resolved by the root command before any
	// subcommand runs.
	Config *config.Config
	Logger *slog.Logger

	viper *viper.Viper
}

// persistent flags and the config keys they override
var flagKeys = map[string]string{
	"format":          config.KeyFormat,
	"log-level":       config.KeyLogLevel,
	"log-format":      config.KeyLogFormat,
	"db":              config.KeyStorePath,
	"workers":         config.KeyWorkers,
	"max-rows":        config.KeyMaxRows,
	"plan-cache-size": config.KeyPlanCacheSize,
	"strict":          config.KeyStrictProjection,
}

// Execute runs the equery command line with args and returns the process
// exit code. Errors the commands have not printed themselves go to stderr.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		// flag and argument errors from cobra
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", cmd.CommandPath())
		return ExitCommandError
	}
	if !exitErr.Reported {
		fmt.Fprintf(stderr, "Error: %v\n", exitErr)
	}
	return exitErr.Code
}

// NewRootCommand creates the root command for the equery CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{viper: config.New()}

	cmd := &cobra.Command{
		Use:   "equery",
		Short: "equery - query JSON-like records",
		Long: `Filter, order and project arrays of JSON-like records with statements of the form

  .name, .likes: .likes > 8 ~ orderby(.likes) desc limit(10)

Datasets are read from JSON, YAML or CUE files, or from collections imported
into a SQLite database.

Settings come from flags, EQUERY_* environment variables and an optional
YAML file (--config), in that order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (forces debug logging)")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.ConfigFile, "config", "", "config file (YAML)")
	pf.String("log-level", "warn", "log level (debug|info|warn|error)")
	pf.String("log-format", "text", "log format (json|text)")
	pf.String("db", config.DefaultStorePath, "collection database")
	pf.Int("workers", 1, "condition workers (1 = serial)")
	pf.Int("max-rows", engine.DefaultMaxRows, "largest dataset a query accepts (0 = unlimited)")
	pf.Int("plan-cache-size", engine.DefaultPlanCacheSize, "compiled plans kept per engine (0 = off)")
	pf.Bool("strict", false, "report scope properties missing from a row")

	for name, key := range flagKeys {
		_ = opts.viper.BindPFlag(key, pf.Lookup(name))
	}

	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewLexCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewCollectionsCommand(opts))
	cmd.AddCommand(NewREPLCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// load resolves configuration and the diagnostic logger.
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.viper, o.ConfigFile)
	if err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid configuration: %v", err))
	}
	o.Config = cfg
	o.Format = cfg.Format

	lc := cfg.Logger()
	if o.Verbose {
		lc.Level = "debug"
	}
	l, err := logger.New(lc, cmd.ErrOrStderr())
	if err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid logger configuration: %v", err))
	}
	o.Logger = l
	return nil
}

// settings returns the resolved configuration. Commands built without
// the root command (as in tests) fall back to defaults.
func (o *RootOptions) settings() *config.Config {
	if o.Config != nil {
		return o.Config
	}
	cfg, err := config.Load(config.New(), "")
	if err != nil {
		cfg = &config.Config{Store: config.StoreConfig{Path: config.DefaultStorePath}}
	}
	if o.Format != "" {
		cfg.Format = o.Format
	}
	o.Config = cfg
	return cfg
}

func (o *RootOptions) log() *slog.Logger {
	if o.Logger == nil {
		return logger.Discard()
	}
	return o.Logger
}

// newEngine builds an engine from the configuration plus extra options.
func (o *RootOptions) newEngine(extra ...engine.EngineOption) (*engine.Engine, error) {
	opts := append(o.settings().EngineOptions(), engine.WithLogger(o.log()))
	return engine.New(append(opts, extra...)...)
}

func (o *RootOptions) newFormatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
