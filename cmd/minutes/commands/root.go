package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/strrl/minutes-workspace/internal/config"
	"github.com/strrl/minutes-workspace/internal/logging"
	"github.com/strrl/minutes-workspace/internal/minutesapi"
	"github.com/strrl/minutes-workspace/internal/tui"
)

// globalOptions is shared by every command. Setup fills cfg, logger and
// client before any RunE runs.
type globalOptions struct {
	configPath string
	baseURL    string
	timeout    time.Duration
	debug      bool

	cfg      *config.Config
	logger   zerolog.Logger
	closeLog func() error
	client   *minutesapi.Client
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	return newRootCommand(&globalOptions{})
}

func newRootCommand(opts *globalOptions) *cobra.Command {
	var file string

	rootCmd := &cobra.Command{
		Use:   "minutes",
		Short: "Generate and refine meeting minutes from a document",
		Long: `minutes uploads a meeting document (.pdf or .txt) to the minutes service,
shows the structured minutes it returns and lets you refine them with critiques.

Without a subcommand it starts the interactive workspace.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), opts, file)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/minutes-workspace/config.yaml)")
	flags.StringVar(&opts.baseURL, "base-url", "", "minutes service address (overrides config)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per-request timeout, 0 for none (overrides config)")
	flags.BoolVar(&opts.debug, "debug", false, "log at debug level to stderr")

	rootCmd.Flags().StringVarP(&file, "file", "f", "", "document to select on start")

	rootCmd.AddCommand(NewGenerateCommand(opts))
	rootCmd.AddCommand(NewCritiqueCommand(opts))
	rootCmd.AddCommand(NewConfigCommand(opts))

	// Cobra skips post-run hooks when RunE fails, so the log is closed here.
	for _, c := range append([]*cobra.Command{rootCmd}, rootCmd.Commands()...) {
		if c.RunE != nil {
			c.RunE = opts.closingLog(c.RunE)
		}
	}

	return rootCmd
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// setup layers flags over the config file and environment, then builds the
// logger and the service client.
func (o *globalOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = o.baseURL
	}
	if flags.Changed("timeout") {
		cfg.RequestTimeout = o.timeout
	}
	if o.debug {
		cfg.LogLevel = string(logging.LevelDebug)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logCfg := logging.Config{
		Level:      logging.Level(cfg.LogLevel),
		File:       cfg.LogFile,
		JSONFormat: cfg.LogJSON,
	}
	if o.debug {
		logCfg.Output = cmd.ErrOrStderr()
	}
	logger, closeLog, err := logging.New(logCfg)
	if err != nil {
		return err
	}

	o.cfg = cfg
	o.logger = logger
	o.closeLog = closeLog
	o.client = minutesapi.NewClient(cfg.BaseURL,
		minutesapi.WithTimeout(cfg.RequestTimeout),
		minutesapi.WithLogger(logger),
	)

	logger.Debug().
		Str("command", cmd.Name()).
		Str("base_url", cfg.BaseURL).
		Dur("timeout", cfg.RequestTimeout).
		Msg("configuration loaded")
	return nil
}

// closingLog wraps run so the log file is closed whether or not it fails.
func (o *globalOptions) closingLog(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := o.close(); err == nil {
				err = cerr
			}
		}()
		return run(cmd, args)
	}
}

func (o *globalOptions) close() error {
	if o.closeLog == nil {
		return nil
	}
	closeLog := o.closeLog
	o.closeLog = nil
	return closeLog()
}

func runTUI(ctx context.Context, opts *globalOptions, file string) error {
	err := tui.Run(ctx, tui.Options{
		Service:  opts.client,
		Logger:   opts.logger,
		StartDir: opts.cfg.StartDir,
		File:     file,
	})
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
