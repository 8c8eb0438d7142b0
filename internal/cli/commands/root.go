package commands

import (
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/rowmap/internal/cli/config"
	"github.com/conduit-lang/rowmap/internal/cli/ui"
	"github.com/conduit-lang/rowmap/internal/logging"
	"github.com/conduit-lang/rowmap/pkg/rowmap"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// app holds the state shared by every subcommand of one invocation
type app struct {
	configDir string
	logLevel  string
	noColor   bool

	cfg    *config.Config
	logger *zap.Logger
	engine *rowmap.Engine
}

// reportedError carries a formatted message for the terminal
type reportedError struct {
	msg ui.Message
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func (a *app) report(msg ui.Message, err error) error {
	msg.NoColor = a.noColor
	return &reportedError{msg: msg, err: err}
}

// setup loads the configuration, the logger and the mapping engine
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.noColor {
		color.NoColor = true
	}

	cfg, err := config.LoadFrom(a.configDir)
	if err != nil {
		return a.report(ui.ConfigError(err, a.noColor), err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return a.report(ui.ConfigError(err, a.noColor), err)
	}

	a.cfg = cfg
	a.logger = logger
	a.engine = rowmap.NewFromConfig(rowmap.Config{
		DateLayouts: cfg.Mapping.DateLayouts,
		IDProperty:  cfg.Mapping.IDProperty,
		Strict:      cfg.Mapping.Strict,
	}, logger)
	return nil
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "rowmap",
		Short: "Row mapping and change tracking toolkit",
		Long: color.CyanString(`rowmap - map SQL result sets to Go structs

rowmap derives column schemas from struct types, converts driver values into
property types, and computes the minimal column changes between two versions
of an entity.

These commands inspect a configured database and the conversion rules:
  • describe  result-set columns as the row mapper sees them
  • convert   a value through the converter registry
  • columns   property to column naming`),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configDir, "config-dir", ".", "directory containing rowmap.yml")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newDescribeCommand(a))
	rootCmd.AddCommand(newConvertCommand(a))
	rootCmd.AddCommand(newColumnsCommand(a))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		var reported *reportedError
		if errors.As(err, &reported) {
			reported.msg.Write(rootCmd.ErrOrStderr())
			return err
		}
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
