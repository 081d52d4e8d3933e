// Package cli provides the command-line interface of the pipeline.
package cli

import (
	"context"
	"fmt"
	"os"

	"covid-impact-pipeline/internal/config"
	"covid-impact-pipeline/internal/logging"
	"covid-impact-pipeline/internal/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// app is the state shared by the commands of one invocation.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
	// ownLogger is set when the logger was built here and must be synced.
	ownLogger bool
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "COVID-19 economic impact data pipeline",
		Long: `pipeline loads economic and epidemiological tables, resolves countries to
continents, merges and imputes them, and serves chart-ready aggregates.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg

			if a.logger == nil {
				logger, err := logging.New(cfg.Verbose)
				if err != nil {
					return err
				}
				a.logger = logger
				a.ownLogger = true
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a.ownLogger && a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./pipeline.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().Int("year-min", 0, "First year kept (default 2018)")
	rootCmd.PersistentFlags().Int("year-max", 0, "Last year kept (default 2023)")
	rootCmd.PersistentFlags().String("db", "", "Path to the SQLite run store")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newChartCmd(a))
	rootCmd.AddCommand(newDatasetsCmd(a))
	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return ExecuteArgs(os.Args[1:])
}

// ExecuteArgs runs the root command with explicit arguments.
func ExecuteArgs(args []string) error {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// build runs the pipeline over the loaded configuration.
func (a *app) build(ctx context.Context, runID string) (*pipeline.Pipeline, error) {
	return pipeline.Build(ctx, a.cfg, pipeline.Options{Logger: a.logger, RunID: runID})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the pipeline version and build information.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "pipeline v%s\n", Version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "commit %s, built %s\n", GitCommit, BuildDate)
		},
	}
}
