package main

import (
	"fmt"
	"os"

	"civicmap/internal/config"
	"civicmap/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	a := &app{cfg: config.NewConfig()}

	cmd := &cobra.Command{
		Use:   "civicmap",
		Short: "Join civic data onto Census geography and draw choropleth maps",
		Long: `civicmap downloads Census TIGER/Line shapefiles and American Community Survey
tables, joins any table onto the shapefile's features by a shared key and writes
an interactive HTML map colored by one of the joined columns.

Settings are read from --config, ./.civicmap.yaml or the XDG config directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("config", "", "Configuration file")
	cmd.PersistentFlags().String("log-file", "", "Write logs to this file instead of stderr")

	cmd.AddCommand(newMapCmd(a))
	cmd.AddCommand(newTrimCmd(a))
	cmd.AddCommand(newClassifyCmd(a))
	cmd.AddCommand(newFetchCmd(a))

	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	logFile, err := cmd.Flags().GetString("log-file")
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(logging.Options{Verbose: verbose || cfg.Verbose, Output: logFile})
	if err != nil {
		return err
	}
	a.logger = logger
	zap.ReplaceGlobals(logger)

	if cfg.Path != "" {
		logger.Debug("loaded configuration", zap.String("path", cfg.Path))
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
