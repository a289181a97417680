package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/vytor/memcore/internal/config"
	"github.com/vytor/memcore/internal/logger"
)

// RootOptions holds the configuration shared by every command.
type RootOptions struct {
	Config       config.Config
	LogLevel     string
	SnapshotPath string
	WALPath      string
}

// NewRootCommand creates the root command for the memcore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "memcore",
		Short: "Spaced-repetition scheduler with a write-ahead log",
		Long: `memcore schedules flashcard reviews per user and keeps the schedule
durable with a checksummed write-ahead log plus periodic snapshots.

Configuration comes from the environment (and a .env file when present);
flags override it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if opts.LogLevel != "" {
				cfg.LogLevel = opts.LogLevel
			}
			if opts.SnapshotPath != "" {
				cfg.SnapshotPath = opts.SnapshotPath
			}
			if opts.WALPath != "" {
				cfg.WALPath = opts.WALPath
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			opts.Config = cfg

			_, noColor := os.LookupEnv("NO_COLOR")
			logger.SetDefault(logger.New(
				logger.WithOutput(cmd.ErrOrStderr()),
				logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
				logger.WithColors(!noColor),
			))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (DEBUG|INFO|WARN|ERROR), overrides LOG_LEVEL")
	cmd.PersistentFlags().StringVar(&opts.SnapshotPath, "snapshot", "", "snapshot file, overrides SNAPSHOT_PATH")
	cmd.PersistentFlags().StringVar(&opts.WALPath, "wal", "", "write-ahead log file, overrides WAL_PATH")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))
	cmd.AddCommand(NewWALCommand(opts))

	return cmd
}
