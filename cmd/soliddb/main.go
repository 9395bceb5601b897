package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tuannm99/soliddb/internal"
	"github.com/tuannm99/soliddb/internal/sql/executor"
)

var (
	configPath string
	dataDir    string

	cfg *internal.SolidConfig
)

var rootCmd = &cobra.Command{
	Use:   "soliddb",
	Short: "Single-user row store with an interactive shell",
	Long: `soliddb keeps each database in its own directory under the data dir.
Without a subcommand it starts the interactive shell.`,
	Args:          cobra.ExactArgs(0),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := internal.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("data-dir") {
			c.Storage.Workdir = dataDir
		}
		cfg = c
		initLogger(cfg, cmd.ErrOrStderr())
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell(newSession(), cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a yaml config file")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "directory holding the databases (overrides storage.workdir)")
}

// initLogger sets the global slog.Logger from config. Logs go to w so they do
// not mix with shell output.
func initLogger(c *internal.SolidConfig, w io.Writer) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logger.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: level == slog.LevelDebug}

	var handler slog.Handler
	if c.Logger.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("logger initialized", "level", level, "json", c.Logger.JSON)
}

func newSession() *executor.Session {
	return executor.NewSession(cfg.Storage.Workdir,
		executor.WithLogger(slog.Default()),
		executor.WithCheckpointEvery(cfg.Storage.CheckpointEvery),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
