// Package commands implements the pagetable CLI.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/maruel/pagetable/internal/config"
)

var (
	// Global flags.
	cfgFile  string
	logLevel string
	dataDir  string

	// cfg is the effective configuration, loaded before any subcommand runs.
	cfg *config.Config
	// levelVar controls the level of the default logger.
	levelVar = &slog.LevelVar{}
	// stopFn cancels the root context; serve uses it on executable change.
	stopFn context.CancelFunc = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "pagetable",
	Short: "Infinite scroll table over a paginated JSON list",
	Long: `pagetable fetches a remote JSON list page by page, persists what it has
fetched and presents it as a sortable table with removable rows.

Configuration is read from --config (default: $XDG_CONFIG_HOME/pagetable/config.yaml)
and overridden by PAGETABLE_<SECTION>_<KEY> environment variables, e.g.
PAGETABLE_REMOTE_PAGE_SIZE=50 or PAGETABLE_STORE_BACKEND=sqlite.

Use "pagetable [command] --help" for more information about a command.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/pagetable/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Execute runs the command line. stop cancels ctx.
func Execute(ctx context.Context, stop context.CancelFunc) error {
	stopFn = stop
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig loads the configuration, applies the global flags and sets up
// the default logger on stderr.
func loadConfig(cmd *cobra.Command, _ []string) error {
	if skipConfig(cmd) {
		initLogger(os.Stderr)
		return nil
	}
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if dataDir != "" {
		c.DataDir = dataDir
	}
	config.ApplyDefaults(c)
	if err := config.Validate(c); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	cfg = c
	initLogger(os.Stderr)
	return setLevel(cfg.LogLevel)
}

// skipConfig is true for commands that must work with a broken or missing
// configuration file.
func skipConfig(cmd *cobra.Command) bool {
	return cmd == versionCmd || cmd == configInitCmd || cmd == configSchemaCmd
}
