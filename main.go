package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mediakit/internal/app"
	"mediakit/internal/config"
	"mediakit/internal/logging"
)

var version = "dev"

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mediakit",
	Short: "Build and edit media kits",
	Long: `mediakit keeps media kits (speaker and guest one-pagers made of components
laid out in sections) in a database and edits them through actions.

Every change is an action such as ADD_COMPONENT or SET_THEME. The same actions
are available to agents through the MCP server (mediakit mcp).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Log, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Version = version

	rootCmd.AddCommand(
		listCmd,
		newCmd,
		showCmd,
		applyCmd,
		importCmd,
		deleteCmd,
		orphansCmd,
		snapshotCmd,
		snapshotsCmd,
		restoreCmd,
		backupCmd,
		watchCmd,
		mcpCmd,
	)
}

// withApp starts the app, runs fn and shuts the app down again.
func withApp(ctx context.Context, fn func(*app.App) error) error {
	a := app.New(cfg, logger)
	if err := a.Startup(ctx); err != nil {
		return err
	}
	runErr := fn(a)
	if err := a.Shutdown(context.Background()); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
