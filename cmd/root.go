package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/penwyp/claudeteam/config"
	"github.com/penwyp/claudeteam/internal"
	"github.com/penwyp/claudeteam/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	cfgFile     string
	logLevel    string
	groupID     string
	actorID     string
	displayName string
	// Root command flags
	activityFile    string
	refreshInterval time.Duration
	syncInterval    time.Duration
	watchConfig     bool
)

var rootCmd = &cobra.Command{
	Use:   "claudeteam",
	Short: "Team token usage pool monitor",
	Long: `claudeteam monitors Claude token usage across a team sharing a usage pool.

It computes the local 5-hour usage window from the activity log, syncs it
to the shared table store, and aggregates every member's windows into a
group snapshot with burn rates, schedule conflicts, and advisories.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// rootRunE is assigned to rootCmd.RunE in init to avoid an
// initialization cycle through loadConfiguration.
var rootRunE = func(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfiguration()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.InitLogger(cfg.App.LogLevel, cfg.App.LogFile)

	app, err := internal.NewApplication(cfg, activityFile)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer func() {
		if err := app.Shutdown(); err != nil {
			logging.LogWarnf("Shutdown: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watchConfig && cfgFile != "" {
		watcher, err := config.NewWatcher(cfgFile, func(newCfg *config.Config) {
			app.Service().UpdateLimits(newCfg.Limits)
		})
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}
		if err := watcher.Start(); err != nil {
			return fmt.Errorf("failed to start config watcher: %w", err)
		}
		defer watcher.Stop()
	}

	return app.Run(ctx, app.LogSnapshot)
}

// Execute adds all child commands to the root command and sets flags
// appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.RunE = rootRunE
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./claudeteam.yaml, ~/.config/claudeteam)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&groupID, "group", "", "group id to monitor")
	rootCmd.PersistentFlags().StringVar(&actorID, "actor", "", "external actor id for the local member")
	rootCmd.PersistentFlags().StringVar(&displayName, "display-name", "", "display name for the local member")
	rootCmd.PersistentFlags().StringVar(&activityFile, "activity", "", "path to the local JSONL activity file")

	rootCmd.Flags().DurationVar(&refreshInterval, "refresh", 0, "aggregation refresh interval (e.g. 10s)")
	rootCmd.Flags().DurationVar(&syncInterval, "sync", 0, "remote sync interval (e.g. 30s)")
	rootCmd.Flags().BoolVar(&watchConfig, "watch-config", false, "reload limit settings when the config file changes")
}

// loadConfiguration loads the config file and applies flag overrides
func loadConfiguration() (*config.Config, error) {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return nil, err
	}

	applyFlagOverrides(cfg, rootCmd.PersistentFlags())
	applyFlagOverrides(cfg, rootCmd.Flags())

	if cfg.Group.GroupID == "" || cfg.Group.ActorID == "" {
		return nil, fmt.Errorf("group id and actor id are required (use --group and --actor or the config file)")
	}

	return cfg, nil
}

// applyFlagOverrides copies explicitly-set flags over the file values.
// Only changed flags win, so an empty flag default never clobbers a
// configured value.
func applyFlagOverrides(cfg *config.Config, flags *pflag.FlagSet) {
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "log-level":
			cfg.App.LogLevel = logLevel
		case "group":
			cfg.Group.GroupID = groupID
		case "actor":
			cfg.Group.ActorID = actorID
		case "display-name":
			cfg.Group.DisplayName = displayName
		case "refresh":
			cfg.Store.RefreshInterval = refreshInterval
		case "sync":
			cfg.Store.SyncInterval = syncInterval
		}
	})
}

// newApplication builds an application for one-shot subcommands, sharing
// the root flag handling
func newApplication() (*internal.Application, *config.Config, error) {
	cfg, err := loadConfiguration()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.InitLogger(cfg.App.LogLevel, cfg.App.LogFile)

	app, err := internal.NewApplication(cfg, activityFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create application: %w", err)
	}
	return app, cfg, nil
}
