package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

var statusTimeout time.Duration

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print one group snapshot and exit",
	Long: `status performs a single aggregation pass over the group and prints the
resulting snapshot as JSON: per-member statistics, totals, burn rate,
schedule conflicts, and advisories.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cfg, err := newApplication()
		if err != nil {
			return err
		}
		defer app.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
		defer cancel()

		stats, err := app.Service().GroupStatistics(ctx, cfg.Group.GroupID, cfg.Group.ActorID)
		if err != nil {
			return fmt.Errorf("failed to aggregate group statistics: %w", err)
		}

		out, err := sonic.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}

		fmt.Println(string(out))
		return nil
	},
}

func init() {
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 30*time.Second, "overall timeout for the snapshot")
	rootCmd.AddCommand(statusCmd)
}
