package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

var thresholdCmd = &cobra.Command{
	Use:   "threshold",
	Short: "Print the resolved token threshold and limit settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _, err := newApplication()
		if err != nil {
			return err
		}
		defer app.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		resolved := app.Service().ResolvedConfig(ctx)

		out, err := sonic.MarshalIndent(resolved, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode resolved config: %w", err)
		}

		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(thresholdCmd)
}
