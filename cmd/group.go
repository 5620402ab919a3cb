package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/penwyp/claudeteam/config"
	"github.com/penwyp/claudeteam/models"
	"github.com/penwyp/claudeteam/store"
	"github.com/spf13/cobra"
)

var (
	createWindowHours int
	createExcludeSelf bool
	joinCode          string
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage usage pool groups and membership",
}

var groupCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new group and print its id and join code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := openStoreClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := newStoreContext()
		defer cancel()

		group, err := client.CreateGroup(ctx, args[0], models.GroupSettings{
			WindowDurationHours:  createWindowHours,
			ExcludeSelfFromPeers: createExcludeSelf,
		})
		if err != nil {
			return fmt.Errorf("failed to create group: %w", err)
		}

		return printJSON(group)
	},
}

var groupJoinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join a group by join code",
	RunE: func(cmd *cobra.Command, args []string) error {
		if joinCode == "" {
			return fmt.Errorf("a join code is required (use --code)")
		}
		if actorID == "" {
			return fmt.Errorf("an actor id is required (use --actor)")
		}
		name := displayName
		if name == "" {
			name = actorID
		}

		client, err := openStoreClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := newStoreContext()
		defer cancel()

		group, err := client.GetGroupByJoinCode(ctx, joinCode)
		if err != nil {
			return fmt.Errorf("failed to look up join code: %w", err)
		}

		member, err := client.JoinGroup(ctx, group.ID, name, actorID)
		if err != nil {
			return fmt.Errorf("failed to join group %s: %w", group.Name, err)
		}

		return printJSON(member)
	},
}

var groupMembersCmd = &cobra.Command{
	Use:   "members <group-id>",
	Short: "List the members of a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := openStoreClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := newStoreContext()
		defer cancel()

		members, err := client.ListMembers(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to list members: %w", err)
		}

		return printJSON(members)
	},
}

var groupLeaveCmd = &cobra.Command{
	Use:   "leave <member-id>",
	Short: "Remove a member from their group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := openStoreClient()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := newStoreContext()
		defer cancel()

		if err := client.LeaveGroup(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to leave group: %w", err)
		}

		fmt.Printf("Member %s removed\n", args[0])
		return nil
	},
}

// openStoreClient opens the table store without requiring group/actor
// configuration, so lifecycle commands work before the member is set up
func openStoreClient() (*store.SQLiteClient, error) {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	client, err := store.NewSQLiteClient(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return client, nil
}

func newStoreContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func printJSON(v interface{}) error {
	out, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	groupCreateCmd.Flags().IntVar(&createWindowHours, "window-hours", 5, "usage window duration in hours")
	groupCreateCmd.Flags().BoolVar(&createExcludeSelf, "exclude-self", false, "exclude each member's own rows from their peer view")
	groupJoinCmd.Flags().StringVar(&joinCode, "code", "", "group join code")

	groupCmd.AddCommand(groupCreateCmd)
	groupCmd.AddCommand(groupJoinCmd)
	groupCmd.AddCommand(groupMembersCmd)
	groupCmd.AddCommand(groupLeaveCmd)
	rootCmd.AddCommand(groupCmd)
}
