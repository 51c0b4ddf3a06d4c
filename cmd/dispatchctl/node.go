package main

import (
	"fmt"

	"github.com/cuemby/dispatch/pkg/client"
	"github.com/spf13/cobra"
)

var blacklistCmd = &cobra.Command{
	Use:   "blacklist [node]",
	Short: "Globally disable a node for new dispatches",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := rootCmd.PersistentFlags().GetString("addr")
		c := client.New(addr)
		if err := c.Blacklist(args[0]); err != nil {
			return fmt.Errorf("blacklist failed: %w", err)
		}
		fmt.Printf("✓ blacklisted node %s\n", args[0])
		return nil
	},
}

var whitelistCmd = &cobra.Command{
	Use:   "whitelist [node]",
	Short: "Re-enable a previously blacklisted node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := rootCmd.PersistentFlags().GetString("addr")
		c := client.New(addr)
		if err := c.Whitelist(args[0]); err != nil {
			return fmt.Errorf("whitelist failed: %w", err)
		}
		fmt.Printf("✓ whitelisted node %s\n", args[0])
		return nil
	},
}

var nodeInfoCmd = &cobra.Command{
	Use:   "nodeinfo [node]",
	Short: "Show one node's load, capacity, and blacklist status; omit to list all nodes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := rootCmd.PersistentFlags().GetString("addr")
		c := client.New(addr)

		if len(args) == 0 {
			nodes, err := c.ListNodes()
			if err != nil {
				return fmt.Errorf("nodeinfo failed: %w", err)
			}
			for _, n := range nodes {
				fmt.Printf("%-20s load=%d/%d blacklisted=%v\n", n.Name, n.Load, n.Capacity, n.Blacklisted)
			}
			return nil
		}

		info, workers, err := c.GetNode(args[0])
		if err != nil {
			return fmt.Errorf("nodeinfo failed: %w", err)
		}
		fmt.Printf("%-20s load=%d/%d blacklisted=%v\n", info.Name, info.Load, info.Capacity, info.Blacklisted)
		for _, w := range workers {
			fmt.Printf("  %s  job=%s partid=%d mode=%s\n", w.WorkerID, w.Jobname, w.Partid, w.Mode)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(blacklistCmd, whitelistCmd, nodeInfoCmd)
}
