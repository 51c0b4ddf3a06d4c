package main

import (
	"fmt"

	"github.com/cuemby/dispatch/pkg/client"
	"github.com/spf13/cobra"
)

var killJobCmd = &cobra.Command{
	Use:   "kill-job [jobname]",
	Short: "Kill every live worker and waitlist entry for a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := rootCmd.PersistentFlags().GetString("addr")
		c := client.New(addr)
		if err := c.KillJob(args[0]); err != nil {
			return fmt.Errorf("kill-job failed: %w", err)
		}
		fmt.Printf("✓ killed job %s\n", args[0])
		return nil
	},
}

var cleanJobCmd = &cobra.Command{
	Use:   "clean-job [jobname]",
	Short: "Kill a job and drop its durable event log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := rootCmd.PersistentFlags().GetString("addr")
		c := client.New(addr)
		if err := c.CleanJob(args[0]); err != nil {
			return fmt.Errorf("clean-job failed: %w", err)
		}
		fmt.Printf("✓ cleaned job %s\n", args[0])
		return nil
	},
}

var activeCmd = &cobra.Command{
	Use:   "active [jobname]",
	Short: "List the nodes and partitions currently running a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := rootCmd.PersistentFlags().GetString("addr")
		c := client.New(addr)
		nodes, partids, err := c.GetActive(args[0])
		if err != nil {
			return fmt.Errorf("active failed: %w", err)
		}
		for i := range nodes {
			fmt.Printf("partition %d  node %s\n", partids[i], nodes[i])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(killJobCmd, cleanJobCmd, activeCmd)
}
