package main

import (
	"fmt"

	"github.com/cuemby/dispatch/pkg/client"
	"github.com/cuemby/dispatch/pkg/config"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a node configuration file",
	Long: `Apply a node configuration from a YAML file, replacing the cluster's
current node set.

Example:
  dispatchctl apply -f nodes.yaml`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML node configuration file (required)")
	_ = applyCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	addr, _ := rootCmd.PersistentFlags().GetString("addr")
	filename, _ := cmd.Flags().GetString("file")

	nodes, err := config.Load(filename)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	c := client.New(addr)
	if err := c.UpdateConfig(nodes); err != nil {
		return fmt.Errorf("failed to apply config: %w", err)
	}

	fmt.Printf("✓ applied configuration: %d nodes\n", len(nodes))
	return nil
}
