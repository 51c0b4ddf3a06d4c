package main

import (
	"fmt"
	"os"

	"github.com/cuemby/dispatch/pkg/client"
	"github.com/spf13/cobra"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit one task partition for scheduling",
	RunE:  runSubmit,
}

func init() {
	submitCmd.Flags().String("job", "", "job name (required)")
	submitCmd.Flags().Int("partid", 0, "partition id")
	submitCmd.Flags().String("mode", "map", "task mode (map or reduce)")
	submitCmd.Flags().String("pref-node", "", "preferred node name")
	submitCmd.Flags().StringSlice("task-blacklist", nil, "nodes this partition must not run on")
	submitCmd.Flags().String("input-file", "", "path to the task's input payload")
	submitCmd.Flags().String("data-file", "", "path to the task's data payload")
	_ = submitCmd.MarkFlagRequired("job")

	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	addr, _ := rootCmd.PersistentFlags().GetString("addr")
	job, _ := cmd.Flags().GetString("job")
	partid, _ := cmd.Flags().GetInt("partid")
	mode, _ := cmd.Flags().GetString("mode")
	prefNode, _ := cmd.Flags().GetString("pref-node")
	blacklist, _ := cmd.Flags().GetStringSlice("task-blacklist")
	inputFile, _ := cmd.Flags().GetString("input-file")
	dataFile, _ := cmd.Flags().GetString("data-file")

	input, err := readOptional(inputFile)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}
	data, err := readOptional(dataFile)
	if err != nil {
		return fmt.Errorf("failed to read data file: %w", err)
	}

	c := client.New(addr)
	if err := c.SubmitTask(job, partid, mode, prefNode, blacklist, input, data); err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}
	fmt.Printf("✓ submitted %s/%d\n", job, partid)
	return nil
}

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}
