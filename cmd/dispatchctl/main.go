// Command dispatchctl is the operator CLI for dispatchd: it wraps
// pkg/client in cobra subcommands the same way cmd/warren wraps its own
// gRPC client, one subcommand per admin operation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "dispatchctl",
	Short:   "dispatchctl controls a running dispatchd master scheduler",
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().String("addr", "http://127.0.0.1:8080", "dispatchd admin API address")
}
