// Command sandboxctl is the operator CLI for sandboxd. It speaks the
// service's HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codeopen/sandboxd/pkg/version"
)

var (
	flagServer string
	flagUser   string
	flagJSON   bool
)

var rootCmd = &cobra.Command{
	Use:     "sandboxctl",
	Short:   "Manage codeopen sandboxes",
	Long:    "sandboxctl drives the sandboxd HTTP API: create, inspect, and control per-user development sandboxes.",
	Version: version.String(),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", envOrDefault("SANDBOXD_SERVER", "http://localhost:8080"), "sandboxd base URL")
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", os.Getenv("SANDBOXD_USER"), "user id to operate as")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit raw JSON instead of tables")
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
