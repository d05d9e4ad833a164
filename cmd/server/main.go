// Package main provides the stockroom server CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// Global flag values.
var (
	flagAddr    string
	flagDataDir string
	flagDB      string
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Stockroom is an inventory-management backend",
	Long: `Stockroom serves the inventory-management REST API: user accounts
and roles, product categories, items, and uploaded images, backed by a
SQLite or PostgreSQL database.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: $STOCKROOM_DATA_DIR or ./stockroom-data)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("stockroom v" + version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
