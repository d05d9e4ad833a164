package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stockroom/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or change the database indirection file",
}

var configGetDBCmd = &cobra.Command{
	Use:   "get-db",
	Short: "Print the database path the server will bind on next start",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(flagDataDir)
		path, err := cfg.ActiveDBPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var configSetDBCmd = &cobra.Command{
	Use:   "set-db <path>",
	Short: "Point db.json at a different database file",
	Long: `Set-db overwrites db.json with the given path. The running server
keeps its current connection; restart it to bind the new database.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(flagDataDir)
		if err := cfg.SaveDBPath(args[0]); err != nil {
			return err
		}
		fmt.Printf("Database path set to %s (restart the server to apply)\n", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configGetDBCmd)
	configCmd.AddCommand(configSetDBCmd)
}
