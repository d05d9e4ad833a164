package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"stockroom/internal/api"
	"stockroom/internal/config"
	"stockroom/internal/imagestore"
	"stockroom/internal/middleware"
	"stockroom/internal/store/sqlstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the inventory REST service",
	Long: `Serve resolves the active database path from db.json, opens the
store once, and serves the REST API until the process is stopped. Changing
the database path takes effect on the next start.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default: $STOCKROOM_ADDR or :8000)")
	serveCmd.Flags().StringVar(&flagDB, "db", "", "database path, overriding db.json for this run")
}

func serve() error {
	cfg := config.Load(flagDataDir)
	if flagAddr != "" {
		cfg.ListenAddr = flagAddr
	}

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	dbPath, err := cfg.ActiveDBPath()
	if err != nil {
		return err
	}
	if flagDB != "" {
		dbPath = flagDB
	}

	// Determine database type from environment (default SQLite). For
	// postgres the configured path is the connection string.
	dbDriver := os.Getenv("STOCKROOM_DB_DRIVER")
	if dbDriver == "" {
		dbDriver = "sqlite3"
	}

	st, err := sqlstore.New(dbDriver, dbPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer st.Close()

	images, err := imagestore.New(cfg.ImgsDir, cfg.DefaultImagePath)
	if err != nil {
		return fmt.Errorf("initialize image store: %w", err)
	}

	handlers := api.NewHandlers(st, images, cfg)
	handler := middleware.Logging(handlers.Routes())

	log.Printf("Server started at %s (db: %s)", cfg.ListenAddr, dbPath)
	return http.ListenAndServe(cfg.ListenAddr, handler)
}
