package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"arcana_bot/migrations"
)

func main() {
	_ = godotenv.Load()

	var dbPath string
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the chat settings database schema",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", envOrDefault("DATABASE_PATH", "./data/bot.db"), "path to sqlite database")

	commands := []struct {
		name  string
		short string
	}{
		{"up", "Migrate to the latest version"},
		{"up-by-one", "Migrate one version up"},
		{"down", "Roll back one version"},
		{"redo", "Re-run the latest migration"},
		{"status", "Show migration status"},
		{"version", "Show current version"},
		{"reset", "Roll back all migrations"},
	}
	for _, c := range commands {
		root.AddCommand(&cobra.Command{
			Use:   c.name,
			Short: c.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := sql.Open("sqlite", dbPath)
				if err != nil {
					return fmt.Errorf("open database: %w", err)
				}
				defer func() { _ = db.Close() }()
				return migrations.Command(cmd.Context(), db, c.name)
			},
		})
	}

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
