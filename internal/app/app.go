package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"draftly/internal/config"
)

var v = config.NewViper()

var rootCmd = &cobra.Command{
	Use:   "draftly",
	Short: "AI-assisted Gmail reply drafts",
	Long:  "Generates reply drafts for Gmail threads with an AI model and sends them once approved",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().String("port", "", "HTTP port (PORT)")
	rootCmd.PersistentFlags().String("database-url", "", "Postgres connection URL (DATABASE_URL)")
	rootCmd.PersistentFlags().String("sqlite-path", "", "SQLite database file, used without a database URL (SQLITE_PATH)")

	bindFlag("PORT", "port")
	bindFlag("DATABASE_URL", "database-url")
	bindFlag("SQLITE_PATH", "sqlite-path")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func bindFlag(key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
