package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

var rootCmd = &cobra.Command{
	Use:           "quizd",
	Short:         "Quiz session answer-tracking and scoring service",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (default ./quiz.yaml if present)")
	rootCmd.PersistentFlags().String("db-driver", "", "Database driver: sqlite, postgres or memory (overrides DB_DRIVER)")
	rootCmd.PersistentFlags().String("db-dsn", "", "Database DSN (overrides DB_DSN)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(tokenCmd)
}

// loadConfig reads the config file and environment, then applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if v, _ := cmd.Flags().GetString("db-driver"); v != "" {
		cfg.DBDriver = v
	}
	if v, _ := cmd.Flags().GetString("db-dsn"); v != "" {
		cfg.DBDSN = v
	}
	return cfg, nil
}

// openStore opens the configured store. The returned *sql.DB is nil for the memory driver.
func openStore(ctx context.Context, cfg config.Config) (quiz.Store, *sql.DB, error) {
	switch cfg.DBDriver {
	case "memory":
		log.Println("using the in-memory store; data is lost on exit")
		return quiz.NewInMemoryStore(), nil, nil
	case "sqlite", "postgres":
		dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		return quiz.NewSQLStore(dbh, cfg.DBDriver), dbh, nil
	default:
		return nil, nil, fmt.Errorf("unsupported driver %q", cfg.DBDriver)
	}
}
