package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.DBDriver == "memory" {
			return fmt.Errorf("nothing to migrate for the memory driver")
		}
		_, dbh, err := openStore(context.Background(), cfg)
		if err != nil {
			return err
		}
		defer dbh.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "schema is up to date (%s)\n", cfg.DBDriver)
		return nil
	},
}
