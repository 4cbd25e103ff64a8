package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pharmastore/internal/config"
	"pharmastore/internal/repos"
)

var seedCmd = &cobra.Command{
	Use:   "seed <catalog.yaml>",
	Short: "Upsert products from a YAML catalog into the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		db, err := repos.OpenDB(cfg.DBDSN)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()
		n, err := repos.SeedFromFile(db, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "upserted %d products into %s\n", n, cfg.DBDSN)
		return nil
	},
}
