package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kefis/kefis/internal/db"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Apply pending migrations and ensure the Kenya country row exists",
	Long: `seed brings a fresh database up to date: it runs every embedded
migration that hasn't been applied yet, then ensures the single
Kenya row in countries exists so the loader always has a foreign key
to attach entities to.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := db.Connect(ctx)
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		defer pool.Close()

		if err := db.ApplyMigrations(ctx, pool); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}

		loader := db.NewLoader(pool)
		countryID, err := loader.EnsureCountry(ctx)
		if err != nil {
			return fmt.Errorf("ensure country: %w", err)
		}

		fmt.Printf("seeded: country_id=%s\n", countryID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
