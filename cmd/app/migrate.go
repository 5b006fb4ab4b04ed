package main

import (
	"github.com/spf13/cobra"

	"github.com/freshcart/storefront/internal/infrastructure/database"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the cart and mock snapshot schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, (*database.Migrator).Up)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, (*database.Migrator).Down)
			},
		},
	)
	return cmd
}

func withMigrator(cmd *cobra.Command, run func(*database.Migrator) error) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := openDB(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	m, err := database.NewMigrator(db, log)
	if err != nil {
		_ = db.Close()
		return err
	}
	// closing the migrator also closes db
	defer m.Close()
	return run(m)
}
