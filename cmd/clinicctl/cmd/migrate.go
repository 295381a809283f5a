package cmd

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/templui/docclinic/internal/db"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQL user store schema (sqlite and pgx drivers)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(database *sqlx.DB, driver string) error {
				err := db.RunMigrations(database.DB, driver)
				if err != nil {
					return err
				}
				return printVersion(cmd, database, driver)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(database *sqlx.DB, driver string) error {
				err := db.MigrateDown(database.DB, driver)
				if err != nil {
					return err
				}
				return printVersion(cmd, database, driver)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(database *sqlx.DB, driver string) error {
				return printVersion(cmd, database, driver)
			})
		},
	})

	return cmd
}

func withDatabase(fn func(database *sqlx.DB, driver string) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.StoreDriver != "sqlite" && cfg.StoreDriver != "pgx" {
		return fmt.Errorf("STORE_DRIVER %q has no schema; migrations need sqlite or pgx", cfg.StoreDriver)
	}

	database, err := db.Init(cfg.StoreDriver, cfg.DBConnection)
	if err != nil {
		return err
	}
	defer database.Close()

	return fn(database, cfg.StoreDriver)
}

func printVersion(cmd *cobra.Command, database *sqlx.DB, driver string) error {
	version, err := db.MigrationVersion(database.DB, driver)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", version)
	return nil
}
