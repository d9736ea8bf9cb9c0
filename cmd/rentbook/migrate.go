package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"rentbook/internal/config"
	"rentbook/internal/invoices"
)

func newMigrateCmd() *cobra.Command {
	var dbPath string

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the invoice database schema",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if dbPath != "" {
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			dbPath = cfg.InvoiceDBPath
			return nil
		},
	}
	migrateCmd.PersistentFlags().StringVar(&dbPath, "db", "", "invoice database path (default INVOICE_DB_PATH)")

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
				return fmt.Errorf("create db directory: %w", err)
			}
			if err := invoices.RunMigrations(dbPath); err != nil {
				return err
			}
			return printVersion(cmd, dbPath)
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Revert the last applied migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := invoices.RollbackMigrations(dbPath); err != nil {
				return err
			}
			return printVersion(cmd, dbPath)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printVersion(cmd, dbPath)
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd, versionCmd)
	return migrateCmd
}

func printVersion(cmd *cobra.Command, dbPath string) error {
	version, dirty, ok, err := invoices.MigrationVersion(dbPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !ok {
		fmt.Fprintln(out, "No migrations applied.")
		return nil
	}
	if dirty {
		fmt.Fprintf(out, "Schema version %d (dirty)\n", version)
		return nil
	}
	fmt.Fprintf(out, "Schema version %d\n", version)
	return nil
}
