package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/woodsnap/internal/cli"
	"github.com/Veraticus/woodsnap/internal/config"
	"github.com/Veraticus/woodsnap/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the scan history schema to the latest version.

Other commands migrate on open; this command is useful to inspect or prepare
a database ahead of time.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetBool("status")

	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	out := cmd.OutOrStdout()
	if status {
		_, _ = fmt.Fprintf(out, "Database: %s\n", store.Path())
		_, _ = fmt.Fprintf(out, "Schema version: %d (latest %d)\n", current, storage.ExpectedSchemaVersion)
		if current < storage.ExpectedSchemaVersion {
			_, _ = fmt.Fprintln(out, cli.FormatWarning("Migrations pending. Run: woodsnap migrate"))
		}
		return nil
	}

	if current >= storage.ExpectedSchemaVersion {
		_, _ = fmt.Fprintln(out, cli.FormatSuccess("Database is already up to date"))
		return nil
	}

	slog.Info("Running migrations", "from", current, "to", storage.ExpectedSchemaVersion)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Migrated database to schema version %d", storage.ExpectedSchemaVersion)))
	return nil
}
