// Package commands holds the cobra commands of frsmctl.
package commands

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"frsm/internal/adapters/storage"
)

// now is a variable for testability.
var now = time.Now

func generateID() string {
	return uuid.New().String()
}

// NewRootCommand builds frsmctl with every sub-command registered. Output goes to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "frsmctl",
		Short: "Maintenance commands for the FRSM training service",
		Long: `frsmctl runs the maintenance jobs of the training and certification service
against its SQLite database: schema migration, training catalogue sync,
status refresh, certificate expiry reports and account creation.

The database path defaults to FRSM_DB_PATH, or frsm.db when unset.`,
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().String("db", envOrDefault("FRSM_DB_PATH", "frsm.db"), "path to the SQLite database")

	InitDBCommands(rootCmd)
	InitTrainingCommands(rootCmd)
	InitUserCommands(rootCmd)
	return rootCmd
}

// openDB opens and migrates the database named by the --db flag.
func openDB(cmd *cobra.Command) (*sql.DB, error) {
	path, err := cmd.Flags().GetString("db")
	if err != nil {
		return nil, fmt.Errorf("invalid db flag: %w", err)
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	if err := storage.MigrateDB(db, path); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
