package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"frsm/internal/adapters/storage"
	"frsm/internal/adapters/storage/uow"
	"frsm/internal/application/orchestrators"
)

// InitDBCommands registers migrate and refresh-status.
func InitDBCommands(rootCmd *cobra.Command) {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()
			v, err := storage.SchemaVersion(db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (latest %d)\n", v, storage.LatestSchemaVersion())
			return nil
		},
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh-status",
		Short: "Move trainings and registrations along by today's date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()
			res, err := orchestrators.ExecuteRefreshTrainingStatuses(cmd.Context(), orchestrators.RefreshTrainingStatusesDeps{
				RunInTx: uow.Runner(db),
				Now:     now,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "trainings started: %d, completed: %d; registrations started: %d, completed: %d\n",
				res.TrainingsStarted, res.TrainingsCompleted, res.RegistrationsStarted, res.RegistrationsCompleted)
			return nil
		},
	}

	rootCmd.AddCommand(migrateCmd, refreshCmd)
}
