package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	certificateStore "frsm/internal/adapters/storage/certificate"
	"frsm/internal/adapters/storage/uow"
	"frsm/internal/adapters/trainingsync"
	"frsm/internal/application/orchestrators"
	"frsm/internal/application/projections"
	"frsm/internal/domain/training"
	"frsm/internal/logging"
)

// InitTrainingCommands registers sync-trainings and expiry-report.
func InitTrainingCommands(rootCmd *cobra.Command) {
	syncCmd := &cobra.Command{
		Use:   "sync-trainings",
		Short: "Pull the external training catalogue into the database",
		Args:  cobra.NoArgs,
		RunE:  runSyncTrainings,
	}
	syncCmd.Flags().String("url", envOrDefault("FRSM_SYNC_URL", ""), "training API endpoint (defaults to FRSM_SYNC_URL)")
	syncCmd.Flags().String("log", envOrDefault("FRSM_SYNC_LOG", filepath.Join("logs", "training_sync.log")), "sync log file")

	expiryCmd := &cobra.Command{
		Use:   "expiry-report",
		Short: "List certificates that expired or expire within N days",
		Args:  cobra.NoArgs,
		RunE:  runExpiryReport,
	}
	expiryCmd.Flags().Int("within", 30, "days ahead to include")

	rootCmd.AddCommand(syncCmd, expiryCmd)
}

func runSyncTrainings(cmd *cobra.Command, _ []string) error {
	url, _ := cmd.Flags().GetString("url")
	if url == "" {
		return errors.New("no training API URL: pass --url or set FRSM_SYNC_URL")
	}
	logPath, _ := cmd.Flags().GetString("log")

	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	syncLog, closer := logging.NewFileLogger(logPath)
	defer closer.Close()

	res, err := orchestrators.ExecuteSyncTrainings(cmd.Context(), orchestrators.SyncTrainingsDeps{
		Source:     trainingsync.NewClient(url),
		RunInTx:    uow.Runner(db),
		GenerateID: generateID,
		Now:        now,
		SyncLog:    syncLog,
	})
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Message())
	return nil
}

func runExpiryReport(cmd *cobra.Command, _ []string) error {
	within, _ := cmd.Flags().GetInt("within")
	if within < 0 {
		return errors.New("--within must not be negative")
	}

	db, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := projections.QueryExpiryTracking(cmd.Context(), projections.ExpiryTrackingQuery{
		Today: training.DateOf(now()),
	}, projections.ExpiryTrackingDeps{Certificates: certificateStore.NewSQLiteStore(db)})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CERTIFICATE\tVOLUNTEER\tTRAINING\tEXPIRES\tDAYS")
	n := 0
	for _, row := range res.Rows {
		if !row.HasDays || row.Days > within {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", row.Certificate.Number, row.VolunteerName(), row.TrainingTitle,
			row.Certificate.ExpiryDate.Format(training.DateLayout), row.Days)
		n++
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d certificate(s) expired or expiring within %d days\n", n, within)
	return nil
}
