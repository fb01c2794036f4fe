package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"frsm/internal/adapters/certpdf"
	emailPkg "frsm/internal/adapters/email"
	web "frsm/internal/adapters/http"
	"frsm/internal/adapters/http/perf"
	"frsm/internal/adapters/proofstore"
	"frsm/internal/adapters/storage"
	accountStore "frsm/internal/adapters/storage/account"
	certificateStore "frsm/internal/adapters/storage/certificate"
	notificationStore "frsm/internal/adapters/storage/notification"
	outboxStore "frsm/internal/adapters/storage/outbox"
	registrationStore "frsm/internal/adapters/storage/registration"
	trainingStore "frsm/internal/adapters/storage/training"
	"frsm/internal/adapters/storage/uow"
	volunteerStore "frsm/internal/adapters/storage/volunteer"
	"frsm/internal/adapters/trainingsync"
	"frsm/internal/application/orchestrators"
	"frsm/internal/domain/outbox"
	"frsm/internal/logging"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("config_event", "event", "dotenv_unreadable", "error", err)
	}

	_, logCloser := logging.Setup(logging.Options{
		Level: os.Getenv("FRSM_LOG_LEVEL"),
		File:  os.Getenv("FRSM_LOG_FILE"),
	})
	defer logCloser.Close()

	if err := run(); err != nil {
		slog.Error("server_event", "event", "fatal", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
}

func run() error {
	env := envOrDefault("FRSM_ENV", "development")
	production := env == "production"
	ctx := context.Background()

	dbPath := envOrDefault("FRSM_DB_PATH", "frsm.db")
	db, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.MigrateDB(db, dbPath); err != nil {
		return err
	}

	collector := perf.NewCollector(perf.DefaultRingSize)
	slowQuery := time.Duration(envInt("FRSM_SLOW_QUERY_MS", 0)) * time.Millisecond
	timedDB := storage.NewTimedDB(db, collector, slowQuery)

	stores := &web.Stores{
		AccountStore:      accountStore.NewSQLiteStore(timedDB),
		TrainingStore:     trainingStore.NewSQLiteStore(timedDB),
		RegistrationStore: registrationStore.NewSQLiteStore(timedDB),
		CertificateStore:  certificateStore.NewSQLiteStore(timedDB),
		VolunteerStore:    volunteerStore.NewSQLiteStore(timedDB),
		NotificationStore: notificationStore.NewSQLiteStore(timedDB),
		OutboxStore:       outboxStore.NewSQLiteStore(timedDB),
		RunInTx:           uow.Runner(timedDB),
	}

	accountDeps := orchestrators.CreateAccountDeps{RunInTx: stores.RunInTx, GenerateID: newID, Now: time.Now}
	adminEmail := envOrDefault("FRSM_ADMIN_EMAIL", "admin@frsm.local")
	if pw := os.Getenv("FRSM_ADMIN_PASSWORD"); pw != "" {
		if err := orchestrators.ExecuteSeedAdmin(ctx, accountDeps, adminEmail, pw); err != nil {
			return err
		}
	} else if production {
		slog.Warn("server_event", "event", "no_admin_seed", "detail", "FRSM_ADMIN_PASSWORD is not set")
	}
	if !production {
		n, err := orchestrators.ExecuteSeedDemoAccounts(ctx, accountDeps)
		if err != nil {
			return err
		}
		if n > 0 {
			slog.Info("server_event", "event", "demo_accounts_seeded", "count", n)
		}
	}

	// Notification e-mails go out through the outbox.
	from := envOrDefault("FRSM_RESEND_FROM", "FRSM Training <training@frsm.local>")
	resendKey := os.Getenv("FRSM_RESEND_KEY")
	if resendKey == "" && production {
		slog.Warn("server_event", "event", "email_disabled", "detail", "FRSM_RESEND_KEY is not set")
	}
	processor := orchestrators.NewOutboxProcessor(stores.OutboxStore, map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeNotificationEmail: &orchestrators.EmailExecutor{
			Sender:  emailPkg.New(resendKey, from),
			From:    from,
			ReplyTo: os.Getenv("FRSM_REPLY_TO"),
		},
	}, time.Now)

	uploadDir := envOrDefault("FRSM_UPLOAD_DIR", "uploads")
	services := &web.Services{
		Certificates: certpdf.NewRenderer(uploadDir),
		Proofs:       proofstore.New(uploadDir),
		Outbox:       processor,
	}

	housekeeping := orchestrators.HousekeepingDeps{
		Refresh:    orchestrators.RefreshTrainingStatusesDeps{RunInTx: stores.RunInTx, Now: time.Now},
		Outbox:     processor,
		Purger:     stores.OutboxStore,
		RetainDone: 30 * 24 * time.Hour,
		Now:        time.Now,
	}
	if syncURL := os.Getenv("FRSM_SYNC_URL"); syncURL != "" {
		syncLogPath := envOrDefault("FRSM_SYNC_LOG", filepath.Join("logs", "training_sync.log"))
		syncLog, syncCloser := logging.NewFileLogger(syncLogPath)
		defer syncCloser.Close()

		services.Sync = trainingsync.NewClient(syncURL)
		services.SyncLog = syncLog
		housekeeping.Sync = &orchestrators.SyncTrainingsDeps{
			Source:     services.Sync,
			RunInTx:    stores.RunInTx,
			GenerateID: newID,
			Now:        time.Now,
			SyncLog:    syncLog,
		}
		housekeeping.SyncInterval = envDuration("FRSM_SYNC_INTERVAL", time.Hour)
	}

	stopCh := make(chan struct{})
	keeper := orchestrators.NewHousekeeper(housekeeping)
	keeper.RunOnce(ctx)
	keeper.StartBackgroundWorker(time.Minute, stopCh)
	defer close(stopCh)

	handler, err := web.NewMux(web.Config{
		StaticDir:      envOrDefault("FRSM_STATIC_DIR", "static"),
		CSRFKey:        os.Getenv("FRSM_CSRF_KEY"),
		Production:     production,
		TrustedOrigins: splitList(os.Getenv("FRSM_TRUSTED_ORIGINS")),
		SlowRequestMs:  envInt("FRSM_SLOW_REQUEST_MS", 0),
	}, stores, services, collector)
	if err != nil {
		return err
	}

	addr := envOrDefault("FRSM_ADDR", ":8080")
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_event", "event", "listening", "addr", addr, "version", version, "env", env, "schema", storage.LatestSchemaVersion())
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-sigCh:
		slog.Info("server_event", "event", "shutdown", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
	return nil
}

func newID() string {
	return uuid.New().String()
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return fallback
}

// envDuration accepts Go durations ("30m") or a bare number of minutes.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Minute
	}
	slog.Warn("config_event", "event", "bad_duration", "key", key, "value", v)
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
