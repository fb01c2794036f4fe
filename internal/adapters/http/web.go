package web

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"frsm/internal/adapters/certpdf"
	"frsm/internal/adapters/http/middleware"
	"frsm/internal/adapters/http/perf"
	"frsm/internal/adapters/proofstore"
	accountStore "frsm/internal/adapters/storage/account"
	certificateStore "frsm/internal/adapters/storage/certificate"
	notificationStore "frsm/internal/adapters/storage/notification"
	outboxStore "frsm/internal/adapters/storage/outbox"
	registrationStore "frsm/internal/adapters/storage/registration"
	trainingStore "frsm/internal/adapters/storage/training"
	volunteerStore "frsm/internal/adapters/storage/volunteer"
	"frsm/internal/application/orchestrators"
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore      accountStore.Store
	TrainingStore     trainingStore.Store
	RegistrationStore registrationStore.Store
	CertificateStore  certificateStore.Store
	VolunteerStore    volunteerStore.Store
	NotificationStore notificationStore.Store
	OutboxStore       outboxStore.Store

	// RunInTx binds the stores to one transaction for multi-row commands.
	RunInTx orchestrators.TxRunner
}

// Services holds the file stores and background collaborators used by handlers.
type Services struct {
	Certificates *certpdf.Renderer
	Proofs       *proofstore.Store
	Sync         orchestrators.TrainingSource // nil disables the sync button
	SyncLog      *slog.Logger
	Outbox       *orchestrators.OutboxProcessor // used for manual retries
}

// Config carries the HTTP settings read from the environment.
type Config struct {
	StaticDir      string
	CSRFKey        string // 64 hex characters
	Production     bool
	TrustedOrigins []string
	SlowRequestMs  int
}

// LoadCSRFKey decodes the CSRF secret. In production the key is required;
// in development a random key is generated per startup.
func LoadCSRFKey(keyHex string, production bool) ([]byte, error) {
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, fmt.Errorf("FRSM_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key, nil
	}
	if production {
		return nil, fmt.Errorf("FRSM_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate CSRF key: %w", err)
	}
	slog.Warn("csrf_event", "event", "random_key", "detail", "forms will not survive a restart; set FRSM_CSRF_KEY")
	return key, nil
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global services instance (set by NewMux)
var services *Services

// Global session store instance
var sessions *middleware.SessionStore

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// LoginAttemptsPerMinute caps sign-in posts per IP on top of the account lockout.
var LoginAttemptsPerMinute = 10

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// NewMux wires HTTP handlers for the app.
// PRE: s and svc are fully populated
// POST: Returns the routed handler wrapped in the middleware chain
func NewMux(cfg Config, s *Stores, svc *Services, collector *perf.Collector) (http.Handler, error) {
	csrfKey, err := LoadCSRFKey(cfg.CSRFKey, cfg.Production)
	if err != nil {
		return nil, err
	}

	stores = s
	services = svc
	perfCollector = collector
	sessions = middleware.NewSessionStore()
	middleware.SecureCookies = cfg.Production

	mux := http.NewServeMux()
	if cfg.StaticDir != "" {
		mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))
	}
	registerRoutes(mux)

	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)
	loginLimiter := middleware.NewRateLimiter(LoginAttemptsPerMinute, time.Minute)

	// Request order: Auth -> Timing -> RateLimit -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey, middleware.CSRFOptions{Secure: cfg.Production, TrustedOrigins: cfg.TrustedOrigins}),
		middleware.RateLimit(limiter, middleware.StrictRule{Match: middleware.PostTo("/login"), Limiter: loginLimiter}),
		middleware.Timing(collector, cfg.SlowRequestMs),
		middleware.Auth(sessions),
	), nil
}
