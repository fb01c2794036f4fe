package browser_test

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"frsm/internal/adapters/certpdf"
	web "frsm/internal/adapters/http"
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
	"frsm/internal/application/orchestrators"
)

const testPassword = "TestPass123!long"

// seededAccounts are created in every test app. Each signs in with testPassword.
var seededAccounts = []orchestrators.CreateAccountInput{
	{Email: "admin@test.com", Password: testPassword, Role: "admin", FirstName: "Ada", LastName: "Lim"},
	{Email: "employee@test.com", Password: testPassword, Role: "employee", FirstName: "Ellen", LastName: "Ramos"},
	{Email: "volunteer@test.com", Password: testPassword, Role: "user", FirstName: "Ana", LastName: "Reyes"},
}

type testApp struct {
	BaseURL string
	DB      *sql.DB
	Browser playwright.Browser
	Stores  *web.Stores
}

// newTestApp serves the full application over a file-backed database and
// attaches a headless Chromium. Skips when Playwright is not installed.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dir := t.TempDir()

	db := openMigrated(t, filepath.Join(dir, "frsm.db"))
	stores := &web.Stores{
		AccountStore:      accountStore.NewSQLiteStore(db),
		TrainingStore:     trainingStore.NewSQLiteStore(db),
		RegistrationStore: registrationStore.NewSQLiteStore(db),
		CertificateStore:  certificateStore.NewSQLiteStore(db),
		VolunteerStore:    volunteerStore.NewSQLiteStore(db),
		NotificationStore: notificationStore.NewSQLiteStore(db),
		OutboxStore:       outboxStore.NewSQLiteStore(db),
		RunInTx:           uow.Runner(db),
	}
	seed(t, stores)

	baseURL := serve(t, stores, &web.Services{
		Certificates: certpdf.NewRenderer(dir),
		Proofs:       proofstore.New(dir),
	})
	return &testApp{BaseURL: baseURL, DB: db, Browser: launchChromium(t), Stores: stores}
}

func openMigrated(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := storage.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.MigrateDB(db, path))
	return db
}

func seed(t *testing.T, stores *web.Stores) {
	t.Helper()
	deps := orchestrators.CreateAccountDeps{
		RunInTx:    stores.RunInTx,
		GenerateID: uuid.NewString,
		Now:        time.Now,
	}
	for _, in := range seededAccounts {
		_, err := orchestrators.ExecuteCreateAccount(context.Background(), in, deps)
		require.NoError(t, err, "seeding %s", in.Email)
	}
}

// serve starts the mux on a loopback port and returns its base URL.
// Templates and static files resolve relative to the module root.
func serve(t *testing.T, stores *web.Stores, services *web.Services) string {
	t.Helper()
	t.Chdir(moduleRoot(t))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host := ln.Addr().String()
	_, port, _ := net.SplitHostPort(host)

	web.RateLimitPerSecond = 1000
	web.LoginAttemptsPerMinute = 1000
	handler, err := web.NewMux(web.Config{
		StaticDir:      "static",
		TrustedOrigins: []string{host, "localhost:" + port},
	}, stores, services, nil)
	require.NoError(t, err)

	srv := httptest.NewUnstartedServer(handler)
	srv.Listener.Close()
	srv.Listener = ln
	srv.Start()
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/login")
	require.NoError(t, err)
	resp.Body.Close()
	return srv.URL
}

func launchChromium(t *testing.T) playwright.Browser {
	t.Helper()
	pw, err := playwright.Run()
	if err != nil {
		t.Skipf("playwright driver not installed: %v", err)
	}
	t.Cleanup(func() { pw.Stop() })

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(true)})
	if err != nil {
		t.Skipf("chromium not installed: %v", err)
	}
	t.Cleanup(func() { browser.Close() })
	return browser
}

func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage()
	require.NoError(t, err)
	t.Cleanup(func() { page.Close() })
	return page
}

// login submits the sign-in form and waits for the role's landing page.
func (a *testApp) login(t *testing.T, page playwright.Page, email, landing string) {
	t.Helper()
	_, err := page.Goto(a.BaseURL + "/login")
	require.NoError(t, err)
	require.NoError(t, page.Locator("input[name=email]").Fill(email))
	require.NoError(t, page.Locator("input[name=password]").Fill(testPassword))
	require.NoError(t, page.Locator("button[type=submit]").Click())
	err = page.WaitForURL(a.BaseURL+landing, playwright.PageWaitForURLOptions{Timeout: playwright.Float(10000)})
	require.NoError(t, err, "login as %s did not reach %s", email, landing)
}

func moduleRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("go.mod not found above the working directory")
		}
		dir = parent
	}
}
