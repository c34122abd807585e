package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/catalog"
	"github.com/mrlokans/locallibrary/internal/circulation"
	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/database"
	auditrepo "github.com/mrlokans/locallibrary/internal/database/audit"
	catalogrepo "github.com/mrlokans/locallibrary/internal/database/catalog"
	"github.com/mrlokans/locallibrary/internal/database/loans"
	"github.com/mrlokans/locallibrary/internal/database/users"
	"github.com/mrlokans/locallibrary/internal/entities"
)

const testPassword = "correct-horse-battery"

// testToday is the fixed calendar day the renewal clock reports.
var testToday = time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

type auditEntry struct {
	userID     uint
	action     string
	entityType string
	entityID   string
	err        error
}

type fakeAuditor struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (f *fakeAuditor) LogCatalogChange(userID uint, action, entityType, entityID, description string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, auditEntry{userID: userID, action: action, entityType: entityType, entityID: entityID})
}

func (f *fakeAuditor) LogRenewal(userID uint, instanceID string, dueBack time.Time, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, auditEntry{userID: userID, action: "renew", entityType: "book_instance", entityID: instanceID, err: err})
}

func (f *fakeAuditor) all() []auditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]auditEntry(nil), f.entries...)
}

// testApp is the full router over a throwaway SQLite database.
type testApp struct {
	router  *gin.Engine
	db      *database.Database
	catalog *catalogrepo.Repository
	loans   *loans.Repository
	auth    *auth.Service
	auditor *fakeAuditor
	events  *auditrepo.Repository
}

// newTestApp builds the app; opts adjust the router config before it is built.
func newTestApp(t *testing.T, opts ...func(*RouterConfig)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(config.Database{
		Driver:   config.DatabaseDriverSQLite,
		Path:     filepath.Join(t.TempDir(), "library.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	authCfg := config.Auth{
		SessionLifetime:  time.Hour,
		BcryptCost:       4,
		MaxLoginAttempts: 5,
		RateLimitWindow:  time.Minute,
		LockoutDuration:  time.Minute,
	}
	authService := auth.NewService(users.NewRepository(db.DB), authCfg)
	sessions, err := auth.NewSessionManager(db.DB, config.DatabaseDriverSQLite, authCfg)
	require.NoError(t, err)
	authController := auth.NewAuthController(authService, sessions, authCfg, nil)
	t.Cleanup(authController.Stop)

	catalogRepo := catalogrepo.NewRepository(db.DB)
	lifecycle, err := catalog.NewService(catalogRepo, config.DefaultDateOfDeath)
	require.NoError(t, err)
	loansRepo := loans.NewRepository(db.DB)
	renewals := circulation.NewService(loansRepo, func() time.Time { return testToday.Add(9 * time.Hour) }, time.UTC)

	auditor := &fakeAuditor{}
	events := auditrepo.NewRepository(db.DB)
	routerCfg := RouterConfig{
		Database:       db,
		Catalog:        catalogRepo,
		Loans:          loansRepo,
		Auditor:        auditor,
		AuditLog:       events,
		Lifecycle:      lifecycle,
		Renewals:       renewals,
		AuthService:    authService,
		AuthMiddleware: auth.NewMiddleware(authService, sessions),
		AuthController: authController,
		SessionManager: sessions,
		AuthConfig:     authCfg,
		Pagination: config.Catalog{
			AuthorsPerPage: config.DefaultAuthorsPerPage,
			BooksPerPage:   config.DefaultBooksPerPage,
			LoansPerPage:   config.DefaultLoansPerPage,
		},
		Version: "test",
	}
	for _, opt := range opts {
		opt(&routerCfg)
	}
	router := NewRouter(routerCfg)

	return &testApp{
		router:  router,
		db:      db,
		catalog: catalogRepo,
		loans:   loansRepo,
		auth:    authService,
		auditor: auditor,
		events:  events,
	}
}

func (a *testApp) createUser(t *testing.T, username string, role entities.UserRole) *entities.User {
	t.Helper()
	user, err := a.auth.CreateUser(username, username+"@example.com", testPassword, role)
	require.NoError(t, err)
	return user
}

// login signs username in and returns the session cookies.
func (a *testApp) login(t *testing.T, username string) []*http.Cookie {
	t.Helper()
	w := a.post("/accounts/login/", url.Values{"username": {username}, "password": {testPassword}}, nil)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func (a *testApp) get(path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	return a.serve(req, cookies)
}

func (a *testApp) post(path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.serve(req, cookies)
}

func (a *testApp) postJSON(path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return a.serve(req, cookies)
}

func (a *testApp) serve(req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// Fixtures

func (a *testApp) addAuthor(t *testing.T, first, last string) *entities.Author {
	t.Helper()
	author := &entities.Author{FirstName: first, LastName: last}
	require.NoError(t, a.catalog.CreateAuthor(author))
	return author
}

func (a *testApp) addBook(t *testing.T, title string, author *entities.Author) *entities.Book {
	t.Helper()
	book := &entities.Book{
		Title:    title,
		AuthorID: author.ID,
		Summary:  "A summary of " + title,
		ISBN:     "9780000000000",
	}
	require.NoError(t, a.catalog.CreateBook(book, nil))
	return book
}

func (a *testApp) addInstance(t *testing.T, book *entities.Book, status entities.LoanStatus) *entities.BookInstance {
	t.Helper()
	instance := &entities.BookInstance{BookID: book.ID, Imprint: "Unlikely Imprint, 2016", Status: status}
	require.NoError(t, a.catalog.CreateInstance(instance))
	return instance
}

func (a *testApp) lend(t *testing.T, book *entities.Book, borrower *entities.User, dueBack time.Time) uuid.UUID {
	t.Helper()
	instance := a.addInstance(t, book, entities.LoanStatusAvailable)
	require.NoError(t, a.loans.Lend(instance.ID, borrower.ID, dueBack))
	return instance.ID
}
