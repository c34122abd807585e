package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.AuthConfig.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	// CSRF runs before the session middleware: it replaces the request,
	// and the session context must be attached to the final one.
	if cfg.AuthConfig.CSRFEnabled && len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies))
	}

	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}
	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}

	healthController := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", healthController.Status)
	router.GET("/ping", healthController.Ping)

	authController := cfg.AuthController
	if authController == nil && cfg.AuthService != nil {
		authController = auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.AuthConfig, cfg.AuthEvents)
	}
	if authController != nil {
		authController.RegisterRoutes(router)
	}

	registerCatalogRoutes(router, cfg)

	return router
}

func registerCatalogRoutes(router *gin.Engine, cfg RouterConfig) {
	stats := cfg.Stats
	if stats == nil && cfg.Database != nil {
		stats = cfg.Database
	}
	today := time.Now
	if cfg.Renewals != nil {
		today = cfg.Renewals.Today
	}

	requireLogin, requireStaff := guards(cfg.AuthMiddleware)

	catalogController := NewCatalogController(cfg.Catalog, stats, cfg.SessionManager, cfg.Pagination)
	loansController := NewLoansController(cfg.Loans, today, cfg.Pagination.LoansPerPage)
	renewController := NewRenewController(cfg.Renewals, cfg.Auditor)
	lifecycle := NewLifecycleController(cfg.Lifecycle, cfg.Catalog, cfg.Auditor)

	catalog := router.Group("/catalog")
	{
		catalog.GET("/", catalogController.Index)
		catalog.GET("/authors/", catalogController.ListAuthors)
		catalog.GET("/author/:id", catalogController.GetAuthor)
		catalog.GET("/books/", catalogController.ListBooks)
		catalog.GET("/book/:id", catalogController.GetBook)
		catalog.GET("/genres/", catalogController.ListGenres)
		catalog.GET("/languages/", catalogController.ListLanguages)

		catalog.GET("/mybooks/", requireLogin, loansController.MyBooks)
	}

	staff := catalog.Group("", requireStaff)
	{
		staff.GET("/borrowed/", loansController.Borrowed)

		staff.GET("/book/:id/renew/", renewController.Form)
		staff.POST("/book/:id/renew/", renewController.Renew)

		staff.GET("/author/create/", lifecycle.NewAuthorForm)
		staff.POST("/author/create/", lifecycle.CreateAuthor)
		staff.GET("/author/:id/update/", lifecycle.EditAuthorForm)
		staff.POST("/author/:id/update/", lifecycle.UpdateAuthor)
		staff.GET("/author/:id/delete/", lifecycle.ConfirmDeleteAuthor)
		staff.POST("/author/:id/delete/", lifecycle.DeleteAuthor)

		staff.GET("/book/create/", lifecycle.NewBookForm)
		staff.POST("/book/create/", lifecycle.CreateBook)
		staff.GET("/book/:id/update/", lifecycle.EditBookForm)
		staff.POST("/book/:id/update/", lifecycle.UpdateBook)
		staff.GET("/book/:id/delete/", lifecycle.ConfirmDeleteBook)
		staff.POST("/book/:id/delete/", lifecycle.DeleteBook)
		staff.POST("/book/:id/instances/", lifecycle.CreateInstance)
		staff.POST("/bookinstance/:id/delete/", lifecycle.DeleteInstance)

		staff.POST("/genre/create/", lifecycle.CreateGenre)
		staff.POST("/genre/:id/delete/", lifecycle.DeleteGenre)
		staff.POST("/language/create/", lifecycle.CreateLanguage)
		staff.POST("/language/:id/delete/", lifecycle.DeleteLanguage)

		tasksController := NewTasksController(cfg.Sweep, cfg.Tasks)
		staff.GET("/sweep/", tasksController.SweepStatus)
		staff.POST("/sweep/run/", tasksController.RunSweep)
		staff.GET("/task/:id", tasksController.GetTaskStatus)

		if cfg.AuditLog != nil {
			staff.GET("/audit/", NewAuditController(cfg.AuditLog).ListEvents)
		}
	}
}

// guards returns the login and staff guards. Without an auth middleware
// nobody is signed in, so both send every request to the login page.
func guards(m *auth.Middleware) (gin.HandlerFunc, gin.HandlerFunc) {
	if m == nil {
		m = auth.NewMiddleware(nil, nil)
	}
	return m.RequireLogin(), m.RequirePermission(entities.PermissionCanMarkReturned)
}
