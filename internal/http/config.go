package http

import (
	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/catalog"
	"github.com/mrlokans/locallibrary/internal/circulation"
	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Catalog  CatalogReader
	Loans    LoanReader
	Stats    StatsProvider // defaults to Database
	Auditor  Auditor
	AuditLog AuditLog // optional; enables /catalog/audit/

	// Staff operations
	Lifecycle *catalog.Service
	Renewals  *circulation.Service

	// Background work; both optional
	Sweep SweepScheduler
	Tasks TaskStatusReader

	// Authentication
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	AuthController *auth.AuthController // built from AuthService when nil
	AuthEvents     auth.AuthEventLogger
	SessionManager *auth.SessionManager
	AuthConfig     config.Auth
	CSRFSecret     []byte

	// Page sizes
	Pagination config.Catalog

	// Application info
	Version string
}
