package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/locallibrary/internal/audit"
	"github.com/mrlokans/locallibrary/internal/auth"
	"github.com/mrlokans/locallibrary/internal/catalog"
	"github.com/mrlokans/locallibrary/internal/circulation"
	"github.com/mrlokans/locallibrary/internal/database"
	auditrepo "github.com/mrlokans/locallibrary/internal/database/audit"
	catalogrepo "github.com/mrlokans/locallibrary/internal/database/catalog"
	"github.com/mrlokans/locallibrary/internal/database/loans"
	"github.com/mrlokans/locallibrary/internal/http"
	"github.com/mrlokans/locallibrary/internal/scheduler"
	"github.com/mrlokans/locallibrary/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ catalog.Store = (*catalogrepo.Repository)(nil)
var _ http.CatalogReader = (*catalogrepo.Repository)(nil)

var _ circulation.InstanceStore = (*loans.Repository)(nil)
var _ http.LoanReader = (*loans.Repository)(nil)
var _ tasks.LoanSource = (*loans.Repository)(nil)

var _ http.StatsProvider = (*database.Database)(nil)
var _ http.AuditLog = (*auditrepo.Repository)(nil)

// =============================================================================
// Audit Trail
// =============================================================================

var _ http.Auditor = (*audit.Service)(nil)
var _ http.AuditLog = (*audit.Service)(nil)
var _ auth.AuthEventLogger = (*audit.Service)(nil)
var _ tasks.OverdueRecorder = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ scheduler.Enqueuer = (*tasks.Client)(nil)
var _ http.TaskStatusReader = (*tasks.Client)(nil)
var _ http.SweepScheduler = (*scheduler.OverdueSweepScheduler)(nil)
