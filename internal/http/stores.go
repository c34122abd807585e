package http

import (
	"context"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/locallibrary/internal/database"
	auditrepo "github.com/mrlokans/locallibrary/internal/database/audit"
	"github.com/mrlokans/locallibrary/internal/entities"
)

// CatalogReader provides the public read side of the catalog.
// database/catalog.Repository implements it.
type CatalogReader interface {
	ListAuthors(limit, offset int) ([]entities.Author, int64, error)
	GetAuthorByID(id uint) (*entities.Author, error)
	ListBooks(limit, offset int) ([]entities.Book, int64, error)
	GetBookByID(id uint) (*entities.Book, error)
	ListInstancesForBook(bookID uint) ([]entities.BookInstance, error)
	ListGenres() ([]entities.Genre, error)
	ListLanguages() ([]entities.Language, error)
}

// LoanReader lists copies currently on loan, soonest due first.
// database/loans.Repository implements it.
type LoanReader interface {
	ListOnLoanByBorrower(borrowerID uint, limit, offset int) ([]entities.BookInstance, int64, error)
	ListOnLoan(limit, offset int) ([]entities.BookInstance, int64, error)
}

// StatsProvider supplies the counts shown on the catalog index.
type StatsProvider interface {
	Stats() (*database.CatalogStats, error)
}

// Auditor records staff actions. audit.Service implements it.
type Auditor interface {
	LogCatalogChange(userID uint, action, entityType, entityID, description string)
	LogRenewal(userID uint, instanceID string, dueBack time.Time, err error)
}

// AuditLog reads the audit trail back. audit.Service implements it.
type AuditLog interface {
	ListEvents(filter auditrepo.EventFilter, limit, offset int) ([]entities.AuditEvent, int64, error)
}

// SweepScheduler is the overdue sweep's cron trigger.
// scheduler.OverdueSweepScheduler implements it.
type SweepScheduler interface {
	IsRunning() bool
	NextRun() *time.Time
	RunNow() ([]string, error)
}

// TaskStatusReader looks up background tasks. tasks.Client implements it.
type TaskStatusReader interface {
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

type noopAuditor struct{}

func (noopAuditor) LogCatalogChange(uint, string, string, string, string) {}
func (noopAuditor) LogRenewal(uint, string, time.Time, error)             {}
