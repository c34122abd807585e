// Package interfaces documents the core abstractions used throughout the application.
//
// Consumers declare the narrow interface they need next to the code that
// uses it; the concrete repositories and services live elsewhere. checks.go
// pins every pairing at compile time.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - catalog.Store: authors, books, genres, languages and copies (internal/catalog/service.go)
//   - circulation.InstanceStore: copy lookup and the due date write (internal/circulation/renewal.go)
//   - http.CatalogReader: public catalog pages (internal/http/stores.go)
//   - http.LoanReader: on-loan listings (internal/http/stores.go)
//   - http.StatsProvider: index counts (internal/http/stores.go)
//   - tasks.LoanSource: every copy on loan, for the overdue sweep (internal/tasks/overdue_sweep.go)
//
// ## Audit Interfaces
//
//   - http.Auditor: records staff catalog changes and renewals
//   - http.AuditLog: reads the trail back for /catalog/audit/
//   - auth.AuthEventLogger: login and logout attempts (internal/auth/handlers.go)
//   - tasks.OverdueRecorder, tasks.AuditEventCleaner: background audit work
//
// ## Background Work
//
//   - scheduler.Enqueuer: hands cron-triggered tasks to the backlite queue
//     (internal/scheduler/overdue_sweep.go)
//
// # Adding a New Background Task
//
//  1. Define the task and its processor in internal/tasks/
//
//     type ReturnReminderTask struct {
//     DaysAhead int `json:"days_ahead"`
//     }
//
//     func (t ReturnReminderTask) Config() backlite.QueueConfig {
//     return backlite.QueueConfig{Name: "return_reminder", MaxAttempts: 3}
//     }
//
//  2. Register the queue on the tasks.Client in entrypoint.go
//
//  3. Enqueue it from a scheduler or a handler
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
