// Package database provides the data access layer for the catalog.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup (SQLite or PostgreSQL), migrations, stats
//	├── catalog/         # Authors, books, genres, languages, book copies
//	├── loans/           # On-loan listings and the due date write
//	├── users/           # Accounts and granted permissions
//	└── audit/           # Audit trail
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.NewDatabase(cfg.Database)
//
//	catalogRepo := catalog.NewRepository(db.DB)
//	loansRepo := loans.NewRepository(db.DB)
//
//	book, err := catalogRepo.GetBookByID(123)
//	page, total, err := loansRepo.ListOnLoanByBorrower(userID, 10, 0)
//
// Repositories return gorm errors untouched; callers map
// gorm.ErrRecordNotFound to their own not-found errors.
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Register its entities in AutoMigrate
package database
