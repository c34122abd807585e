package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/entities"
)

type Database struct {
	DB     *gorm.DB
	Driver config.DatabaseDriver
}

// NewDatabase connects to the configured backend and migrates the schema.
// SQL is logged at cfg.LogLevel, info when unset.
func NewDatabase(cfg config.Database) (*Database, error) {
	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return open(cfg, logger.Default.LogMode(level))
}

func parseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return logger.Info, nil
	case "warn":
		return logger.Warn, nil
	case "error":
		return logger.Error, nil
	case "silent":
		return logger.Silent, nil
	default:
		return 0, fmt.Errorf("unsupported database log level %q", level)
	}
}

func open(cfg config.Database, l logger.Interface) (*Database, error) {
	dialector, target, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: l})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized successfully (%s: %s)", cfg.Driver, target)

	return &Database{DB: db, Driver: cfg.Driver}, nil
}

func dialectorFor(cfg config.Database) (gorm.Dialector, string, error) {
	switch cfg.Driver {
	case config.DatabaseDriverSQLite, "":
		path := cfg.Path
		if path == "" {
			path = config.DefaultDatabasePath
		}
		return sqlite.Open(path), path, nil
	case config.DatabaseDriverPostgres:
		if cfg.DSN == "" {
			return nil, "", fmt.Errorf("DATABASE_DSN is required for the postgres driver")
		}
		return postgres.Open(cfg.DSN), "postgres", nil
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// AutoMigrate creates or updates every catalog table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entities.User{},
		&entities.UserPermission{},
		&entities.Author{},
		&entities.Genre{},
		&entities.Language{},
		&entities.Book{},
		&entities.BookGenre{},
		&entities.BookInstance{},
		&entities.AuditEvent{},
	)
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the underlying connection is alive.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Stats returns catalog-wide counts for the home page.
func (d *Database) Stats() (*CatalogStats, error) {
	var stats CatalogStats
	counts := []struct {
		model any
		where string
		dst   *int64
	}{
		{&entities.Book{}, "", &stats.Books},
		{&entities.BookInstance{}, "", &stats.Instances},
		{&entities.BookInstance{}, "status = ?", &stats.InstancesAvailable},
		{&entities.Author{}, "", &stats.Authors},
		{&entities.Genre{}, "", &stats.Genres},
		{&entities.Language{}, "", &stats.Languages},
	}
	for _, c := range counts {
		q := d.DB.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, entities.LoanStatusAvailable)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("failed to count catalog records: %w", err)
		}
	}
	return &stats, nil
}

type CatalogStats struct {
	Books              int64 `json:"num_books"`
	Instances          int64 `json:"num_instances"`
	InstancesAvailable int64 `json:"num_instances_available"`
	Authors            int64 `json:"num_authors"`
	Genres             int64 `json:"num_genres"`
	Languages          int64 `json:"num_languages"`
}
