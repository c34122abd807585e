// Package cli implements the administrative subcommands.
package cli

import (
	"fmt"

	"github.com/mrlokans/locallibrary/internal/config"
	"github.com/mrlokans/locallibrary/internal/database"
)

// openDatabase connects using the environment configuration. A non-empty
// path overrides DATABASE_PATH for SQLite.
func openDatabase(path string) (*database.Database, *config.Config, error) {
	cfg := config.NewConfig()
	if path != "" {
		cfg.Database.Path = path
	}
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, cfg, nil
}
