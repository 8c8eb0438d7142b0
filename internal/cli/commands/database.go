package commands

import (
	"context"
	"database/sql"
	"fmt"

	// database/sql drivers selected by database.driver
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/conduit-lang/rowmap/internal/cli/config"
	"github.com/conduit-lang/rowmap/internal/orm/crud"
)

// openDatabase opens and pings the configured database
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database.url is not set (configure rowmap.yml or DATABASE_URL)")
	}
	if cfg.Database.Driver == "" {
		return nil, fmt.Errorf("cannot infer a driver for %q, set database.driver", cfg.Database.URL)
	}

	if _, err := crud.DialectFor(cfg.Database.Driver); err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Database.Driver, cfg.DataSource())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
