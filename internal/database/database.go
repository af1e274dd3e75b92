package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fema-catalog/internal/config"
	"fema-catalog/internal/database/migrations"
	"fema-catalog/internal/logger"
	"fema-catalog/internal/models"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const pgUniqueViolation = "23505"

// Open connects to the configured store. The ping is retried so a postgres
// container that is still starting does not abort the process.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	var (
		sqldb *sql.DB
		db    *bun.DB
		err   error
	)

	switch cfg.Driver {
	case "postgres":
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
		sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
		db = bun.NewDB(sqldb, pgdialect.New())
	case "sqlite":
		sqldb, err = sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// sqlite allows a single writer.
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	const maxRetries = 5
	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to %s (attempt %d/%d)", cfg.Driver, i+1, maxRetries))
		if err = db.PingContext(ctx); err == nil {
			break
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to %s: %v", cfg.Driver, err))
		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				db.Close()
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to %s after %d attempts: %w", cfg.Driver, maxRetries, err)
	}

	log.Info("DATABASE", fmt.Sprintf("%s connection successful", cfg.Driver))
	return db, nil
}

// Prepare brings the schema up to date for the active dialect: embedded
// migrations on postgres, bun-generated tables on sqlite.
func Prepare(ctx context.Context, db *bun.DB, log *logger.Logger) error {
	if IsPostgres(db) {
		runner := migrations.NewRunner(db, log)
		defer runner.Close()
		return runner.RunMigrations()
	}
	return CreateSchema(ctx, db)
}

// CreateSchema creates every catalog table if missing.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	tables := []struct {
		model interface{}
		fks   []string
	}{
		{model: (*models.User)(nil)},
		{model: (*models.Event)(nil), fks: []string{`("user_id") REFERENCES "users" ("id")`}},
		{model: (*models.Grant)(nil), fks: []string{`("event_id") REFERENCES "events" ("id") ON DELETE CASCADE`}},
		{model: (*models.SavedSearch)(nil), fks: []string{
			`("users_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
			`("events_id") REFERENCES "events" ("id") ON DELETE CASCADE`,
		}},
	}

	for _, t := range tables {
		q := db.NewCreateTable().Model(t.model).IfNotExists()
		for _, fk := range t.fks {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	indexes := []struct{ name, column string }{
		{"events_fema_id_idx", "fema_id"},
		{"events_state_id_idx", "state_id"},
		{"events_declared_on_idx", "declared_on"},
	}
	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model((*models.Event)(nil)).
			Index(idx.name).
			Column(idx.column).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}

	_, err := db.NewCreateIndex().
		Model((*models.Grant)(nil)).
		Index("grants_event_id_idx").
		Column("event_id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create index grants_event_id_idx: %w", err)
	}
	return nil
}

func IsPostgres(db bun.IDB) bool {
	return db.Dialect().Name() == dialect.PG
}

// IsUniqueViolation reports whether err came from a unique constraint on
// either supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
