package repository

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// DB is an ent SQL driver plus the pool behind it, when there is one.
type DB struct {
	Driver *entsql.Driver
	pool   *pgxpool.Pool
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open connects to Postgres through a pgx pool for postgres:// DSNs and to
// SQLite for anything else, and wraps the connection for ent's SQL builder.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if isPostgres(cfg.DSN) {
		return openPostgres(ctx, cfg, logger)
	}
	return openSQLite(cfg, logger)
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "dialect", dialect.Postgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database url", "error", err)
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "inspection-reports"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	// Wrap pool as *sql.DB for ent
	db := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to database")
	return &DB{Driver: entsql.OpenDB(dialect.Postgres, db), pool: pool}, nil
}

func openSQLite(cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("opening database", "dialect", dialect.SQLite, "dsn", cfg.DSN)
	db, err := stdsql.Open("sqlite", cfg.DSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return nil, err
	}
	// one writer keeps SQLite free of "database is locked" and makes :memory: a single database
	db.SetMaxOpenConns(1)
	return &DB{Driver: entsql.OpenDB(dialect.SQLite, db)}, nil
}

// Close closes the database connections gracefully
func (d *DB) Close(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("closing database connections")
	if d.Driver != nil {
		if err := d.Driver.Close(); err != nil {
			logger.Error("failed to close database driver", "error", err)
		}
	}
	if d.pool != nil {
		d.pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings using database/sql to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := d.Driver.DB().PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", d.Driver.Dialect(), err)
	}
	return nil
}
