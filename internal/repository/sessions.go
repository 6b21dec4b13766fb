package repository

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/inspection-reports/internal/common"
	"github.com/joseph-ayodele/inspection-reports/internal/session"
)

const sessionsTable = "wizard_sessions"

// SessionRepository stores wizard states as JSON rows. It satisfies session.Store.
type SessionRepository struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

var _ session.Store = (*SessionRepository)(nil)

func NewSessionRepository(db *DB, logger *slog.Logger) *SessionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRepository{drv: db.Driver, logger: logger}
}

func (r *SessionRepository) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.drv.Dialect())
}

// Migrate creates the sessions table. The DDL is portable between SQLite and Postgres.
func (r *SessionRepository) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + sessionsTable + ` (
			id VARCHAR(64) NOT NULL PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ` + sessionsTable + `_updated_at ON ` + sessionsTable + ` (updated_at)`,
	}
	for _, stmt := range stmts {
		var res stdsql.Result
		if err := r.drv.Exec(ctx, stmt, []any{}, &res); err != nil {
			return fmt.Errorf("%w: migrate %s: %v", common.ErrDatabase, sessionsTable, err)
		}
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*session.State, error) {
	query, args := r.builder().
		Select("data").
		From(entsql.Table(sessionsTable)).
		Where(entsql.EQ("id", id)).
		Query()

	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("%w: get session: %v", common.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("%w: get session: %v", common.ErrDatabase, err)
		}
		return nil, common.ErrNotFound
	}
	var data string
	if err := rows.Scan(&data); err != nil {
		return nil, fmt.Errorf("%w: scan session: %v", common.ErrDatabase, err)
	}

	var st session.State
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		r.logger.Warn("session.decode.failed", "session_id", id, "error", err)
		return nil, common.ErrNotFound
	}
	return &st, nil
}

func (r *SessionRepository) Save(ctx context.Context, st *session.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	query, args := r.builder().
		Insert(sessionsTable).
		Columns("id", "data", "updated_at").
		Values(st.ID, string(data), st.UpdatedAt.Unix()).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	var res stdsql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		r.logger.Error("failed to save session", "session_id", st.ID, "error", err)
		return fmt.Errorf("%w: save session: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	query, args := r.builder().
		Delete(sessionsTable).
		Where(entsql.EQ("id", id)).
		Query()

	var res stdsql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("%w: delete session: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query, args := r.builder().
		Delete(sessionsTable).
		Where(entsql.LT("updated_at", before.Unix())).
		Query()

	var res stdsql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		return 0, fmt.Errorf("%w: delete expired sessions: %v", common.ErrDatabase, err)
	}
	return rowsAffected(res, "delete expired sessions")
}

func rowsAffected(res stdsql.Result, op string) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: rows affected: %v", common.ErrDatabase, op, err)
	}
	return n, nil
}
