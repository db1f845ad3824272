package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hrygo/modbot/internal/boterror"
)

// Store is the Durable Store Gateway: a thin SQL layer shared by both
// drivers via Dialect, generalizing the teacher's per-driver ORM split
// into one entity surface. It is a process-wide singleton.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an already-open *sql.DB with its Dialect.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB exposes the underlying pool for components (migrations, ad-hoc
// queries) that need it directly.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect exposes the active SQL dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Migrate creates every table and index named in schema.go, idempotently.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range DDL(s.dialect) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return boterror.Store("migration failed", err)
		}
	}
	for _, idxs := range Indices() {
		for _, stmt := range idxs {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return boterror.Store("index migration failed", err)
			}
		}
	}
	return nil
}

// MigrateDown drops table (and its indices) as one atomic down-migration,
// per spec.md §4.2's "extension to drop tables and their indices
// atomically".
func (s *Store) MigrateDown(ctx context.Context, table string) error {
	return s.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range DownDrop(table) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return boterror.Store("down-migration failed", err)
			}
		}
		return nil
	})
}

// Queryer is satisfied by both *sql.DB and *sql.Tx, letting entity
// methods run either standalone or inside WithTx.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any error or panic — the "transactions (async closures
// returning results)" primitive named in spec.md §4.2.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return boterror.Store("failed to begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return boterror.Store("failed to commit transaction", err)
	}
	return nil
}

// q returns db as the Queryer to use, defaulting to the Store's pool
// when no transaction was handed in (nil tx).
func (s *Store) q(tx *sql.Tx) Queryer {
	if tx != nil {
		return tx
	}
	return s.db
}

// insertReturningID runs an INSERT and returns its surrogate id,
// bridging sqlite's Result.LastInsertId with postgres's RETURNING
// clause (lib/pq does not implement LastInsertId at all).
func (s *Store) insertReturningID(ctx context.Context, tx *sql.Tx, insertSQLite, insertPostgres string, args ...any) (int64, error) {
	q := s.q(tx)
	if s.dialect.Name == "postgres" {
		var id int64
		if err := q.QueryRowContext(ctx, insertPostgres, args...).Scan(&id); err != nil {
			return 0, boterror.Store("insert failed", err)
		}
		return id, nil
	}
	res, err := q.ExecContext(ctx, insertSQLite, args...)
	if err != nil {
		return 0, boterror.Store("insert failed", err)
	}
	return res.LastInsertId()
}

// UpsertOnConflict generalizes the teacher's
// "INSERT ... ON CONFLICT ... DO UPDATE SET ... " pattern
// (store/db/sqlite's UpsertEpisodicMemoryEmbedding) to an arbitrary
// table/column set. conflictCols is the natural key; updateCols are the
// columns refreshed on conflict (every other column is left alone).
func (s *Store) UpsertOnConflict(ctx context.Context, tx *sql.Tx, table string, cols, conflictCols, updateCols []string, args ...any) error {
	q := s.q(tx)

	placeholders := s.dialect.Placeholders(1, len(cols))
	var sets []string
	for _, c := range updateCols {
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		table,
		strings.Join(cols, ", "),
		placeholders,
		strings.Join(conflictCols, ", "),
		strings.Join(sets, ", "),
	)
	if len(updateCols) == 0 {
		query = fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
			table, strings.Join(cols, ", "), placeholders, strings.Join(conflictCols, ", "),
		)
	}

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return boterror.Store("upsert failed: "+table, err)
	}
	return nil
}
