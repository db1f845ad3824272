// Package sqlite opens the modernc.org/sqlite (pure Go) driver for the
// Durable Store Gateway, matching the teacher's store/db/sqlite package.
package sqlite

import (
	"database/sql"

	_ "modernc.org/sqlite"

	"github.com/hrygo/modbot/internal/store"
)

// Open opens (and lazily creates) the sqlite database at dsn.
func Open(dsn string) (*sql.DB, store.Dialect, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, store.Dialect{}, err
	}
	db.SetMaxOpenConns(1) // matches modernc.org/sqlite's single-writer guidance
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, store.Dialect{}, err
	}
	return db, store.SQLite, nil
}
