// Package postgres opens the lib/pq driver for the Durable Store
// Gateway, matching the teacher's store/db/postgres package.
package postgres

import (
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/hrygo/modbot/internal/store"
)

// Open opens a connection pool against the postgres DSN.
func Open(dsn string) (*sql.DB, store.Dialect, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, store.Dialect{}, err
	}
	return db, store.Postgres, nil
}
