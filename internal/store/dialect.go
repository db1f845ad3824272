package store

import (
	"fmt"
	"strings"
)

// Dialect captures the handful of places sqlite and postgres disagree:
// placeholder syntax, autoincrement column DDL, and (through Name) how an
// insert returns its new id. Upserts use one ON CONFLICT form for both
// drivers. The rest of this package's SQL is written once and shared by both drivers,
// generalizing the teacher's store/db/{sqlite,postgres} directory split
// (two concrete packages, one shared entity surface) down to this one
// seam instead of duplicating every query.
type Dialect struct {
	Name string

	// Placeholder renders the i'th (1-based) bind parameter.
	Placeholder func(i int) string

	// AutoIncrementPK is the column DDL fragment for a surrogate integer
	// primary key.
	AutoIncrementPK string
}

// SQLite is the modernc.org/sqlite dialect.
var SQLite = Dialect{
	Name:            "sqlite",
	Placeholder:     func(int) string { return "?" },
	AutoIncrementPK: "INTEGER PRIMARY KEY AUTOINCREMENT",
}

// Postgres is the lib/pq dialect.
var Postgres = Dialect{
	Name:            "postgres",
	Placeholder:     func(i int) string { return fmt.Sprintf("$%d", i) },
	AutoIncrementPK: "SERIAL PRIMARY KEY",
}

// Placeholders renders n consecutive placeholders, comma-joined, starting
// at bind position `from` (1-based).
func (d Dialect) Placeholders(from, n int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = d.Placeholder(from + i)
	}
	return strings.Join(parts, ", ")
}

// Rebind rewrites a query written with "?" placeholders into this
// dialect's placeholder syntax, so call sites can share one SQL literal.
func (d Dialect) Rebind(query string) string {
	if d.Name == "sqlite" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
