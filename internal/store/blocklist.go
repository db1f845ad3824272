package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/hrygo/modbot/internal/boterror"
)

// ErrHandleTaken is returned by CreateBlocklist when a Script-predicate
// row's Handle collides with one already registered anywhere in the
// store (spec.md §4.6.4's global handle-uniqueness supplement).
var ErrHandleTaken = boterror.Generic("blocklist handle already in use", nil)

// CreateBlocklist inserts a Blocklist row plus its triggers. Handle
// uniqueness is enforced by the partial unique index in schema.go; a
// conflict there is translated to ErrHandleTaken.
func (s *Store) CreateBlocklist(ctx context.Context, tx *sql.Tx, b *Blocklist) (int64, error) {
	var handle any
	if b.Handle != "" {
		handle = b.Handle
	}
	id, err := s.insertReturningID(ctx, tx,
		s.dialect.Rebind(`INSERT INTO blocklists (chat_id, action_kind, reason, duration_seconds, handle) VALUES (?, ?, ?, ?, ?)`),
		s.dialect.Rebind(`INSERT INTO blocklists (chat_id, action_kind, reason, duration_seconds, handle) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		b.ChatID, int(b.Action), b.Reason, int(b.Duration.Seconds()), handle,
	)
	if err != nil {
		return 0, ErrHandleTaken
	}
	q := s.q(tx)
	for _, t := range b.Triggers {
		if _, err := q.ExecContext(ctx, s.dialect.Rebind(
			`INSERT INTO blocklist_triggers (trigger, blocklist_id, predicate_kind) VALUES (?, ?, ?)`),
			t.Trigger, id, string(t.Predicate)); err != nil {
			return 0, boterror.Store("failed to insert blocklist trigger", err)
		}
	}
	return id, nil
}

// DeleteBlocklist removes a Blocklist and its triggers (cascade).
func (s *Store) DeleteBlocklist(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := s.q(tx).ExecContext(ctx, s.dialect.Rebind(`DELETE FROM blocklists WHERE id = ?`), id)
	if err != nil {
		return boterror.Store("failed to delete blocklist", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return boterror.NotFound("blocklist")
	}
	return nil
}

// ListBlocklists returns every blocklist in a chat with its triggers,
// for the predicate matcher in internal/moderation.
func (s *Store) ListBlocklists(ctx context.Context, chatID int64) ([]Blocklist, error) {
	rows, err := s.q(nil).QueryContext(ctx, s.dialect.Rebind(
		`SELECT id, chat_id, action_kind, reason, duration_seconds, handle FROM blocklists WHERE chat_id = ?`), chatID)
	if err != nil {
		return nil, boterror.Store("failed to list blocklists", err)
	}
	var out []Blocklist
	for rows.Next() {
		var b Blocklist
		var handle sql.NullString
		var durSeconds int
		if err := rows.Scan(&b.ID, &b.ChatID, (*int)(&b.Action), &b.Reason, &durSeconds, &handle); err != nil {
			rows.Close()
			return nil, boterror.Store("failed to scan blocklist", err)
		}
		b.Duration = time.Duration(durSeconds) * time.Second
		if handle.Valid {
			b.Handle = handle.String
		}
		out = append(out, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, boterror.Store("blocklist rows error", err)
	}

	for i := range out {
		trigRows, err := s.q(nil).QueryContext(ctx, s.dialect.Rebind(
			`SELECT trigger, predicate_kind FROM blocklist_triggers WHERE blocklist_id = ?`), out[i].ID)
		if err != nil {
			return nil, boterror.Store("failed to load blocklist triggers", err)
		}
		for trigRows.Next() {
			var t BlocklistTrigger
			var predicate string
			if err := trigRows.Scan(&t.Trigger, &predicate); err != nil {
				trigRows.Close()
				return nil, boterror.Store("failed to scan blocklist trigger", err)
			}
			t.Predicate = PredicateKind(predicate)
			out[i].Triggers = append(out[i].Triggers, t)
		}
		trigRows.Close()
		if err := trigRows.Err(); err != nil {
			return nil, boterror.Store("blocklist trigger rows error", err)
		}
	}
	return out, nil
}

// HandleExists reports whether a Script-predicate handle is already
// registered.
func (s *Store) HandleExists(ctx context.Context, handle string) (bool, error) {
	var exists int
	err := s.q(nil).QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT 1 FROM blocklists WHERE handle = ?`), handle).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, boterror.Store("failed to check handle", err)
	}
	return true, nil
}
