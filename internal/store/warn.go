package store

import (
	"context"
	"database/sql"

	"github.com/hrygo/modbot/internal/boterror"
)

// AddWarn appends a Warn row (append-only per spec.md §3).
func (s *Store) AddWarn(ctx context.Context, tx *sql.Tx, w *Warn) (int64, error) {
	var expiry any
	if w.Expiry != nil {
		expiry = *w.Expiry
	}
	id, err := s.insertReturningID(ctx, tx,
		s.dialect.Rebind(`INSERT INTO warns (chat_id, user_id, reason, expiry, created_at) VALUES (?, ?, ?, ?, ?)`),
		s.dialect.Rebind(`INSERT INTO warns (chat_id, user_id, reason, expiry, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		w.ChatID, w.UserID, w.Reason, expiry, w.CreatedAt,
	)
	if err != nil {
		return 0, boterror.Store("failed to add warn", err)
	}
	return id, nil
}

// CountWarns returns the number of warns currently on record for
// (chatID,userID).
func (s *Store) CountWarns(ctx context.Context, chatID, userID int64) (int, error) {
	var n int
	err := s.q(nil).QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT COUNT(*) FROM warns WHERE chat_id = ? AND user_id = ?`), chatID, userID).Scan(&n)
	if err != nil {
		return 0, boterror.Store("failed to count warns", err)
	}
	return n, nil
}

// ListWarns returns every Warn on record for (chatID,userID), oldest first.
func (s *Store) ListWarns(ctx context.Context, chatID, userID int64) ([]Warn, error) {
	rows, err := s.q(nil).QueryContext(ctx, s.dialect.Rebind(
		`SELECT id, chat_id, user_id, reason, expiry, created_at FROM warns
		 WHERE chat_id = ? AND user_id = ? ORDER BY created_at`), chatID, userID)
	if err != nil {
		return nil, boterror.Store("failed to list warns", err)
	}
	defer rows.Close()
	var out []Warn
	for rows.Next() {
		var w Warn
		var expiry sql.NullTime
		if err := rows.Scan(&w.ID, &w.ChatID, &w.UserID, &w.Reason, &expiry, &w.CreatedAt); err != nil {
			return nil, boterror.Store("failed to scan warn", err)
		}
		if expiry.Valid {
			w.Expiry = &expiry.Time
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ClearWarns deletes every Warn for (chatID,userID), used after the
// chat's warn-limit triggers its default action (spec.md §4.6.6).
func (s *Store) ClearWarns(ctx context.Context, tx *sql.Tx, chatID, userID int64) error {
	_, err := s.q(tx).ExecContext(ctx, s.dialect.Rebind(
		`DELETE FROM warns WHERE chat_id = ? AND user_id = ?`), chatID, userID)
	if err != nil {
		return boterror.Store("failed to clear warns", err)
	}
	return nil
}
