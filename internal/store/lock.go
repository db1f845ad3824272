package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/hrygo/modbot/internal/boterror"
)

// SetLock upserts a per-(chat,kind) Lock row. A nil Action falls back
// to the chat's DefaultLock at enforcement time (spec.md §4.6.3).
func (s *Store) SetLock(ctx context.Context, tx *sql.Tx, l *Lock) error {
	var action any
	if l.Action != nil {
		action = int(*l.Action)
	}
	return s.UpsertOnConflict(ctx, tx, "locks",
		[]string{"chat_id", "lock_kind", "action_kind", "reason"},
		[]string{"chat_id", "lock_kind"},
		[]string{"action_kind", "reason"},
		l.ChatID, string(l.Kind), action, l.Reason,
	)
}

// ClearLock removes a Lock, returning the chat to "unlocked" for that kind.
func (s *Store) ClearLock(ctx context.Context, tx *sql.Tx, chatID int64, kind LockKind) error {
	_, err := s.q(tx).ExecContext(ctx, s.dialect.Rebind(
		`DELETE FROM locks WHERE chat_id = ? AND lock_kind = ?`), chatID, string(kind))
	if err != nil {
		return boterror.Store("failed to clear lock", err)
	}
	return nil
}

// ListLocks returns every active Lock in a chat.
func (s *Store) ListLocks(ctx context.Context, chatID int64) ([]Lock, error) {
	rows, err := s.q(nil).QueryContext(ctx, s.dialect.Rebind(
		`SELECT chat_id, lock_kind, action_kind, reason FROM locks WHERE chat_id = ?`), chatID)
	if err != nil {
		return nil, boterror.Store("failed to list locks", err)
	}
	defer rows.Close()
	var out []Lock
	for rows.Next() {
		var l Lock
		var kind string
		var action sql.NullInt64
		if err := rows.Scan(&l.ChatID, &kind, &action, &l.Reason); err != nil {
			return nil, boterror.Store("failed to scan lock", err)
		}
		l.Kind = LockKind(kind)
		if action.Valid {
			a := ActionKind(action.Int64)
			l.Action = &a
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetDefaultLock reads the chat's fallback lock action, defaulting to
// Mute with no expiry if never configured.
func (s *Store) GetDefaultLock(ctx context.Context, chatID int64) (*DefaultLock, error) {
	var d DefaultLock
	d.ChatID = chatID
	var durSeconds int
	err := s.q(nil).QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT lock_action, duration_seconds FROM default_locks WHERE chat_id = ?`), chatID).
		Scan((*int)(&d.Action), &durSeconds)
	if err == sql.ErrNoRows {
		return &DefaultLock{ChatID: chatID, Action: ActionMute}, nil
	}
	if err != nil {
		return nil, boterror.Store("failed to get default lock", err)
	}
	d.Duration = time.Duration(durSeconds) * time.Second
	return &d, nil
}

// SetDefaultLock upserts the chat's fallback lock action.
func (s *Store) SetDefaultLock(ctx context.Context, tx *sql.Tx, d *DefaultLock) error {
	return s.UpsertOnConflict(ctx, tx, "default_locks",
		[]string{"chat_id", "lock_action", "duration_seconds"},
		[]string{"chat_id"},
		[]string{"lock_action", "duration_seconds"},
		d.ChatID, int(d.Action), int(d.Duration.Seconds()),
	)
}
