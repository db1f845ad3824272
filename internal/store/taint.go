package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/hrygo/modbot/internal/boterror"
)

// RecordTaint marks a chat/scope/media tuple as awaiting the DM
// re-upload patch described in spec.md's media-resolution supplement
// (grounded on original_source's taint-tracking of rival-bot media
// references the platform won't resolve directly).
func (s *Store) RecordTaint(ctx context.Context, tx *sql.Tx, t *Taint) error {
	return s.UpsertOnConflict(ctx, tx, "taint",
		[]string{"chat_id", "scope", "media_id", "media_kind", "notes", "created_at"},
		[]string{"chat_id", "scope", "media_id"},
		[]string{"media_kind", "notes", "created_at"},
		t.ChatID, t.Scope, t.MediaID, int(t.MediaKind), t.Notes, t.CreatedAt,
	)
}

// ResolveTaint removes a taint row once the patch DM arrives.
func (s *Store) ResolveTaint(ctx context.Context, tx *sql.Tx, chatID int64, scope, mediaID string) error {
	_, err := s.q(tx).ExecContext(ctx, s.dialect.Rebind(
		`DELETE FROM taint WHERE chat_id = ? AND scope = ? AND media_id = ?`), chatID, scope, mediaID)
	if err != nil {
		return boterror.Store("failed to resolve taint", err)
	}
	return nil
}

// ListTaintForChat returns every open taint row for a chat, for the
// `/taint` command's listing.
func (s *Store) ListTaintForChat(ctx context.Context, chatID int64) ([]Taint, error) {
	rows, err := s.q(nil).QueryContext(ctx, s.dialect.Rebind(
		`SELECT chat_id, scope, media_id, media_kind, notes, created_at
		 FROM taint WHERE chat_id = ?`), chatID)
	if err != nil {
		return nil, boterror.Store("failed to list taint", err)
	}
	defer rows.Close()
	var out []Taint
	for rows.Next() {
		var t Taint
		if err := rows.Scan(&t.ChatID, &t.Scope, &t.MediaID, (*int)(&t.MediaKind), &t.Notes, &t.CreatedAt); err != nil {
			return nil, boterror.Store("failed to scan taint", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListStaleTaint returns every taint row older than the 45-minute
// re-upload window, for the expiry sweep.
func (s *Store) ListStaleTaint(ctx context.Context, olderThan time.Time) ([]Taint, error) {
	rows, err := s.q(nil).QueryContext(ctx, s.dialect.Rebind(
		`SELECT chat_id, scope, media_id, media_kind, notes, created_at
		 FROM taint WHERE created_at < ?`), olderThan)
	if err != nil {
		return nil, boterror.Store("failed to list stale taint", err)
	}
	defer rows.Close()
	var out []Taint
	for rows.Next() {
		var t Taint
		if err := rows.Scan(&t.ChatID, &t.Scope, &t.MediaID, (*int)(&t.MediaKind), &t.Notes, &t.CreatedAt); err != nil {
			return nil, boterror.Store("failed to scan taint", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
