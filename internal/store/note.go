package store

import (
	"context"
	"database/sql"

	"github.com/hrygo/modbot/internal/boterror"
)

// SaveNote upserts a Note keyed on (chatID,name). Overwriting a note
// whose old EntityID differs from the new one is the caller's
// responsibility to clean up via DeleteEntityTree first.
func (s *Store) SaveNote(ctx context.Context, tx *sql.Tx, n *Note) error {
	var entityID any
	if n.EntityID != nil {
		entityID = *n.EntityID
	}
	return s.UpsertOnConflict(ctx, tx, "notes",
		[]string{"chat_id", "name", "text", "media_ref", "media_kind", "protect", "entity_id"},
		[]string{"chat_id", "name"},
		[]string{"text", "media_ref", "media_kind", "protect", "entity_id"},
		n.ChatID, n.Name, n.Text, n.MediaRef, int(n.MediaKind), n.Protect, entityID,
	)
}

// GetNote reads one note by (chatID,name).
func (s *Store) GetNote(ctx context.Context, chatID int64, name string) (*Note, error) {
	row := s.q(nil).QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT chat_id, name, text, media_ref, media_kind, protect, entity_id
		 FROM notes WHERE chat_id = ? AND name = ?`), chatID, name)
	n, err := scanNote(row.Scan)
	if err == sql.ErrNoRows {
		return nil, boterror.NotFound("note")
	}
	if err != nil {
		return nil, boterror.Store("failed to get note", err)
	}
	return n, nil
}

// ListNotes returns every note saved in a chat, alphabetically.
func (s *Store) ListNotes(ctx context.Context, chatID int64) ([]Note, error) {
	rows, err := s.q(nil).QueryContext(ctx, s.dialect.Rebind(
		`SELECT chat_id, name, text, media_ref, media_kind, protect, entity_id
		 FROM notes WHERE chat_id = ? ORDER BY name`), chatID)
	if err != nil {
		return nil, boterror.Store("failed to list notes", err)
	}
	defer rows.Close()
	var out []Note
	for rows.Next() {
		n, err := scanNote(rows.Scan)
		if err != nil {
			return nil, boterror.Store("failed to scan note", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// PatchNoteMedia rewrites every note in chatID whose media_ref equals
// oldRef to newRef (spec.md §4.6.7's taint-patch flow for notes).
func (s *Store) PatchNoteMedia(ctx context.Context, tx *sql.Tx, chatID int64, oldRef, newRef string) error {
	if _, err := s.q(tx).ExecContext(ctx, s.dialect.Rebind(
		`UPDATE notes SET media_ref = ? WHERE chat_id = ? AND media_ref = ?`), newRef, chatID, oldRef); err != nil {
		return boterror.Store("failed to patch note media", err)
	}
	return nil
}

// DeleteNote removes a note, returning its EntityID (if any) so the
// caller can cascade-delete the owned rich-text tree.
func (s *Store) DeleteNote(ctx context.Context, tx *sql.Tx, chatID int64, name string) (*int64, error) {
	n, err := s.GetNote(ctx, chatID, name)
	if err != nil {
		return nil, err
	}
	if _, err := s.q(tx).ExecContext(ctx, s.dialect.Rebind(
		`DELETE FROM notes WHERE chat_id = ? AND name = ?`), chatID, name); err != nil {
		return nil, boterror.Store("failed to delete note", err)
	}
	return n.EntityID, nil
}

func scanNote(scan func(dest ...any) error) (*Note, error) {
	var n Note
	var entityID sql.NullInt64
	if err := scan(&n.ChatID, &n.Name, &n.Text, &n.MediaRef, (*int)(&n.MediaKind), &n.Protect, &entityID); err != nil {
		return nil, err
	}
	if entityID.Valid {
		n.EntityID = &entityID.Int64
	}
	return &n, nil
}
