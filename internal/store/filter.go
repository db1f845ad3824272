package store

import (
	"context"
	"database/sql"

	"github.com/hrygo/modbot/internal/boterror"
)

// CreateFilter inserts a Filter row plus its trigger words, inside a
// caller-supplied transaction so both land atomically.
func (s *Store) CreateFilter(ctx context.Context, tx *sql.Tx, f *Filter) (int64, error) {
	var entityID any
	if f.EntityID != nil {
		entityID = *f.EntityID
	}
	id, err := s.insertReturningID(ctx, tx,
		s.dialect.Rebind(`INSERT INTO filters (chat_id, text, media_ref, media_kind, entity_id) VALUES (?, ?, ?, ?, ?)`),
		s.dialect.Rebind(`INSERT INTO filters (chat_id, text, media_ref, media_kind, entity_id) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		f.ChatID, f.Text, f.MediaRef, int(f.MediaKind), entityID,
	)
	if err != nil {
		return 0, boterror.Store("failed to create filter", err)
	}
	q := s.q(tx)
	for _, trig := range f.Triggers {
		if _, err := q.ExecContext(ctx, s.dialect.Rebind(
			`INSERT INTO triggers (trigger, filter_id) VALUES (?, ?)`), trig, id); err != nil {
			return 0, boterror.Store("failed to insert trigger", err)
		}
	}
	return id, nil
}

// DeleteFilter removes a Filter and its trigger rows (cascade), returning
// its EntityID for the caller to clean up the owned rich-text tree.
func (s *Store) DeleteFilter(ctx context.Context, tx *sql.Tx, filterID int64) (*int64, error) {
	var entityID sql.NullInt64
	err := s.q(tx).QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT entity_id FROM filters WHERE id = ?`), filterID).Scan(&entityID)
	if err == sql.ErrNoRows {
		return nil, boterror.NotFound("filter")
	}
	if err != nil {
		return nil, boterror.Store("failed to look up filter", err)
	}
	if _, err := s.q(tx).ExecContext(ctx, s.dialect.Rebind(
		`DELETE FROM filters WHERE id = ?`), filterID); err != nil {
		return nil, boterror.Store("failed to delete filter", err)
	}
	if entityID.Valid {
		return &entityID.Int64, nil
	}
	return nil, nil
}

// PatchFilterMedia rewrites every filter in chatID whose media_ref
// equals oldRef to newRef, the write half of a taint patch (spec.md
// §4.6.7) for filters imported with an unresolvable rival-bot file-id.
func (s *Store) PatchFilterMedia(ctx context.Context, tx *sql.Tx, chatID int64, oldRef, newRef string) error {
	if _, err := s.q(tx).ExecContext(ctx, s.dialect.Rebind(
		`UPDATE filters SET media_ref = ? WHERE chat_id = ? AND media_ref = ?`), newRef, chatID, oldRef); err != nil {
		return boterror.Store("failed to patch filter media", err)
	}
	return nil
}

// ListFilters returns every filter in a chat with its trigger words
// populated, for the whole-word matcher in internal/moderation.
func (s *Store) ListFilters(ctx context.Context, chatID int64) ([]Filter, error) {
	rows, err := s.q(nil).QueryContext(ctx, s.dialect.Rebind(
		`SELECT id, chat_id, text, media_ref, media_kind, entity_id FROM filters WHERE chat_id = ?`), chatID)
	if err != nil {
		return nil, boterror.Store("failed to list filters", err)
	}
	var filters []Filter
	for rows.Next() {
		var f Filter
		var entityID sql.NullInt64
		if err := rows.Scan(&f.ID, &f.ChatID, &f.Text, &f.MediaRef, (*int)(&f.MediaKind), &entityID); err != nil {
			rows.Close()
			return nil, boterror.Store("failed to scan filter", err)
		}
		if entityID.Valid {
			f.EntityID = &entityID.Int64
		}
		filters = append(filters, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, boterror.Store("filter rows error", err)
	}

	for i := range filters {
		trigRows, err := s.q(nil).QueryContext(ctx, s.dialect.Rebind(
			`SELECT trigger FROM triggers WHERE filter_id = ?`), filters[i].ID)
		if err != nil {
			return nil, boterror.Store("failed to load triggers", err)
		}
		for trigRows.Next() {
			var t string
			if err := trigRows.Scan(&t); err != nil {
				trigRows.Close()
				return nil, boterror.Store("failed to scan trigger", err)
			}
			filters[i].Triggers = append(filters[i].Triggers, t)
		}
		trigRows.Close()
		if err := trigRows.Err(); err != nil {
			return nil, boterror.Store("trigger rows error", err)
		}
	}
	return filters, nil
}
