package store

import (
	"context"
	"database/sql"

	"github.com/hrygo/modbot/internal/boterror"
)

// GetRules reads the one-per-chat Rules row, or a zero value with an
// empty Text if none has been set.
func (s *Store) GetRules(ctx context.Context, chatID int64) (*Rules, error) {
	var r Rules
	r.ChatID = chatID
	var entityID sql.NullInt64
	err := s.q(nil).QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT text, media_ref, media_kind, private, button_label, entity_id
		 FROM rules WHERE chat_id = ?`), chatID).
		Scan(&r.Text, &r.MediaRef, (*int)(&r.MediaKind), &r.Private, &r.ButtonLabel, &entityID)
	if err == sql.ErrNoRows {
		return &Rules{ChatID: chatID}, nil
	}
	if err != nil {
		return nil, boterror.Store("failed to get rules", err)
	}
	if entityID.Valid {
		r.EntityID = &entityID.Int64
	}
	return &r, nil
}

// SetRules upserts the chat's Rules row.
func (s *Store) SetRules(ctx context.Context, tx *sql.Tx, r *Rules) error {
	var entityID any
	if r.EntityID != nil {
		entityID = *r.EntityID
	}
	return s.UpsertOnConflict(ctx, tx, "rules",
		[]string{"chat_id", "text", "media_ref", "media_kind", "private", "button_label", "entity_id"},
		[]string{"chat_id"},
		[]string{"text", "media_ref", "media_kind", "private", "button_label", "entity_id"},
		r.ChatID, r.Text, r.MediaRef, int(r.MediaKind), r.Private, r.ButtonLabel, entityID,
	)
}

// ClearRules deletes the chat's Rules row, returning its EntityID (if
// any) for the caller to cascade-clean the owned rich-text tree.
func (s *Store) ClearRules(ctx context.Context, tx *sql.Tx, chatID int64) (*int64, error) {
	r, err := s.GetRules(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if _, err := s.q(tx).ExecContext(ctx, s.dialect.Rebind(
		`DELETE FROM rules WHERE chat_id = ?`), chatID); err != nil {
		return nil, boterror.Store("failed to clear rules", err)
	}
	return r.EntityID, nil
}
