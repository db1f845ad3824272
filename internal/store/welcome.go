package store

import (
	"context"
	"database/sql"

	"github.com/hrygo/modbot/internal/boterror"
)

// Welcome is the per-chat greeting shown to new members, a feature
// supplemented from original_source's welcome module and rendered
// through the same murkdown/entity pipeline as Notes and Rules.
type Welcome struct {
	ChatID   int64
	Text     string
	EntityID *int64
	Enabled  bool
}

// GetWelcome reads the chat's welcome message, disabled by default.
func (s *Store) GetWelcome(ctx context.Context, chatID int64) (*Welcome, error) {
	var w Welcome
	w.ChatID = chatID
	var entityID sql.NullInt64
	err := s.q(nil).QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT text, entity_id, enabled FROM welcomes WHERE chat_id = ?`), chatID).
		Scan(&w.Text, &entityID, &w.Enabled)
	if err == sql.ErrNoRows {
		return &Welcome{ChatID: chatID}, nil
	}
	if err != nil {
		return nil, boterror.Store("failed to get welcome", err)
	}
	if entityID.Valid {
		w.EntityID = &entityID.Int64
	}
	return &w, nil
}

// SetWelcome upserts the chat's welcome message.
func (s *Store) SetWelcome(ctx context.Context, tx *sql.Tx, w *Welcome) error {
	var entityID any
	if w.EntityID != nil {
		entityID = *w.EntityID
	}
	return s.UpsertOnConflict(ctx, tx, "welcomes",
		[]string{"chat_id", "text", "entity_id", "enabled"},
		[]string{"chat_id"},
		[]string{"text", "entity_id", "enabled"},
		w.ChatID, w.Text, entityID, w.Enabled,
	)
}
