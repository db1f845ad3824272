package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/hrygo/modbot/internal/boterror"
)

// GetDialog reads the one-per-chat Dialog row, creating a default one if
// this is the first sighting of chatID (spec.md §3 "Lifecycles": Dialogs
// are created lazily).
func (s *Store) GetDialog(ctx context.Context, chatID int64) (*Dialog, error) {
	row := s.q(nil).QueryRowContext(ctx, s.dialect.Rebind(`SELECT chat_id, language, kind, federation_id, warn_limit, warn_duration_seconds, default_action
		FROM dialogs WHERE chat_id = ?`), chatID)

	var d Dialog
	var lang, kind string
	var warnSeconds int
	var fedID sql.NullString
	if err := row.Scan(&d.ChatID, &lang, &kind, &fedID, &d.WarnLimit, &warnSeconds, (*int)(&d.DefaultAction)); err != nil {
		if err == sql.ErrNoRows {
			return s.createDefaultDialog(ctx, chatID)
		}
		return nil, boterror.Store("failed to get dialog", err)
	}
	d.Language = lang
	d.Kind = ChatKind(kind)
	d.WarnDuration = time.Duration(warnSeconds) * time.Second
	if fedID.Valid {
		d.FederationID = &fedID.String
	}
	return &d, nil
}

func (s *Store) createDefaultDialog(ctx context.Context, chatID int64) (*Dialog, error) {
	d := &Dialog{ChatID: chatID, Language: "en", Kind: ChatGroup, WarnLimit: 3, WarnDuration: 0, DefaultAction: ActionMute}
	if err := s.UpsertDialog(ctx, nil, d); err != nil {
		return nil, err
	}
	return d, nil
}

// UpsertDialog writes the Dialog row, cache-coherent per spec.md §4.2:
// callers that also cache this row must invalidate or refresh the cache
// key within the same write.
func (s *Store) UpsertDialog(ctx context.Context, tx *sql.Tx, d *Dialog) error {
	var fedID any
	if d.FederationID != nil {
		fedID = *d.FederationID
	}
	return s.UpsertOnConflict(ctx, tx, "dialogs",
		[]string{"chat_id", "language", "kind", "federation_id", "warn_limit", "warn_duration_seconds", "default_action"},
		[]string{"chat_id"},
		[]string{"language", "kind", "federation_id", "warn_limit", "warn_duration_seconds", "default_action"},
		d.ChatID, d.Language, string(d.Kind), fedID, d.WarnLimit, int(d.WarnDuration.Seconds()), int(d.DefaultAction),
	)
}
