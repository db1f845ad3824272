package store

import (
	"context"
	"database/sql"

	"github.com/hrygo/modbot/internal/boterror"
)

// Sticker is a tagged sticker file saved against a chat, the "sticker
// tagging and lookup" feature supplemented from original_source's
// sticker module (not present in spec.md's distilled command set but
// exercised by the same Note/Filter media pipeline).
type Sticker struct {
	ChatID int64
	UID    string
	FileID string
	Tags   []string
}

// SaveSticker upserts a tagged sticker, replacing its tag set wholesale.
func (s *Store) SaveSticker(ctx context.Context, st *Sticker) error {
	return s.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.UpsertOnConflict(ctx, tx, "stickers",
			[]string{"chat_id", "uid", "file_id"},
			[]string{"chat_id", "uid"},
			[]string{"file_id"},
			st.ChatID, st.UID, st.FileID,
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.dialect.Rebind(
			`DELETE FROM sticker_tags WHERE chat_id = ? AND uid = ?`), st.ChatID, st.UID); err != nil {
			return boterror.Store("failed to clear sticker tags", err)
		}
		for _, tag := range st.Tags {
			if _, err := tx.ExecContext(ctx, s.dialect.Rebind(
				`INSERT INTO sticker_tags (chat_id, uid, tag) VALUES (?, ?, ?)`), st.ChatID, st.UID, tag); err != nil {
				return boterror.Store("failed to insert sticker tag", err)
			}
		}
		return nil
	})
}

// FindStickersByTag returns every sticker in a chat carrying tag.
func (s *Store) FindStickersByTag(ctx context.Context, chatID int64, tag string) ([]Sticker, error) {
	rows, err := s.q(nil).QueryContext(ctx, s.dialect.Rebind(
		`SELECT s.chat_id, s.uid, s.file_id FROM stickers s
		 JOIN sticker_tags t ON t.chat_id = s.chat_id AND t.uid = s.uid
		 WHERE s.chat_id = ? AND t.tag = ?`), chatID, tag)
	if err != nil {
		return nil, boterror.Store("failed to find stickers by tag", err)
	}
	defer rows.Close()
	var out []Sticker
	for rows.Next() {
		var st Sticker
		if err := rows.Scan(&st.ChatID, &st.UID, &st.FileID); err != nil {
			return nil, boterror.Store("failed to scan sticker", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
