package moderation

import (
	"context"

	"github.com/hrygo/modbot/internal/store"
)

// FindSticker returns the first tagged sticker matching tag in a chat.
// The `/list <tag>` command queries store.FindStickersByTag directly
// and does not go through this function.
func FindSticker(ctx context.Context, s *store.Store, chatID int64, tag string) (*store.Sticker, bool, error) {
	list, err := s.FindStickersByTag(ctx, chatID, tag)
	if err != nil {
		return nil, false, err
	}
	if len(list) == 0 {
		return nil, false, nil
	}
	return &list[0], true, nil
}
