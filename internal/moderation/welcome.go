package moderation

import (
	"context"

	"github.com/hrygo/modbot/internal/markup"
	"github.com/hrygo/modbot/internal/store"
)

// RenderWelcome renders the chat's welcome message for a just-joined
// user through the murkdown engine, or false if disabled/unset.
func RenderWelcome(ctx context.Context, s *store.Store, chatID int64, fillCtx markup.FillingContext) (markup.Rendered, bool, error) {
	w, err := s.GetWelcome(ctx, chatID)
	if err != nil {
		return markup.Rendered{}, false, err
	}
	if !w.Enabled || w.Text == "" {
		return markup.Rendered{}, false, nil
	}
	return markup.RenderMurkdown(w.Text, fillCtx), true, nil
}
