package moderation

import (
	"context"

	"github.com/hrygo/modbot/internal/markup"
	"github.com/hrygo/modbot/internal/store"
)

// RenderNote renders a saved note's body the same way RenderFilter
// does: verbatim with its captured entities if saved from a reply, or
// through murkdown if authored as markdown source (spec.md §8: "save
// note N followed by get N returns the saved body and entities
// byte-exact").
func RenderNote(ctx context.Context, s *store.Store, n *store.Note, fillCtx markup.FillingContext) (markup.Rendered, error) {
	if n.EntityID != nil {
		return RenderStored(ctx, s, n.Text, n.EntityID)
	}
	return markup.RenderMurkdown(n.Text, fillCtx), nil
}
