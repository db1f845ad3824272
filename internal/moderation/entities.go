package moderation

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hrygo/modbot/internal/markup"
	"github.com/hrygo/modbot/internal/store"
)

// ToStoreEntities converts a platform entity list (as attached to an
// inbound message) into the store's own MessageEntity rows, the shape
// CreateEntityTree persists for a Filter/Note saved verbatim from a
// reply (spec.md §8: "save note N followed by get N returns the saved
// body and entities byte-exact").
func ToStoreEntities(entities []tgbotapi.MessageEntity) []store.MessageEntity {
	out := make([]store.MessageEntity, 0, len(entities))
	for _, e := range entities {
		var userID int64
		if e.User != nil {
			userID = e.User.ID
		}
		out = append(out, store.MessageEntity{
			Type: e.Type, Offset: e.Offset, Length: e.Length,
			URL: e.URL, UserID: userID, Language: e.Language, CustomEmojiID: e.CustomEmojiID,
		})
	}
	return out
}

// fromStoreEntities is ToStoreEntities's inverse, used when rendering a
// Filter/Note whose body was captured verbatim rather than parsed fresh
// from murkdown source.
func fromStoreEntities(entities []store.MessageEntity) []tgbotapi.MessageEntity {
	out := make([]tgbotapi.MessageEntity, 0, len(entities))
	for _, e := range entities {
		te := tgbotapi.MessageEntity{
			Type: e.Type, Offset: e.Offset, Length: e.Length,
			URL: e.URL, Language: e.Language, CustomEmojiID: e.CustomEmojiID,
		}
		if e.UserID != 0 {
			te.User = &tgbotapi.User{ID: e.UserID}
		}
		out = append(out, te)
	}
	return out
}

// RenderStored loads a Filter/Note/Rules row's owned entity tree (if
// any) and wraps it as a Rendered triple, bypassing the murkdown parser
// for content captured verbatim from a replied platform message.
// entityID nil means plain text with no buttons or rich entities.
func RenderStored(ctx context.Context, s *store.Store, text string, entityID *int64) (markup.Rendered, error) {
	if entityID == nil {
		return markup.Rendered{Text: text}, nil
	}
	entities, buttons, err := s.LoadEntityTree(ctx, *entityID)
	if err != nil {
		return markup.Rendered{}, err
	}
	r := markup.Rendered{Text: text, Entities: fromStoreEntities(entities)}
	if len(buttons) > 0 {
		kb := buildStoredKeyboard(buttons)
		r.Keyboard = &kb
	}
	return r, nil
}

func buildStoredKeyboard(buttons []store.Button) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, b := range buttons {
		var btn tgbotapi.InlineKeyboardButton
		if b.Kind == store.ButtonCallback {
			btn = tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Target)
		} else {
			btn = tgbotapi.NewInlineKeyboardButtonURL(b.Label, b.Target)
		}
		if b.Same && len(rows) > 0 {
			rows[len(rows)-1] = append(rows[len(rows)-1], btn)
			continue
		}
		rows = append(rows, []tgbotapi.InlineKeyboardButton{btn})
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
