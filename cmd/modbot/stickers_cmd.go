package main

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hrygo/modbot/internal/botcontext"
	"github.com/hrygo/modbot/internal/store"
)

// cmdUpload implements `/upload <tag...>` as a reply to a sticker,
// tagging it for later lookup (a feature supplemented from
// original_source's sticker module, not in spec.md's distilled
// command set but exercised by the same media pipeline as filters and
// notes).
func (a *App) cmdUpload(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if msg.ReplyToMessage == nil || msg.ReplyToMessage.Sticker == nil || len(cmd.Args) == 0 {
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Reply to a sticker with /upload <tags...>.")
		_, err := a.client.Send(ctx, reply)
		return err
	}
	st := msg.ReplyToMessage.Sticker
	err := a.store.SaveSticker(ctx, &store.Sticker{
		ChatID: msg.Chat.ID, UID: st.FileUniqueID, FileID: st.FileID, Tags: cmd.Args,
	})
	if err != nil {
		return err
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "Sticker tagged."))
	return err
}

// cmdListStickers implements `/list <tag>`: re-sends the first sticker
// saved under tag.
func (a *App) cmdListStickers(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if len(cmd.Args) == 0 {
		return nil
	}
	stickers, err := a.store.FindStickersByTag(ctx, msg.Chat.ID, cmd.Args[0])
	if err != nil {
		return err
	}
	if len(stickers) == 0 {
		_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("No stickers tagged %q.", cmd.Args[0])))
		return err
	}
	_, err = a.client.Send(ctx, tgbotapi.NewSticker(msg.Chat.ID, tgbotapi.FileID(stickers[0].FileID)))
	return err
}
