package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hrygo/modbot/internal/botcontext"
	"github.com/hrygo/modbot/internal/markup"
	"github.com/hrygo/modbot/internal/moderation"
	"github.com/hrygo/modbot/internal/store"
)

// cmdSave implements `/save <name>` as a reply: captures the
// replied-to message verbatim, with its platform entities, under name
// (spec.md §8: "save note N followed by get N returns the saved body
// and entities byte-exact").
func (a *App) cmdSave(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if msg.ReplyToMessage == nil || len(cmd.Args) == 0 {
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Reply to the message you want to save, naming it as the argument.")
		_, err := a.client.Send(ctx, reply)
		return err
	}
	name := cmd.Args[0]
	body := msg.ReplyToMessage

	existing, err := a.store.GetNote(ctx, msg.Chat.ID, name)
	var oldEntityID *int64
	if err == nil {
		oldEntityID = existing.EntityID
	}

	if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		entityID, err := a.store.CreateEntityTree(ctx, tx, moderation.ToStoreEntities(body.Entities), nil)
		if err != nil {
			return err
		}
		n := &store.Note{ChatID: msg.Chat.ID, Name: name, Text: body.Text, MediaKind: store.MediaText, EntityID: &entityID}
		if err := a.store.SaveNote(ctx, tx, n); err != nil {
			return err
		}
		if oldEntityID != nil {
			return a.store.DeleteEntityTree(ctx, tx, *oldEntityID)
		}
		return nil
	}); err != nil {
		return err
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Note %q saved.", name)))
	return err
}

// cmdGet implements `/get <name>`.
func (a *App) cmdGet(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if len(cmd.Args) == 0 {
		return nil
	}
	n, err := a.store.GetNote(ctx, msg.Chat.ID, cmd.Args[0])
	if err != nil {
		_, sendErr := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("No note named %q.", cmd.Args[0])))
		return sendErr
	}
	fillCtx := markup.FillingContext{ChatName: msg.Chat.Title}
	if msg.From != nil {
		fillCtx.FirstName, fillCtx.Username, fillCtx.UserID = msg.From.FirstName, msg.From.UserName, msg.From.ID
	}
	rendered, err := moderation.RenderNote(ctx, a.store, n, fillCtx)
	if err != nil {
		return err
	}
	out := tgbotapi.NewMessage(msg.Chat.ID, rendered.Text)
	out.Entities = rendered.Entities
	if rendered.Keyboard != nil {
		out.ReplyMarkup = *rendered.Keyboard
	}
	_, err = a.client.Send(ctx, out)
	return err
}

// cmdDeleteNote implements `/delete <name>`.
func (a *App) cmdDeleteNote(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if len(cmd.Args) == 0 {
		return nil
	}
	name := cmd.Args[0]
	var entityID *int64
	if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		entityID, err = a.store.DeleteNote(ctx, tx, msg.Chat.ID, name)
		if err != nil {
			return err
		}
		if entityID != nil {
			return a.store.DeleteEntityTree(ctx, tx, *entityID)
		}
		return nil
	}); err != nil {
		_, sendErr := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("No note named %q.", name)))
		if sendErr != nil {
			return sendErr
		}
		return nil
	}
	_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Note %q deleted.", name)))
	return err
}

// cmdNotesList implements `/notes`.
func (a *App) cmdNotesList(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	notes, err := a.store.ListNotes(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "No notes saved in this chat."))
		return err
	}
	var names []string
	for _, n := range notes {
		names = append(names, n.Name)
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "Notes:\n"+strings.Join(names, ", ")))
	return err
}
