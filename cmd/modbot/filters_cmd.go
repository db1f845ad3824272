package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hrygo/modbot/internal/botcontext"
	"github.com/hrygo/modbot/internal/moderation"
	"github.com/hrygo/modbot/internal/store"
)

// cmdFilter implements `/filter <trigger...>` as a reply: the
// replied-to message's text becomes the filter body, captured verbatim
// with its platform entities, and every whitespace-separated argument
// becomes a trigger (spec.md §8 scenario 1).
func (a *App) cmdFilter(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if msg.ReplyToMessage == nil || len(cmd.Args) == 0 {
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Reply to the message you want to save, with the trigger words as arguments.")
		_, err := a.client.Send(ctx, reply)
		return err
	}
	body := msg.ReplyToMessage

	var id int64
	err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		entityID, err := a.store.CreateEntityTree(ctx, tx, moderation.ToStoreEntities(body.Entities), nil)
		if err != nil {
			return err
		}
		f := &store.Filter{ChatID: msg.Chat.ID, Text: body.Text, MediaKind: store.MediaText, EntityID: &entityID, Triggers: cmd.Args}
		id, err = a.store.CreateFilter(ctx, tx, f)
		return err
	})
	if err != nil {
		return err
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Filter saved (id %d) for: %s", id, strings.Join(cmd.Args, ", "))))
	return err
}

// cmdStop implements `/stop <trigger>`: removes whichever filter in
// the chat carries trigger, if any.
func (a *App) cmdStop(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if len(cmd.Args) == 0 {
		return nil
	}
	filters, err := a.store.ListFilters(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	var target *store.Filter
	for i := range filters {
		for _, t := range filters[i].Triggers {
			if strings.EqualFold(t, cmd.Args[0]) {
				target = &filters[i]
			}
		}
	}
	if target == nil {
		_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "No filter with that trigger."))
		return err
	}
	if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		entityID, err := a.store.DeleteFilter(ctx, tx, target.ID)
		if err != nil {
			return err
		}
		if entityID != nil {
			return a.store.DeleteEntityTree(ctx, tx, *entityID)
		}
		return nil
	}); err != nil {
		return err
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "Filter removed."))
	return err
}

// cmdStopAll implements `/stopall`: removes every filter in the chat.
func (a *App) cmdStopAll(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	filters, err := a.store.ListFilters(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for i := range filters {
			entityID, err := a.store.DeleteFilter(ctx, tx, filters[i].ID)
			if err != nil {
				return err
			}
			if entityID != nil {
				if err := a.store.DeleteEntityTree(ctx, tx, *entityID); err != nil {
					return err
				}
			}
		}
		return nil
	}); err != nil {
		return err
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Removed %d filter(s).", len(filters))))
	return err
}

// cmdFilters implements `/filters`: lists every configured trigger.
func (a *App) cmdFilters(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	filters, err := a.store.ListFilters(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if len(filters) == 0 {
		_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "No filters configured in this chat."))
		return err
	}
	var lines []string
	for _, f := range filters {
		lines = append(lines, "- "+strings.Join(f.Triggers, ", "))
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "Filters:\n"+strings.Join(lines, "\n")))
	return err
}
