package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hrygo/modbot/internal/botcontext"
	"github.com/hrygo/modbot/internal/moderation"
	"github.com/hrygo/modbot/internal/store"
)

// cmdLock implements `/lock <kind> [action]` against the
// closed LockKind set spec.md §4.6.3 names.
func (a *App) cmdLock(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if len(cmd.Args) == 0 {
		return nil
	}
	kind := store.LockKind(strings.ToLower(cmd.Args[0]))
	if !moderation.ValidLockKind(kind) {
		_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Unknown lock kind %q.", cmd.Args[0])))
		return err
	}
	l := &store.Lock{ChatID: msg.Chat.ID, Kind: kind}
	if len(cmd.Args) > 1 {
		action, err := parseActionKind(cmd.Args[1])
		if err != nil {
			_, sendErr := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, err.Error()))
			return sendErr
		}
		l.Action = &action
	}
	if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return a.store.SetLock(ctx, tx, l)
	}); err != nil {
		return err
	}
	_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Locked %s.", kind)))
	return err
}

// cmdUnlock implements `/unlock <kind>`.
func (a *App) cmdUnlock(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if len(cmd.Args) == 0 {
		return nil
	}
	kind := store.LockKind(strings.ToLower(cmd.Args[0]))
	if !moderation.ValidLockKind(kind) {
		_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Unknown lock kind %q.", cmd.Args[0])))
		return err
	}
	if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return a.store.ClearLock(ctx, tx, msg.Chat.ID, kind)
	}); err != nil {
		return err
	}
	_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Unlocked %s.", kind)))
	return err
}

// cmdLocks implements `/locks`: lists enabled locks and the chat's
// default lock action.
func (a *App) cmdLocks(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	locks, err := a.store.ListLocks(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	def, err := a.store.GetDefaultLock(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	var lines []string
	for _, l := range locks {
		action := def.Action
		if l.Action != nil {
			action = *l.Action
		}
		lines = append(lines, fmt.Sprintf("- %s -> %s", l.Kind, action))
	}
	text := fmt.Sprintf("Default lock action: %s\n", def.Action)
	if len(lines) == 0 {
		text += "No locks enabled."
	} else {
		text += strings.Join(lines, "\n")
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, text))
	return err
}

// cmdLockAction implements `/lockaction <action> [duration]`: sets the
// chat's DefaultLock, the fallback for locks without an explicit
// per-kind action.
func (a *App) cmdLockAction(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if len(cmd.Args) == 0 {
		return nil
	}
	action, err := parseActionKind(cmd.Args[0])
	if err != nil {
		_, sendErr := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, err.Error()))
		return sendErr
	}
	d := &store.DefaultLock{ChatID: msg.Chat.ID, Action: action}
	if len(cmd.Args) > 1 {
		dur, derr := time.ParseDuration(cmd.Args[1])
		if derr != nil {
			_, sendErr := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Invalid duration %q.", cmd.Args[1])))
			return sendErr
		}
		d.Duration = dur
	}
	if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return a.store.SetDefaultLock(ctx, tx, d)
	}); err != nil {
		return err
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Default lock action set to %s.", action)))
	return err
}
