package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hrygo/modbot/internal/botcontext"
	"github.com/hrygo/modbot/internal/store"
)

// parseBlocklistCommand splits an /addblocklist argument list into its
// trigger words and an optional trailing `{action duration}` specifier
// (spec.md §4.3.1's filter/blocklist "footer" syntax), e.g.
// `spam {mute 5m}` -> (["spam"], ActionMute, 5m).
func parseBlocklistCommand(args []string) (triggers []string, action store.ActionKind, dur time.Duration, err error) {
	joined := strings.Join(args, " ")
	start := strings.Index(joined, "{")
	end := strings.LastIndex(joined, "}")
	action = store.ActionDelete
	if start == -1 || end == -1 || end < start {
		return strings.Fields(joined), action, 0, nil
	}
	triggers = strings.Fields(joined[:start])
	fields := strings.Fields(joined[start+1 : end])
	if len(fields) == 0 {
		return nil, 0, 0, fmt.Errorf("empty action specifier")
	}
	action, err = parseActionKind(fields[0])
	if err != nil {
		return nil, 0, 0, err
	}
	if len(fields) > 1 {
		dur, err = time.ParseDuration(fields[1])
		if err != nil {
			return nil, 0, 0, fmt.Errorf("invalid duration %q: %w", fields[1], err)
		}
	}
	return triggers, action, dur, nil
}

func parseActionKind(s string) (store.ActionKind, error) {
	switch strings.ToLower(s) {
	case "delete":
		return store.ActionDelete, nil
	case "warn":
		return store.ActionWarn, nil
	case "mute":
		return store.ActionMute, nil
	case "ban":
		return store.ActionBan, nil
	case "shame":
		return store.ActionShame, nil
	default:
		return 0, fmt.Errorf("unknown action kind %q", s)
	}
}

// cmdAddBlocklist implements `/addblocklist <trigger...> [{action
// [duration]}]` (spec.md §8 scenario 2): every trigger word matches as
// a Glob pattern (spec.md §4.6.2's default blocklist predicate).
func (a *App) cmdAddBlocklist(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	triggers, action, dur, err := parseBlocklistCommand(cmd.Args)
	if err != nil || len(triggers) == 0 {
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Usage: /addblocklist <words...> [{action [duration]}]")
		_, sendErr := a.client.Send(ctx, reply)
		if sendErr != nil {
			return sendErr
		}
		return nil
	}
	b := &store.Blocklist{ChatID: msg.Chat.ID, Action: action, Duration: dur}
	for _, t := range triggers {
		b.Triggers = append(b.Triggers, store.BlocklistTrigger{Trigger: t, Predicate: store.PredicateGlob})
	}
	if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := a.store.CreateBlocklist(ctx, tx, b)
		return err
	}); err != nil {
		return err
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Blocklist added for: %s", strings.Join(triggers, ", "))))
	return err
}

// cmdRmBlocklist implements `/rmblocklist <trigger>`: removes every
// blocklist row in the chat carrying that trigger word.
func (a *App) cmdRmBlocklist(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if len(cmd.Args) == 0 {
		return nil
	}
	n, err := a.removeBlocklistsWhere(ctx, msg.Chat.ID, func(b *store.Blocklist) bool {
		for _, t := range b.Triggers {
			if strings.EqualFold(t.Trigger, cmd.Args[0]) {
				return true
			}
		}
		return false
	})
	if err != nil {
		return err
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Removed %d blocklist(s).", n)))
	return err
}

// cmdRmAllBlocklists implements `/rmallblocklists`.
func (a *App) cmdRmAllBlocklists(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	n, err := a.removeBlocklistsWhere(ctx, msg.Chat.ID, func(*store.Blocklist) bool { return true })
	if err != nil {
		return err
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Removed %d blocklist(s).", n)))
	return err
}

// removeBlocklistsWhere deletes every blocklist in chatID that keep
// reports true for, returning how many were removed.
func (a *App) removeBlocklistsWhere(ctx context.Context, chatID int64, keep func(*store.Blocklist) bool) (int, error) {
	lists, err := a.store.ListBlocklists(ctx, chatID)
	if err != nil {
		return 0, err
	}
	var n int
	err = a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for i := range lists {
			if !keep(&lists[i]) {
				continue
			}
			if err := a.store.DeleteBlocklist(ctx, tx, lists[i].ID); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

// cmdBlocklistList implements `/blocklist`: lists every configured
// blocklist trigger and its action.
func (a *App) cmdBlocklistList(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	lists, err := a.store.ListBlocklists(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if len(lists) == 0 {
		_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "No blocklists configured in this chat."))
		return err
	}
	var lines []string
	for _, b := range lists {
		var words []string
		for _, t := range b.Triggers {
			words = append(words, t.Trigger)
		}
		lines = append(lines, fmt.Sprintf("- %s -> %s", strings.Join(words, ", "), b.Action))
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "Blocklists:\n"+strings.Join(lines, "\n")))
	return err
}

// cmdScriptBlocklist implements `/scriptblocklist <handle> <cel
// expression...>`: the scripting predicate spec.md §4.6.2 describes,
// keyed by a globally unique handle.
func (a *App) cmdScriptBlocklist(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if len(cmd.Args) < 2 {
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Usage: /scriptblocklist <handle> <expression...>")
		_, err := a.client.Send(ctx, reply)
		return err
	}
	handle, source := cmd.Args[0], strings.Join(cmd.Args[1:], " ")
	b := &store.Blocklist{
		ChatID: msg.Chat.ID, Action: store.ActionDelete, Handle: handle,
		Triggers: []store.BlocklistTrigger{{Trigger: source, Predicate: store.PredicateScript}},
	}
	err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := a.store.CreateBlocklist(ctx, tx, b)
		return err
	})
	if err == store.ErrHandleTaken {
		_, sendErr := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "That handle is already in use."))
		return sendErr
	}
	if err != nil {
		return err
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Script blocklist %q saved.", handle)))
	return err
}

// cmdRmScriptBlocklist implements `/rmscriptblocklist <handle>`.
func (a *App) cmdRmScriptBlocklist(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if len(cmd.Args) == 0 {
		return nil
	}
	n, err := a.removeBlocklistsWhere(ctx, msg.Chat.ID, func(b *store.Blocklist) bool {
		return strings.EqualFold(b.Handle, cmd.Args[0])
	})
	if err != nil {
		return err
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Removed %d script blocklist(s).", n)))
	return err
}
