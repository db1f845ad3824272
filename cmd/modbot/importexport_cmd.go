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

const (
	envModFilters    = "filters"
	envModBlocklists = "blocklists"
	envModLocks      = "locks"
	envModDefault    = "default_lock"
	envModNotes      = "notes"
	envModRules      = "rules"
	envModWelcome    = "welcome"
)

// cmdExport implements `/export`: serializes every module's state for
// the chat into a JSON envelope (spec.md §4.6.7) and sends it back as
// a document.
func (a *App) cmdExport(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	env := moderation.NewEnvelope(a.client.ID())

	filters, err := a.store.ListFilters(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if err := env.Put(envModFilters, filters); err != nil {
		return err
	}

	blocklists, err := a.store.ListBlocklists(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if err := env.Put(envModBlocklists, blocklists); err != nil {
		return err
	}

	locks, err := a.store.ListLocks(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if err := env.Put(envModLocks, locks); err != nil {
		return err
	}
	def, err := a.store.GetDefaultLock(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if err := env.Put(envModDefault, def); err != nil {
		return err
	}

	notes, err := a.store.ListNotes(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if err := env.Put(envModNotes, notes); err != nil {
		return err
	}

	rules, err := a.store.GetRules(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if err := env.Put(envModRules, rules); err != nil {
		return err
	}

	welcome, err := a.store.GetWelcome(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if err := env.Put(envModWelcome, welcome); err != nil {
		return err
	}

	data, err := env.Marshal()
	if err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{Name: "export.json", Bytes: data})
	_, err = a.client.Send(ctx, doc)
	return err
}

// cmdImport implements `/import` as a reply to an exported document:
// parses the envelope and writes each module's rows back for this
// chat. Media references the bot didn't itself mint (a rival bot's
// export, recognized by BotID mismatch) are recorded as Taint rather
// than trusted outright (spec.md §4.6.7).
func (a *App) cmdImport(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if msg.ReplyToMessage == nil || msg.ReplyToMessage.Document == nil {
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Reply to an exported document with /import.")
		_, err := a.client.Send(ctx, reply)
		return err
	}
	data, err := a.client.DownloadFile(ctx, msg.ReplyToMessage.Document.FileID)
	if err != nil {
		return err
	}
	env, err := moderation.ParseEnvelope(data)
	if err != nil {
		_, sendErr := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "That file isn't a valid export."))
		if sendErr != nil {
			return sendErr
		}
		return nil
	}
	foreign := env.BotID != 0 && env.BotID != a.client.ID()

	var filters []store.Filter
	if ok, err := env.Get(envModFilters, &filters); err != nil {
		return err
	} else if ok {
		if err := a.importFilters(ctx, msg.Chat.ID, filters, foreign); err != nil {
			return err
		}
	}

	var blocklists []store.Blocklist
	if ok, err := env.Get(envModBlocklists, &blocklists); err != nil {
		return err
	} else if ok {
		if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
			for i := range blocklists {
				blocklists[i].ChatID = msg.Chat.ID
				if _, err := a.store.CreateBlocklist(ctx, tx, &blocklists[i]); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}
	}

	var locks []store.Lock
	if ok, err := env.Get(envModLocks, &locks); err != nil {
		return err
	} else if ok {
		if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
			for i := range locks {
				locks[i].ChatID = msg.Chat.ID
				if err := a.store.SetLock(ctx, tx, &locks[i]); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}
	}

	var def store.DefaultLock
	if ok, err := env.Get(envModDefault, &def); err != nil {
		return err
	} else if ok {
		def.ChatID = msg.Chat.ID
		if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
			return a.store.SetDefaultLock(ctx, tx, &def)
		}); err != nil {
			return err
		}
	}

	var notes []store.Note
	if ok, err := env.Get(envModNotes, &notes); err != nil {
		return err
	} else if ok {
		if err := a.importNotes(ctx, msg.Chat.ID, notes, foreign); err != nil {
			return err
		}
	}

	var rules store.Rules
	if ok, err := env.Get(envModRules, &rules); err != nil {
		return err
	} else if ok {
		rules.ChatID = msg.Chat.ID
		if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
			return a.store.SetRules(ctx, tx, &rules)
		}); err != nil {
			return err
		}
	}

	var welcome store.Welcome
	if ok, err := env.Get(envModWelcome, &welcome); err != nil {
		return err
	} else if ok {
		welcome.ChatID = msg.Chat.ID
		if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
			return a.store.SetWelcome(ctx, tx, &welcome)
		}); err != nil {
			return err
		}
	}

	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "Import complete."))
	return err
}

// importFilters re-creates filters under chatID, marking a foreign
// export's media references as Taint rather than trusting a file-id
// this bot never minted.
func (a *App) importFilters(ctx context.Context, chatID int64, filters []store.Filter, foreign bool) error {
	return a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for i := range filters {
			f := filters[i]
			f.ChatID = chatID
			f.EntityID = nil
			id, err := a.store.CreateFilter(ctx, tx, &f)
			if err != nil {
				return err
			}
			if foreign && f.MediaRef != "" {
				if err := a.taint.Mark(ctx, tx, chatID, "filter", f.MediaRef, f.MediaKind, fmt.Sprintf("imported filter id %d", id)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// importNotes is importFilters's counterpart for notes.
func (a *App) importNotes(ctx context.Context, chatID int64, notes []store.Note, foreign bool) error {
	return a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for i := range notes {
			n := notes[i]
			n.ChatID = chatID
			n.EntityID = nil
			if err := a.store.SaveNote(ctx, tx, &n); err != nil {
				return err
			}
			if foreign && n.MediaRef != "" {
				if err := a.taint.Mark(ctx, tx, chatID, "note", n.MediaRef, n.MediaKind, fmt.Sprintf("imported note %q", n.Name)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// cmdTaint implements `/taint`: lists unresolved imported media
// references awaiting a DM patch.
func (a *App) cmdTaint(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	rows, err := a.store.ListTaintForChat(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "No unresolved media references."))
		return err
	}
	var lines []string
	for _, t := range rows {
		lines = append(lines, fmt.Sprintf("- %s: %s (%s)", t.Scope, t.MediaID, t.Notes))
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "Unresolved media:\n"+strings.Join(lines, "\n")))
	return err
}

// cmdFixTaint implements `/fixtaint <scope> <old_media_id>` as a reply
// to the correct replacement media: patches every module row that
// taints old_media_id with the replied message's file-id and clears
// the taint record (spec.md §4.6.7's 45-minute re-upload window).
func (a *App) cmdFixTaint(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if len(cmd.Args) < 2 || msg.ReplyToMessage == nil {
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Reply to the correct media with /fixtaint <scope> <old_media_id>.")
		_, err := a.client.Send(ctx, reply)
		return err
	}
	scope, oldID := cmd.Args[0], cmd.Args[1]
	newID, ok := replyMediaFileID(msg.ReplyToMessage)
	if !ok {
		_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "The replied message carries no media."))
		return err
	}
	var patched int
	err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		patched, err = a.taint.Patch(ctx, tx, msg.Chat.ID, scope, oldID, newID)
		return err
	})
	if err != nil {
		return err
	}
	if patched == 0 {
		_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "No taint record for that scope and media id."))
		return err
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "Media reference patched."))
	return err
}

func replyMediaFileID(m *tgbotapi.Message) (string, bool) {
	switch {
	case m.Sticker != nil:
		return m.Sticker.FileID, true
	case m.Document != nil:
		return m.Document.FileID, true
	case m.Video != nil:
		return m.Video.FileID, true
	case m.Audio != nil:
		return m.Audio.FileID, true
	case len(m.Photo) > 0:
		return m.Photo[len(m.Photo)-1].FileID, true
	default:
		return "", false
	}
}
