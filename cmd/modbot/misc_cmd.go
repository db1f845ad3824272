package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hrygo/modbot/internal/botcontext"
	"github.com/hrygo/modbot/internal/moderation"
	"github.com/hrygo/modbot/internal/store"
)

// cmdUnapprove implements `/unapprove` as a reply; a no-op Speak on an
// un-approved user (spec.md §8).
func (a *App) cmdUnapprove(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	userID, ok := replyTargetUser(msg)
	if !ok {
		return nil
	}
	if err := a.store.Unapprove(ctx, msg.Chat.ID, userID); err != nil {
		if err == store.ErrNotApproved {
			_, sendErr := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "That user wasn't approved."))
			return sendErr
		}
		return err
	}
	_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "User unapproved."))
	return err
}

// cmdListApprovals implements `/listapprovals`.
func (a *App) cmdListApprovals(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	ids, err := a.store.ListApprovals(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "No approved users in this chat."))
		return err
	}
	var lines []string
	for _, id := range ids {
		lines = append(lines, fmt.Sprintf("- %d", id))
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "Approved users:\n"+strings.Join(lines, "\n")))
	return err
}

// cmdAvailable implements `/available`: lists every registered command.
func (a *App) cmdAvailable(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	names := make([]string, 0, len(commandTable))
	for name := range commandTable {
		names = append(names, name)
	}
	sort.Strings(names)
	_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "Available commands:\n"+strings.Join(names, ", ")))
	return err
}

// cmdHelp implements `/help`.
func (a *App) cmdHelp(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	text := "I moderate this chat: filters, blocklists, locks, captcha, warns, and federated bans. " +
		"Use /available to see every command."
	_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, text))
	return err
}

// cmdEval implements `/eval <expression...>`, sudo-only: runs the joined
// arguments as an expression through the same scripting engine
// scriptblocklist predicates use, against a probe message whose text is
// the replied-to message's text (empty when the command is not a
// reply), and reports the resolved ModAction.
func (a *App) cmdEval(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if msg.From == nil || !a.elevated.IsSudo(msg.From.ID) {
		return nil
	}
	if len(cmd.Args) == 0 {
		return nil
	}
	source := strings.Join(cmd.Args, " ")
	probe := moderation.ScriptMessage{ChatID: msg.Chat.ID, UserID: msg.From.ID, Username: msg.From.UserName}
	if msg.ReplyToMessage != nil {
		probe.Text = msg.ReplyToMessage.Text
	}
	action, err := a.scripts.Eval(source, probe)
	if err != nil {
		_, sendErr := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Eval error: %v", err)))
		return sendErr
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Result: %+v", action)))
	return err
}
