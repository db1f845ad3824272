package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hrygo/modbot/internal/botcontext"
	"github.com/hrygo/modbot/internal/markup"
	"github.com/hrygo/modbot/internal/moderation"
	"github.com/hrygo/modbot/internal/permissions"
	"github.com/hrygo/modbot/internal/store"
)

// handleUpdate is the entry point transport.Client.Run spawns one
// goroutine of per inbound update.
func (a *App) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		a.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		a.handleMessage(ctx, upd.Message)
	case upd.MyChatMember != nil:
		a.handleChatMember(ctx, upd.MyChatMember)
	case upd.ChatMember != nil:
		a.handleChatMember(ctx, upd.ChatMember)
	}
}

func (a *App) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if err := a.callbacks.Dispatch(ctx, cb.Data, cb); err != nil {
		slog.Warn("dispatch: callback handler lookup failed", "data", cb.Data, "error", err)
		_ = a.client.AnswerCallback(ctx, cb.ID, "This button has expired.")
	}
}

func (a *App) handleChatMember(ctx context.Context, upd *tgbotapi.ChatMemberUpdated) {
	member := store.ChatMember{
		ChatID: upd.Chat.ID,
		UserID: upd.NewChatMember.User.ID,
		Role:   roleFromChatMemberStatus(upd.NewChatMember.Status),
		Permissions: store.BotPermissionBits{
			CanManageChat:      upd.NewChatMember.CanManageChat,
			CanRestrictMembers: upd.NewChatMember.CanRestrictMembers,
			CanDeleteMessages:  upd.NewChatMember.CanDeleteMessages,
			CanChangeInfo:      upd.NewChatMember.CanChangeInfo,
			CanPromoteMembers:  upd.NewChatMember.CanPromoteMembers,
			CanPinMessages:     upd.NewChatMember.CanPinMessages,
		},
	}
	if err := a.admins.UpdateInPlace(ctx, upd.Chat.ID, member); err != nil {
		slog.Warn("dispatch: admin cache update failed", "chat_id", upd.Chat.ID, "error", err)
	}

	if member.Role == store.RoleMember && upd.OldChatMember.Status == "left" {
		a.greetNewMember(ctx, upd.Chat.ID, upd.NewChatMember.User)
		a.runCaptchaJoin(ctx, upd.Chat.ID, upd.NewChatMember.User)
	}
}

// runCaptchaJoin implements spec.md §4.6.4: mute the new member, present
// the configured challenge, and schedule a kick for when kick_time
// elapses without a solve.
func (a *App) runCaptchaJoin(ctx context.Context, chatID int64, user tgbotapi.User) {
	cfg, err := a.store.GetCaptchaConfig(ctx, chatID)
	if err != nil {
		slog.Warn("dispatch: reading captcha config failed", "chat_id", chatID, "error", err)
		return
	}
	if !cfg.Enabled {
		return
	}
	if err := a.client.RestrictUser(ctx, chatID, user.ID, time.Time{}); err != nil {
		slog.Warn("dispatch: muting new member failed", "chat_id", chatID, "user_id", user.ID, "error", err)
		return
	}

	authorize := func(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
		if cb.From.ID != user.ID {
			return a.client.AnswerCallback(ctx, cb.ID, "This button isn't for you.")
		}
		return a.authorizeCaptcha(ctx, chatID, user.ID, cb.ID)
	}

	var text string
	var keyboard tgbotapi.InlineKeyboardMarkup
	switch moderation.ChallengeFor(cfg) {
	case "text":
		challenge := moderation.BuildCaptchaChallenge(chatID, user.ID, 4)
		link, err := botcontext.PostDeepLink(ctx, a.cache, a.client.Username(), challenge, 30*time.Minute)
		if err != nil {
			slog.Warn("dispatch: posting captcha deep link failed", "chat_id", chatID, "error", err)
			return
		}
		text = fmt.Sprintf("Welcome %s! Tap below to solve a quick captcha in DM.", user.FirstName)
		keyboard = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Solve captcha", link)))
	default:
		id := a.callbacks.InstallOnce(authorize, 24*time.Hour)
		text = fmt.Sprintf("Welcome %s! Press the button below to prove you're human.", user.FirstName)
		keyboard = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("I'm not a robot", id)))
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := a.client.Send(ctx, msg); err != nil {
		slog.Warn("dispatch: sending captcha challenge failed", "chat_id", chatID, "error", err)
	}

	if cfg.KickTime != nil {
		go a.scheduleCaptchaKick(chatID, user.ID, *cfg.KickTime)
	}
}

// scheduleCaptchaKick blocks for d then kicks (chatID,userID) unless
// they authorized in the interim; cancellation is implicit in the
// authorization check, per spec.md §5.
func (a *App) scheduleCaptchaKick(chatID, userID int64, d time.Duration) {
	time.Sleep(d)
	ctx := context.Background()
	solved, err := a.store.IsCaptchaSolved(ctx, chatID, userID)
	if err != nil {
		slog.Warn("dispatch: checking captcha solve before kick failed", "chat_id", chatID, "error", err)
		return
	}
	if solved {
		return
	}
	if err := a.client.KickUser(ctx, chatID, userID); err != nil {
		slog.Warn("dispatch: captcha kick-timer kick failed", "chat_id", chatID, "user_id", userID, "error", err)
	}
}

// authorizeCaptcha unmutes userID, marks them solved, and answers the
// triggering callback; called both by the button handler and by the
// text-captcha DM flow once it validates a choice.
func (a *App) authorizeCaptcha(ctx context.Context, chatID, userID int64, callbackID string) error {
	if err := a.client.UnrestrictUser(ctx, chatID, userID); err != nil {
		return err
	}
	if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return a.store.MarkCaptchaSolved(ctx, tx, chatID, userID)
	}); err != nil {
		return err
	}
	if err := a.captcha.ResetTries(ctx, chatID, userID); err != nil {
		slog.Warn("dispatch: resetting captcha tries failed", "chat_id", chatID, "error", err)
	}
	return a.client.AnswerCallback(ctx, callbackID, "You're verified, welcome!")
}

func roleFromChatMemberStatus(status string) store.MemberRole {
	switch status {
	case "creator":
		return store.RoleOwner
	case "administrator":
		return store.RoleAdministrator
	case "restricted":
		return store.RoleRestricted
	case "left":
		return store.RoleLeft
	case "kicked":
		return store.RoleBanned
	default:
		return store.RoleMember
	}
}

func (a *App) greetNewMember(ctx context.Context, chatID int64, user tgbotapi.User) {
	fillCtx := markup.FillingContext{FirstName: user.FirstName, LastName: user.LastName, Username: user.UserName, UserID: user.ID}
	rendered, ok, err := moderation.RenderWelcome(ctx, a.store, chatID, fillCtx)
	if err != nil {
		slog.Warn("dispatch: rendering welcome failed", "chat_id", chatID, "error", err)
		return
	}
	if !ok {
		return
	}
	msg := tgbotapi.NewMessage(chatID, rendered.Text)
	msg.Entities = rendered.Entities
	if rendered.Keyboard != nil {
		msg.ReplyMarkup = *rendered.Keyboard
	}
	if _, err := a.client.Send(ctx, msg); err != nil {
		slog.Warn("dispatch: sending welcome failed", "chat_id", chatID, "error", err)
	}
}

func (a *App) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From != nil && !msg.From.IsBot {
		if err := a.store.UpsertUser(ctx, nil, &store.User{
			ID: msg.From.ID, FirstName: msg.From.FirstName, LastName: msg.From.LastName,
			Username: msg.From.UserName, IsBot: msg.From.IsBot,
		}); err != nil {
			slog.Warn("dispatch: upserting user failed", "user_id", msg.From.ID, "error", err)
		}
	}

	if msg.From != nil && !msg.Chat.IsPrivate() {
		if a.enforceGban(ctx, msg) {
			return
		}
	}

	bctx := botcontext.New(&tgbotapi.Update{Message: msg})
	if bctx.Command != nil {
		a.dispatchCommand(ctx, msg, bctx.Command)
		return
	}

	if msg.Chat.IsPrivate() {
		return
	}
	a.enforceGroupRules(ctx, msg)
}

// enforceGban bans and deletes a message from a globally-banned user
// in any chat the bot sees (spec.md §4.6.5), returning true if it did
// so (callers must stop further processing of the message).
func (a *App) enforceGban(ctx context.Context, msg *tgbotapi.Message) bool {
	banned, err := a.store.IsGbanned(ctx, msg.From.ID)
	if err != nil {
		slog.Warn("dispatch: checking gban failed", "user_id", msg.From.ID, "error", err)
		return false
	}
	if !banned {
		return false
	}
	if err := a.client.BanUser(ctx, msg.Chat.ID, msg.From.ID, time.Time{}); err != nil {
		slog.Warn("dispatch: banning gbanned user failed", "chat_id", msg.Chat.ID, "user_id", msg.From.ID, "error", err)
	}
	if err := a.client.DeleteMessage(ctx, msg.Chat.ID, msg.MessageID); err != nil {
		slog.Warn("dispatch: deleting gbanned user's message failed", "chat_id", msg.Chat.ID, "error", err)
	}
	notice := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("%s is globally banned and has been removed.", msg.From.FirstName))
	if _, err := a.client.Send(ctx, notice); err != nil {
		slog.Warn("dispatch: sending gban notice failed", "chat_id", msg.Chat.ID, "error", err)
	}
	return true
}

// restrict and changeInfo shorten the requireAdmin predicate literals
// used to build commandTable below.
func restrict(p permissions.NamedBotPermissions) permissions.NamedPermission { return p.CanRestrictMembers }
func changeInfo(p permissions.NamedBotPermissions) permissions.NamedPermission { return p.CanChangeInfo }

// commandTable maps a command name to its handler, covering the full
// closed CLI surface spec.md §6 names. Configuration commands
// (filters, blocklists, locks, notes, rules, import/export/taint,
// stickers) require CanChangeInfo; direct moderation actions against a
// member require CanRestrictMembers; read-only listings, /eval (which
// gates on Sudo itself), and per-user self-service commands are
// unwrapped.
var commandTable = map[string]func(ctx context.Context, a *App, msg *tgbotapi.Message, cmd *botcontext.Command) error{
	"start":  (*App).cmdStart,
	"rules":  (*App).cmdRules,
	"warn":   requireAdmin((*App).cmdWarn, restrict),
	"ban":    requireAdmin((*App).cmdBan, restrict),
	"unban":  requireAdmin((*App).cmdUnban, restrict),
	"mute":   requireAdmin((*App).cmdMute, restrict),
	"unmute": requireAdmin((*App).cmdUnmute, restrict),
	"kickme": (*App).cmdKickme,

	"approve":       requireAdmin((*App).cmdApprove, restrict),
	"unapprove":     requireAdmin((*App).cmdUnapprove, restrict),
	"listapprovals": (*App).cmdListApprovals,

	"captcha":     requireAdmin((*App).cmdCaptcha, restrict),
	"captchamode": requireAdmin((*App).cmdCaptchaMode, restrict),
	"captchakick": requireAdmin((*App).cmdCaptchaKick, restrict),

	"newfed": (*App).cmdNewFed,
	"subfed": (*App).cmdSubFed,
	"gban":   (*App).cmdGban,
	"ungban": (*App).cmdUngban,

	"setrules": requireAdmin((*App).cmdSetRules, changeInfo),

	"filter":  requireAdmin((*App).cmdFilter, changeInfo),
	"stop":    requireAdmin((*App).cmdStop, changeInfo),
	"stopall": requireAdmin((*App).cmdStopAll, changeInfo),
	"filters": (*App).cmdFilters,

	"addblocklist":      requireAdmin((*App).cmdAddBlocklist, changeInfo),
	"rmblocklist":       requireAdmin((*App).cmdRmBlocklist, changeInfo),
	"rmallblocklists":   requireAdmin((*App).cmdRmAllBlocklists, changeInfo),
	"blocklist":         (*App).cmdBlocklistList,
	"scriptblocklist":   requireAdmin((*App).cmdScriptBlocklist, changeInfo),
	"rmscriptblocklist": requireAdmin((*App).cmdRmScriptBlocklist, changeInfo),

	"lock":       requireAdmin((*App).cmdLock, changeInfo),
	"unlock":     requireAdmin((*App).cmdUnlock, changeInfo),
	"locks":      (*App).cmdLocks,
	"lockaction": requireAdmin((*App).cmdLockAction, changeInfo),

	"save":   requireAdmin((*App).cmdSave, changeInfo),
	"get":    (*App).cmdGet,
	"delete": requireAdmin((*App).cmdDeleteNote, changeInfo),
	"notes":  (*App).cmdNotesList,

	"import":   requireAdmin((*App).cmdImport, changeInfo),
	"export":   requireAdmin((*App).cmdExport, changeInfo),
	"taint":    (*App).cmdTaint,
	"fixtaint": requireAdmin((*App).cmdFixTaint, changeInfo),

	"upload": requireAdmin((*App).cmdUpload, changeInfo),
	"list":   (*App).cmdListStickers,

	"available": (*App).cmdAvailable,
	"help":      (*App).cmdHelp,
	"eval":      (*App).cmdEval,
}

// cmdNewFed implements `/newfed <name>`: creates a federation owned by
// the sender (at most one per owner, enforced by the unique index on
// federations.owner per spec.md §3).
func (a *App) cmdNewFed(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if msg.From == nil || len(cmd.Args) == 0 {
		return nil
	}
	var fed *store.Federation
	err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var ferr error
		fed, ferr = a.store.CreateFederation(ctx, tx, msg.From.ID, cmd.Args[0])
		return ferr
	})
	if err != nil {
		_, sendErr := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "You already own a federation, or that name is taken."))
		return sendErr
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Federation %q created (id %s).", fed.Name, fed.ID)))
	return err
}

// cmdSubFed implements `/subfed <ours> <theirs>`: subscribes the
// sender's federation `ours` to `theirs`, rejecting the write (and
// leaving the table unchanged) if it would introduce a cycle
// (spec.md §4.6.5, §8).
func (a *App) cmdSubFed(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if msg.From == nil || len(cmd.Args) < 2 {
		return nil
	}
	ours, err := a.store.GetFederationByName(ctx, cmd.Args[0])
	if err != nil {
		return err
	}
	if ours.Owner != msg.From.ID {
		_, sendErr := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "You don't own that federation."))
		return sendErr
	}
	theirs, err := a.store.GetFederationByName(ctx, cmd.Args[1])
	if err != nil {
		return err
	}
	err = a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return a.store.Subscribe(ctx, tx, ours.ID, theirs.ID)
	})
	if err == store.ErrFederationCycle {
		_, sendErr := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "That subscription would create a cycle."))
		return sendErr
	}
	if err != nil {
		return err
	}
	if err := a.fedGuard.Invalidate(ctx, ours.ID); err != nil {
		slog.Warn("dispatch: invalidating federation cache failed", "fed_id", ours.ID, "error", err)
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("%s now subscribes to %s.", ours.Name, theirs.Name)))
	return err
}

// cmdGban implements `/gban` as a reply, sudo/support only.
func (a *App) cmdGban(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if msg.From == nil || !(a.elevated.IsSudo(msg.From.ID) || a.elevated.IsSupport(msg.From.ID)) {
		return nil
	}
	userID, ok := replyTargetUser(msg)
	if !ok {
		return nil
	}
	reason := ""
	if len(cmd.Args) > 0 {
		reason = cmd.Args[0]
	}
	if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return a.store.Gban(ctx, tx, userID, reason)
	}); err != nil {
		return err
	}
	_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "User globally banned."))
	return err
}

// cmdUngban implements `/ungban` as a reply, sudo/support only.
func (a *App) cmdUngban(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if msg.From == nil || !(a.elevated.IsSudo(msg.From.ID) || a.elevated.IsSupport(msg.From.ID)) {
		return nil
	}
	userID, ok := replyTargetUser(msg)
	if !ok {
		return nil
	}
	if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return a.store.Ungban(ctx, tx, userID)
	}); err != nil {
		return err
	}
	_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "Global ban lifted."))
	return err
}

// cmdCaptcha implements `/captcha on|off`, toggling the chat's
// captcha.Enabled flag.
func (a *App) cmdCaptcha(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if len(cmd.Args) == 0 {
		return nil
	}
	cfg, err := a.store.GetCaptchaConfig(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	cfg.Enabled = cmd.Args[0] == "on"
	if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return a.store.SetCaptchaConfig(ctx, tx, cfg)
	}); err != nil {
		return err
	}
	state := "disabled"
	if cfg.Enabled {
		state = "enabled"
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "Captcha "+state+"."))
	return err
}

// cmdCaptchaMode implements `/captchamode button|text`.
func (a *App) cmdCaptchaMode(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if len(cmd.Args) == 0 {
		return nil
	}
	kind := store.CaptchaButton
	if cmd.Args[0] == "text" {
		kind = store.CaptchaText
	}
	cfg, err := a.store.GetCaptchaConfig(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	cfg.Kind = kind
	if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return a.store.SetCaptchaConfig(ctx, tx, cfg)
	}); err != nil {
		return err
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "Captcha mode set to "+string(kind)+"."))
	return err
}

// cmdCaptchaKick implements `/captchakick <seconds>|off`.
func (a *App) cmdCaptchaKick(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if len(cmd.Args) == 0 {
		return nil
	}
	cfg, err := a.store.GetCaptchaConfig(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if cmd.Args[0] == "off" {
		cfg.KickTime = nil
	} else {
		seconds, err := strconv.Atoi(cmd.Args[0])
		if err != nil {
			return nil
		}
		d := time.Duration(seconds) * time.Second
		cfg.KickTime = &d
	}
	if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return a.store.SetCaptchaConfig(ctx, tx, cfg)
	}); err != nil {
		return err
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "Captcha kick timer updated."))
	return err
}

func (a *App) dispatchCommand(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) {
	handler, ok := commandTable[cmd.Name]
	if !ok {
		return
	}
	if err := handler(ctx, a, msg, cmd); err != nil {
		slog.Warn("dispatch: command handler failed", "command", cmd.Name, "chat_id", msg.Chat.ID, "error", err)
	}
}

// requireAdmin wraps a command handler behind permissions.Checker's
// check_permissions flow (spec.md §4.5.3), only calling fn once the
// sender's grant for pred resolves true.
func requireAdmin(
	fn func(ctx context.Context, a *App, msg *tgbotapi.Message, cmd *botcontext.Command) error,
	pred permissions.Predicate,
) func(ctx context.Context, a *App, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	return func(ctx context.Context, a *App, msg *tgbotapi.Message, cmd *botcontext.Command) error {
		sender := permissions.Sender{IsAnonymous: msg.From == nil && msg.SenderChat != nil}
		if msg.From != nil {
			sender.UserID = msg.From.ID
		}
		chatKind := chatKindOf(msg.Chat)
		return a.checker.CheckPermissions(ctx, chatKind, msg.Chat.ID, sender, pred, func(ctx context.Context, granted bool) error {
			if !granted {
				reply := tgbotapi.NewMessage(msg.Chat.ID, "You don't have permission to do that.")
				reply.ReplyToMessageID = msg.MessageID
				_, err := a.client.Send(ctx, reply)
				return err
			}
			return fn(ctx, a, msg, cmd)
		})
	}
}

func chatKindOf(chat *tgbotapi.Chat) store.ChatKind {
	switch {
	case chat.IsSuperGroup():
		return store.ChatSupergroup
	case chat.IsGroup():
		return store.ChatGroup
	case chat.IsChannel():
		return store.ChatChannel
	default:
		return store.ChatPrivate
	}
}

func replyTargetUser(msg *tgbotapi.Message) (int64, bool) {
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		return msg.ReplyToMessage.From.ID, true
	}
	return 0, false
}

func (a *App) cmdStart(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if len(cmd.Args) > 0 {
		if challenge, err := botcontext.HandleDeepLink[moderation.CaptchaChallenge](ctx, a.cache, cmd); err == nil {
			return a.sendCaptchaChallenge(ctx, msg.Chat.ID, challenge)
		}
		if note, err := botcontext.HandleDeepLink[string](ctx, a.cache, cmd); err == nil {
			_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, note))
			return err
		}
	}
	text := "Hello! I keep this group tidy. Use /rules to see this chat's rules."
	_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, text))
	return err
}

// sendCaptchaChallenge presents challenge's choices as inline buttons
// in the DM a CaptchaText deep link opened, each wired to
// answerCaptchaChoice (spec.md §4.6.4 point 3b).
func (a *App) sendCaptchaChallenge(ctx context.Context, dmChatID int64, challenge moderation.CaptchaChallenge) error {
	var row []tgbotapi.InlineKeyboardButton
	for i, choice := range challenge.Choices {
		idx := i
		id := a.callbacks.InstallOnce(func(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
			return a.answerCaptchaChoice(ctx, challenge, idx, cb)
		}, 5*time.Minute)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(choice, id))
	}
	msg := tgbotapi.NewMessage(dmChatID, "Pick the correct choice to verify you're human:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	_, err := a.client.Send(ctx, msg)
	return err
}

// answerCaptchaChoice resolves one pressed choice against
// challenge.Correct: a wrong press decrements the (chat,user) try
// counter and kicks the user once it's exhausted, a correct press
// authorizes them (spec.md §4.6.4, §8 "three wrong buttons" property).
func (a *App) answerCaptchaChoice(ctx context.Context, challenge moderation.CaptchaChallenge, idx int, cb *tgbotapi.CallbackQuery) error {
	if cb.From.ID != challenge.UserID {
		return a.client.AnswerCallback(ctx, cb.ID, "This challenge isn't for you.")
	}
	if idx == challenge.Correct {
		return a.authorizeCaptcha(ctx, challenge.ChatID, challenge.UserID, cb.ID)
	}
	remaining, exhausted, err := a.captcha.RegisterWrongAnswer(ctx, challenge.ChatID, challenge.UserID)
	if err != nil {
		return err
	}
	if exhausted {
		if err := a.client.KickUser(ctx, challenge.ChatID, challenge.UserID); err != nil {
			slog.Warn("dispatch: captcha-exhaustion kick failed", "chat_id", challenge.ChatID, "user_id", challenge.UserID, "error", err)
		}
		if err := a.captcha.ResetTries(ctx, challenge.ChatID, challenge.UserID); err != nil {
			slog.Warn("dispatch: resetting captcha tries after kick failed", "chat_id", challenge.ChatID, "error", err)
		}
		return a.client.AnswerCallback(ctx, cb.ID, "Wrong too many times — you've been removed. Rejoin to try again.")
	}
	return a.client.AnswerCallback(ctx, cb.ID, fmt.Sprintf("Wrong, %d tries left.", remaining))
}

func (a *App) cmdRules(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	rules, err := a.store.GetRules(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if rules == nil || rules.Text == "" {
		_, err := a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "No rules have been set for this chat."))
		return err
	}
	fillCtx := markup.FillingContext{ChatName: msg.Chat.Title}
	if msg.From != nil {
		fillCtx.FirstName, fillCtx.Username, fillCtx.UserID = msg.From.FirstName, msg.From.UserName, msg.From.ID
	}
	rendered := markup.RenderMurkdown(rules.Text, fillCtx)
	out := tgbotapi.NewMessage(msg.Chat.ID, rendered.Text)
	out.Entities = rendered.Entities
	if rendered.Keyboard != nil {
		out.ReplyMarkup = *rendered.Keyboard
	}
	_, err = a.client.Send(ctx, out)
	return err
}

// cmdSetRules implements `/setrules <markdown...>`: stores authored
// murkdown source as the chat's Rules text (distinct from `/rules`,
// which only reads and renders it). Clears any stale EntityID the
// rules row carried from an earlier reply-captured body, since this
// command always writes fresh markdown source.
func (a *App) cmdSetRules(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if len(cmd.Args) == 0 {
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Usage: /setrules <text...>")
		_, err := a.client.Send(ctx, reply)
		return err
	}
	existing, err := a.store.GetRules(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	r := &store.Rules{ChatID: msg.Chat.ID, Text: strings.Join(cmd.Args, " "), Private: existing.Private, ButtonLabel: existing.ButtonLabel}
	if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := a.store.SetRules(ctx, tx, r); err != nil {
			return err
		}
		if existing.EntityID != nil {
			return a.store.DeleteEntityTree(ctx, tx, *existing.EntityID)
		}
		return nil
	}); err != nil {
		return err
	}
	_, err = a.client.Send(ctx, tgbotapi.NewMessage(msg.Chat.ID, "Rules updated."))
	return err
}

func (a *App) cmdWarn(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	userID, ok := replyTargetUser(msg)
	if !ok {
		return nil
	}
	reason := ""
	if len(cmd.Args) > 0 {
		reason = cmd.Args[0]
	}
	dialog, err := a.store.GetDialog(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}

	var result *moderation.WarnResult
	err = a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		w := &store.Warn{ChatID: msg.Chat.ID, UserID: userID, Reason: reason}
		result, err = moderation.RecordWarn(ctx, a.store, a.cache, tx, w, dialog)
		return err
	})
	if err != nil {
		return err
	}

	text := fmt.Sprintf("Warning recorded (%d/%d).", result.Count, dialog.WarnLimit)
	if result.Triggered {
		text = fmt.Sprintf("Warning limit reached: applying %s.", result.Action)
		if err := a.applyAction(ctx, msg.Chat.ID, userID, result.Action, result.Duration); err != nil {
			return err
		}
		if err := a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
			return moderation.ClearWarn(ctx, a.store, a.cache, tx, msg.Chat.ID, userID)
		}); err != nil {
			return err
		}
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	_, err = a.client.Send(ctx, reply)
	return err
}

func (a *App) cmdBan(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	userID, ok := replyTargetUser(msg)
	if !ok {
		return nil
	}
	return a.applyAction(ctx, msg.Chat.ID, userID, store.ActionBan, 0)
}

func (a *App) cmdUnban(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	userID, ok := replyTargetUser(msg)
	if !ok {
		return nil
	}
	if err := a.client.UnbanUser(ctx, msg.Chat.ID, userID); err != nil {
		return err
	}
	return a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return a.store.ClearAction(ctx, tx, msg.Chat.ID, userID)
	})
}

func (a *App) cmdMute(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	userID, ok := replyTargetUser(msg)
	if !ok {
		return nil
	}
	return a.applyAction(ctx, msg.Chat.ID, userID, store.ActionMute, 0)
}

func (a *App) cmdUnmute(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	userID, ok := replyTargetUser(msg)
	if !ok {
		return nil
	}
	if err := a.client.UnrestrictUser(ctx, msg.Chat.ID, userID); err != nil {
		return err
	}
	return a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return a.store.ClearAction(ctx, tx, msg.Chat.ID, userID)
	})
}

func (a *App) cmdApprove(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	userID, ok := replyTargetUser(msg)
	if !ok {
		return nil
	}
	return a.store.Approve(ctx, msg.Chat.ID, userID)
}

// cmdKickme lets any member remove themselves, no admin check required.
func (a *App) cmdKickme(ctx context.Context, msg *tgbotapi.Message, cmd *botcontext.Command) error {
	if msg.From == nil {
		return nil
	}
	return a.client.KickUser(ctx, msg.Chat.ID, msg.From.ID)
}

// applyAction carries out a resolved moderation decision against the
// platform and records it durably, the common tail every blocklist,
// lock, and warn-limit trigger converges on.
func (a *App) applyAction(ctx context.Context, chatID, userID int64, kind store.ActionKind, duration time.Duration) error {
	var until time.Time
	if duration > 0 {
		until = time.Now().Add(duration)
	}
	switch kind {
	case store.ActionBan:
		if err := a.client.BanUser(ctx, chatID, userID, until); err != nil {
			return err
		}
	case store.ActionMute:
		if err := a.client.RestrictUser(ctx, chatID, userID, until); err != nil {
			return err
		}
	case store.ActionWarn, store.ActionShame, store.ActionDelete:
		// no platform-level primitive beyond message deletion, handled by the caller
	}

	return a.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var expiry *time.Time
		if !until.IsZero() {
			expiry = &until
		}
		return a.store.RecordAction(ctx, tx, &store.Action{ChatID: chatID, UserID: userID, Kind: kind, Expiry: expiry})
	})
}

// enforceGroupRules runs the blocklist/filter/lock pipeline against a
// plain-text group message (spec.md §4.6), applying the first rule
// that matches.
func (a *App) enforceGroupRules(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	approved, err := a.store.IsApproved(ctx, msg.Chat.ID, msg.From.ID)
	if err != nil {
		slog.Warn("dispatch: checking approval failed", "chat_id", msg.Chat.ID, "error", err)
		return
	}
	if approved {
		return
	}

	admin, err := a.admins.Get(ctx, msg.Chat.ID, msg.From.ID)
	if err != nil {
		slog.Warn("dispatch: admin lookup failed", "chat_id", msg.Chat.ID, "error", err)
	}
	if admin != nil {
		return
	}

	lockMsg := moderation.LockMessage{
		Entities:    msg.Entities,
		IsPremium:   msg.From.IsPremium,
		HasPhoto:    len(msg.Photo) > 0,
		HasVideo:    msg.Video != nil,
		HasSticker:  msg.Sticker != nil,
		IsForwarded: msg.ForwardFrom != nil || msg.ForwardFromChat != nil,
		IsCommand:   false,
		IsAnonChan:  msg.SenderChat != nil,
		IsMember: func(userID int64) bool {
			m, err := a.admins.Get(ctx, msg.Chat.ID, userID)
			return err == nil && m != nil
		},
	}
	locks, err := a.store.ListLocks(ctx, msg.Chat.ID)
	if err == nil && len(locks) > 0 {
		def, derr := a.store.GetDefaultLock(ctx, msg.Chat.ID)
		if derr == nil {
			if kind, _, matched := moderation.EvaluateLocks(locks, *def, lockMsg); matched {
				a.enforceDeleteAndAction(ctx, msg, kind, def.Duration)
				return
			}
		}
	}

	if msg.Text == "" {
		return
	}

	blocklists, err := a.store.ListBlocklists(ctx, msg.Chat.ID)
	if err == nil && len(blocklists) > 0 {
		scriptMsg := moderation.ScriptMessage{Text: msg.Text, ChatID: msg.Chat.ID, UserID: msg.From.ID, Username: msg.From.UserName}
		if hit, ok := moderation.MatchBlocklists(blocklists, scriptMsg, a.scripts); ok {
			kind, _, del := moderation.ResolveAction(hit)
			if del {
				_ = a.client.DeleteMessage(ctx, msg.Chat.ID, msg.MessageID)
			}
			_ = a.applyAction(ctx, msg.Chat.ID, msg.From.ID, kind, hit.Blocklist.Duration)
			return
		}
	}

	filters, err := a.store.ListFilters(ctx, msg.Chat.ID)
	if err == nil && len(filters) > 0 {
		if f, ok := moderation.MatchFilters(msg.Text, filters); ok {
			fillCtx := markup.FillingContext{FirstName: msg.From.FirstName, Username: msg.From.UserName, UserID: msg.From.ID, ChatName: msg.Chat.Title}
			rendered, err := moderation.RenderFilter(ctx, a.store, f, fillCtx)
			if err != nil {
				slog.Warn("dispatch: rendering filter failed", "chat_id", msg.Chat.ID, "filter_id", f.ID, "error", err)
				return
			}
			out := tgbotapi.NewMessage(msg.Chat.ID, rendered.Text)
			out.Entities = rendered.Entities
			out.ReplyToMessageID = msg.MessageID
			if rendered.Keyboard != nil {
				out.ReplyMarkup = *rendered.Keyboard
			}
			_, _ = a.client.Send(ctx, out)
		}
	}
}

func (a *App) enforceDeleteAndAction(ctx context.Context, msg *tgbotapi.Message, kind store.ActionKind, duration time.Duration) {
	if err := a.client.DeleteMessage(ctx, msg.Chat.ID, msg.MessageID); err != nil {
		slog.Warn("dispatch: deleting locked message failed", "chat_id", msg.Chat.ID, "error", err)
	}
	if msg.From == nil {
		return
	}
	if err := a.applyAction(ctx, msg.Chat.ID, msg.From.ID, kind, duration); err != nil {
		slog.Warn("dispatch: applying lock action failed", "chat_id", msg.Chat.ID, "error", err)
	}
}
