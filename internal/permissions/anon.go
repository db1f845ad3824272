package permissions

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hrygo/modbot/internal/boterror"
	"github.com/hrygo/modbot/internal/botcontext"
	"github.com/hrygo/modbot/internal/store"
)

const anonConfirmWindow = 60 * time.Second

// Sender is the minimal view CheckFlow needs of an update's effective
// sender: either a resolved human user or an anonymous channel/admin.
type Sender struct {
	UserID      int64
	IsAnonymous bool
}

// Predicate picks the NamedPermission a check_permissions call is
// evaluating, e.g. func(p NamedBotPermissions) NamedPermission { return p.CanRestrictMembers }.
type Predicate func(NamedBotPermissions) NamedPermission

// Checker runs the §4.5.3 check flow: supergroup gate, anonymous-admin
// confirmation via an inline button, or a direct cache lookup.
type Checker struct {
	admins    *AdminCache
	elevated  Elevated
	callbacks *botcontext.CallbackRegistry
	post      func(ctx context.Context, chatID int64, msg tgbotapi.MessageConfig) error
	answer    func(ctx context.Context, callbackID, text string) error
}

func NewChecker(admins *AdminCache, elevated Elevated, callbacks *botcontext.CallbackRegistry,
	post func(ctx context.Context, chatID int64, msg tgbotapi.MessageConfig) error,
	answer func(ctx context.Context, callbackID, text string) error,
) *Checker {
	return &Checker{admins: admins, elevated: elevated, callbacks: callbacks, post: post, answer: answer}
}

// ErrNotSupergroup is returned when a permission check runs against a
// chat kind other than supergroup.
var ErrNotSupergroup = boterror.Generic("notsupergroup", nil)

// CheckPermissions resolves sender's permissions in chatID and applies
// pred, succeeding iff granted or Sudo/owner. When sender is
// anonymous, it posts a confirmation button and returns immediately;
// the eventual callback re-derives permissions for whoever pressed it
// and invokes onResult itself.
func (c *Checker) CheckPermissions(ctx context.Context, chatKind store.ChatKind, chatID int64, sender Sender, pred Predicate, onResult func(context.Context, bool) error) error {
	if chatKind != store.ChatSupergroup {
		return ErrNotSupergroup
	}

	if c.elevated.IsSudo(sender.UserID) {
		return onResult(ctx, true)
	}

	if sender.IsAnonymous {
		return c.promptAnonConfirmation(ctx, chatID, pred, onResult)
	}

	member, err := c.admins.Get(ctx, chatID, sender.UserID)
	if err != nil {
		return err
	}
	if member == nil {
		return onResult(ctx, false)
	}
	named := FromBits(member.Permissions, member.Role == store.RoleOwner)
	return onResult(ctx, pred(named).Granted)
}

func (c *Checker) promptAnonConfirmation(ctx context.Context, chatID int64, pred Predicate, onResult func(context.Context, bool) error) error {
	id := c.callbacks.InstallRepeat(func(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
		member, err := c.admins.Get(ctx, chatID, cb.From.ID)
		if err != nil {
			return err
		}
		if member == nil || !pred(FromBits(member.Permissions, member.Role == store.RoleOwner)).Granted {
			return c.answer(ctx, cb.ID, "You are not authorized to confirm this action.")
		}
		return onResult(ctx, true)
	}, anonConfirmWindow)

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Prove you are admin", id)),
	)
	msg := tgbotapi.NewMessage(chatID, "This action requires admin confirmation.")
	msg.ReplyMarkup = kb
	return c.post(ctx, chatID, msg)
}
