package botcontext

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hrygo/modbot/internal/boterror"
	"github.com/hrygo/modbot/internal/store"
)

// Context is the shared-ownership carrier an inbound Update is wrapped
// in. It is cheap to pass by value; the Update itself is held by
// pointer so handlers share one parsed copy.
type Context struct {
	Update  *tgbotapi.Update
	Command *Command
}

// New wraps upd, parsing its command prefix if present.
func New(upd *tgbotapi.Update) *Context {
	c := &Context{Update: upd}
	if text := messageText(upd); text != "" {
		if cmd, ok := ParseCommand(text); ok {
			c.Command = cmd
		}
	}
	return c
}

func messageText(upd *tgbotapi.Update) string {
	if upd.Message != nil {
		return upd.Message.Text
	}
	return ""
}

// View is the borrowed, read-only snapshot derived from a Context at
// access time: the parsed command, the chat, the effective language,
// and the raw update.
type View struct {
	Command  *Command
	Chat     *tgbotapi.Chat
	Language string
	Update   *tgbotapi.Update
}

// Resolve builds a View, reading the chat's Dialog for its language
// (defaulting to English when the chat has none on record).
func Resolve(ctx *Context, dialogs interface {
	GetDialog(chatID int64) (*store.Dialog, error)
}) (*View, error) {
	v := &View{Command: ctx.Command, Update: ctx.Update, Language: "en"}
	chat := chatOf(ctx.Update)
	v.Chat = chat
	if chat == nil {
		return v, nil
	}
	d, err := dialogs.GetDialog(chat.ID)
	if err != nil {
		return nil, err
	}
	if d.Language != "" {
		v.Language = d.Language
	}
	return v, nil
}

func chatOf(upd *tgbotapi.Update) *tgbotapi.Chat {
	switch {
	case upd.Message != nil:
		return upd.Message.Chat
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		return upd.CallbackQuery.Message.Chat
	case upd.MyChatMember != nil:
		return &upd.MyChatMember.Chat
	case upd.ChatMember != nil:
		return &upd.ChatMember.Chat
	default:
		return nil
	}
}

// Sender resolves the effective user behind an update. requireHuman
// rejects anonymous-channel senders (Message.SenderChat set, no
// Message.From) for callers whose contract demands a real user.
func Sender(upd *tgbotapi.Update, requireHuman bool) (*tgbotapi.User, error) {
	var from *tgbotapi.User
	var senderChat *tgbotapi.Chat
	switch {
	case upd.Message != nil:
		from = upd.Message.From
		senderChat = upd.Message.SenderChat
	case upd.CallbackQuery != nil:
		from = upd.CallbackQuery.From
	}
	if from == nil && senderChat != nil {
		if requireHuman {
			return nil, boterror.PermissionDenied(senderChat.ID, "human sender")
		}
		return nil, nil
	}
	if from == nil {
		return nil, boterror.NotFound("sender")
	}
	return from, nil
}
