// Package transport is the platform adapter: a thin wrapper over the
// Telegram Bot API client the rest of the core depends on only through
// the narrow interfaces it needs (permissions.AdminFetcher and the
// handful of send/moderate calls botcontext and moderation make).
// Grounded on the teacher's plugin/chat_apps/channels/telegram package,
// generalized from its webhook-relay role to the bot-API-caller role
// this core needs.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hrygo/modbot/internal/store"
)

// Client wraps *tgbotapi.BotAPI, the one concrete platform dependency
// the rest of the core is insulated from by this package's methods.
type Client struct {
	bot *tgbotapi.BotAPI
}

// New constructs a Client from a bot token.
func New(token string) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("transport: creating bot client: %w", err)
	}
	return &Client{bot: bot}, nil
}

// Username is the bot's own @handle, used for command-suffix matching
// and deep-link URL construction.
func (c *Client) Username() string { return c.bot.Self.UserName }

// ID is the bot's own platform user id, tagged onto an export envelope
// so an import can tell its own exports apart from a rival bot's
// (spec.md §4.6.7).
func (c *Client) ID() int64 { return c.bot.Self.ID }

// DownloadFile resolves fileID to its direct URL and fetches its
// bytes, the primitive the import command uses to read an attached
// export document.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("transport: resolving file %s: %w", fileID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(c.bot.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("transport: building file download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: downloading file %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transport: reading downloaded file %s: %w", fileID, err)
	}
	return data, nil
}

// Send posts a prepared tgbotapi.Chattable (MessageConfig,
// EditMessageTextConfig, etc.) and returns the resulting Message.
func (c *Client) Send(ctx context.Context, cfg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.bot.Send(cfg)
}

// AnswerCallback answers a pending callback query, optionally showing
// a toast.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	_, err := c.bot.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

// DeleteMessage removes a message by (chat,id).
func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

// RestrictUser mutes a user in chatID until untilDate (zero for
// indefinite), the primitive behind ActionMute and lock enforcement.
func (c *Client) RestrictUser(ctx context.Context, chatID, userID int64, untilDate time.Time) error {
	perms := tgbotapi.ChatPermissions{}
	cfg := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		UntilDate:        untilDate.Unix(),
		Permissions:      &perms,
	}
	_, err := c.bot.Request(cfg)
	return err
}

// UnrestrictUser restores a user's default send permissions.
func (c *Client) UnrestrictUser(ctx context.Context, chatID, userID int64) error {
	perms := tgbotapi.ChatPermissions{
		CanSendMessages: true, CanSendMediaMessages: true,
		CanSendOtherMessages: true, CanAddWebPagePreviews: true,
	}
	cfg := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		Permissions:      &perms,
	}
	_, err := c.bot.Request(cfg)
	return err
}

// BanUser removes and bans a user from chatID until untilDate (zero
// for permanent), backing ActionBan.
func (c *Client) BanUser(ctx context.Context, chatID, userID int64, untilDate time.Time) error {
	cfg := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		UntilDate:        untilDate.Unix(),
	}
	_, err := c.bot.Request(cfg)
	return err
}

// UnbanUser lifts a ban, leaving the user able to rejoin.
func (c *Client) UnbanUser(ctx context.Context, chatID, userID int64) error {
	cfg := tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		OnlyIfBanned:     true,
	}
	_, err := c.bot.Request(cfg)
	return err
}

// KickUser bans then immediately unbans, Telegram's standard "kick
// without permanently banning" idiom, used by the captcha FSM and
// lock enforcement's delete-implies-kick path.
func (c *Client) KickUser(ctx context.Context, chatID, userID int64) error {
	if err := c.BanUser(ctx, chatID, userID, time.Now().Add(35*time.Second)); err != nil {
		return err
	}
	return c.UnbanUser(ctx, chatID, userID)
}

// PromoteAdmin grants bits to userID in chatID.
func (c *Client) PromoteAdmin(ctx context.Context, chatID, userID int64, bits store.BotPermissionBits) error {
	cfg := tgbotapi.PromoteChatMemberConfig{
		ChatMemberConfig:   tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		CanChangeInfo:      bits.CanChangeInfo,
		CanDeleteMessages:  bits.CanDeleteMessages,
		CanRestrictMembers: bits.CanRestrictMembers,
		CanPinMessages:     bits.CanPinMessages,
		CanPromoteMembers:  bits.CanPromoteMembers,
	}
	_, err := c.bot.Request(cfg)
	return err
}

// DemoteAdmin strips every administrator bit from userID.
func (c *Client) DemoteAdmin(ctx context.Context, chatID, userID int64) error {
	return c.PromoteAdmin(ctx, chatID, userID, store.BotPermissionBits{})
}

// GetChatAdministrators satisfies permissions.AdminFetcher, the
// platform call AdminCache.refresh makes on a cache miss.
func (c *Client) GetChatAdministrators(ctx context.Context, chatID int64) ([]store.ChatMember, error) {
	admins, err := c.bot.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return nil, fmt.Errorf("transport: fetching chat administrators: %w", err)
	}
	out := make([]store.ChatMember, 0, len(admins))
	for _, a := range admins {
		out = append(out, store.ChatMember{
			ChatID: chatID,
			UserID: a.User.ID,
			Role:   roleFromStatus(a.Status),
			Permissions: store.BotPermissionBits{
				CanManageChat:      a.CanManageChat,
				CanRestrictMembers: a.CanRestrictMembers,
				CanDeleteMessages:  a.CanDeleteMessages,
				CanChangeInfo:      a.CanChangeInfo,
				CanPromoteMembers:  a.CanPromoteMembers,
				CanPinMessages:     a.CanPinMessages,
			},
		})
	}
	return out, nil
}

func roleFromStatus(status string) store.MemberRole {
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

// SetWebhook points the platform at webhookURL, used only when the
// process runs in webhook-ingress mode instead of long polling.
func (c *Client) SetWebhook(ctx context.Context, webhookURL string) error {
	u, err := url.Parse(webhookURL)
	if err != nil {
		return err
	}
	_, err = c.bot.Request(tgbotapi.WebhookConfig{URL: u, DropPendingUpdates: true})
	return err
}

// DeleteWebhook tears down webhook-ingress mode before switching to
// long polling (spec.md §6 CLI surface's `run` command does this
// unconditionally on startup, mirroring the teacher's own boot order).
func (c *Client) DeleteWebhook(ctx context.Context) error {
	_, err := c.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true})
	return err
}
