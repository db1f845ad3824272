package transport

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Handler processes one inbound update. Run spawns it in its own
// goroutine per update, mirroring the "each update processed in its
// own task" scheduling model spec.md §5 describes.
type Handler func(ctx context.Context, upd tgbotapi.Update)

// Run long-polls for updates and dispatches each to handle
// concurrently, returning when ctx is cancelled. This is the default
// ingress mode; webhook ingress (Client.SetWebhook plus an HTTP
// handler decoding the body into a tgbotapi.Update) is left to the
// deployment's own reverse proxy and is not wired into cmd/modbot's
// `run` command, which only long-polls.
func (c *Client) Run(ctx context.Context, handle Handler) error {
	if err := c.DeleteWebhook(ctx); err != nil {
		slog.Warn("transport: failed to clear webhook before polling", "error", err)
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := c.bot.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			go handle(ctx, upd)
		}
	}
}
