package main

import (
	"context"
	"database/sql"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hrygo/modbot/internal/botcontext"
	"github.com/hrygo/modbot/internal/cachekv"
	"github.com/hrygo/modbot/internal/config"
	"github.com/hrygo/modbot/internal/moderation"
	"github.com/hrygo/modbot/internal/permissions"
	"github.com/hrygo/modbot/internal/store"
	"github.com/hrygo/modbot/internal/store/postgres"
	"github.com/hrygo/modbot/internal/store/sqlite"
	"github.com/hrygo/modbot/internal/transport"
)

// App is every long-lived dependency the update handler reads from,
// assembled once at startup and passed down by pointer. It plays the
// role the teacher's server.Server plays for its HTTP handlers.
type App struct {
	cfg *config.Config

	store  *store.Store
	cache  *cachekv.Client
	client *transport.Client

	callbacks *botcontext.CallbackRegistry
	admins    *permissions.AdminCache
	elevated  permissions.Elevated
	checker   *permissions.Checker

	scripts  *moderation.ScriptEngine
	captcha  *moderation.CaptchaFlow
	fedGuard *moderation.FederationGuard
	taint    *moderation.TaintTracker
}

// openStore dispatches to the configured durable-store driver, mirroring
// the teacher's store/db.NewDBDriver dispatch.
func openStore(cfg *config.Config) (*store.Store, error) {
	var (
		db      *sql.DB
		dialect store.Dialect
		err     error
	)
	switch cfg.Store.Driver {
	case "postgres":
		db, dialect, err = postgres.Open(cfg.Store.DSN)
	case "sqlite", "":
		db, dialect, err = sqlite.Open(cfg.Store.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return store.New(db, dialect), nil
}

// newApp wires every component together. It opens the durable store and
// the cache substrate but does not migrate or start polling; callers
// decide that (the `run` and `migrate` subcommands diverge right after
// this point).
func newApp(cfg *config.Config) (*App, error) {
	s, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	cache := cachekv.New(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB)

	client, err := transport.New(cfg.Bot.Token)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating bot client: %w", err)
	}

	callbacks := botcontext.NewCallbackRegistry()
	admins := permissions.NewAdminCache(cache, client)
	elevated := permissions.NewElevated(cfg.Elevated.Sudo, cfg.Elevated.Support)
	checker := permissions.NewChecker(admins, elevated, callbacks,
		func(ctx context.Context, chatID int64, msg tgbotapi.MessageConfig) error {
			_, err := client.Send(ctx, msg)
			return err
		},
		client.AnswerCallback,
	)

	taint := moderation.NewTaintTracker(s)
	taint.Register("filter", func(ctx context.Context, tx *sql.Tx, chatID int64, mediaID, newFileID string) error {
		return s.PatchFilterMedia(ctx, tx, chatID, mediaID, newFileID)
	})
	taint.Register("note", func(ctx context.Context, tx *sql.Tx, chatID int64, mediaID, newFileID string) error {
		return s.PatchNoteMedia(ctx, tx, chatID, mediaID, newFileID)
	})

	return &App{
		cfg:       cfg,
		store:     s,
		cache:     cache,
		client:    client,
		callbacks: callbacks,
		admins:    admins,
		elevated:  elevated,
		checker:   checker,
		scripts:   moderation.NewScriptEngine(),
		captcha:   moderation.NewCaptchaFlow(cache),
		fedGuard:  moderation.NewFederationGuard(cache, s),
		taint:     taint,
	}, nil
}

func (a *App) Close() {
	a.cache.Close()
	a.store.Close()
}
