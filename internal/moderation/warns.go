package moderation

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/hrygo/modbot/internal/cachekv"
	"github.com/hrygo/modbot/internal/store"
)

// warnListTTL bounds how long a chat's warn-list cache outlives its
// last write; ClearWarns always follows a trigger so this mainly
// guards against a cache entry outliving a row deleted out of band.
const warnListTTL = 24 * time.Hour

func warnListKey(chatID, userID int64) string {
	return "warns:" + strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(userID, 10)
}

// WarnResult reports the count after a warn was recorded and, if the
// chat's warn-limit was reached, the default action to apply.
type WarnResult struct {
	Count     int
	Triggered bool
	Action    store.ActionKind
	Duration  time.Duration
}

// RecordWarn appends w, pushes it onto the (chat,user) list cache, and
// reports whether the chat's warn-limit was just reached (spec.md
// §4.6.6). The caller is responsible for applying Action and then
// calling ClearWarn.
func RecordWarn(ctx context.Context, s *store.Store, cache *cachekv.Client, tx *sql.Tx, w *store.Warn, dialog *store.Dialog) (*WarnResult, error) {
	if _, err := s.AddWarn(ctx, tx, w); err != nil {
		return nil, err
	}
	if err := cachekv.ListPush(ctx, cache, warnListKey(w.ChatID, w.UserID), w.Reason, warnListTTL); err != nil {
		return nil, err
	}
	count, err := s.CountWarns(ctx, w.ChatID, w.UserID)
	if err != nil {
		return nil, err
	}
	res := &WarnResult{Count: count}
	if dialog.WarnLimit > 0 && count >= dialog.WarnLimit {
		res.Triggered = true
		res.Action = dialog.DefaultAction
		res.Duration = dialog.WarnDuration
	}
	return res, nil
}

// ClearWarn clears a (chat,user) warn list, durable and cached, after
// its default action has been applied.
func ClearWarn(ctx context.Context, s *store.Store, cache *cachekv.Client, tx *sql.Tx, chatID, userID int64) error {
	if err := s.ClearWarns(ctx, tx, chatID, userID); err != nil {
		return err
	}
	return cache.Del(ctx, warnListKey(chatID, userID))
}
