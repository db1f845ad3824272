package botcontext

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hrygo/modbot/internal/boterror"
	"github.com/hrygo/modbot/internal/cachekv"
)

// PostDeepLink serializes value under a random UUID cache key (TTL
// ttl) and returns a t.me deep link that hands the key to a /start
// command, the mechanism by which group-context notes, rules,
// federations, and captchas hand users into DM (spec.md §4.4.3).
func PostDeepLink[T any](ctx context.Context, c *cachekv.Client, botUsername string, value T, ttl time.Duration) (string, error) {
	key := uuid.NewString()
	if err := cachekv.Set(ctx, c, deepLinkCacheKey(key), value, ttl); err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString([]byte(key))
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, encoded), nil
}

// HandleDeepLink consumes the first argument of a /start command,
// decodes the UUID, and retrieves the value PostDeepLink stored.
func HandleDeepLink[T any](ctx context.Context, c *cachekv.Client, cmd *Command) (T, error) {
	var zero T
	if cmd == nil || cmd.Name != "start" || len(cmd.Args) == 0 {
		return zero, boterror.NotFound("deep link argument")
	}
	raw, err := base64.RawURLEncoding.DecodeString(cmd.Args[0])
	if err != nil {
		return zero, boterror.Generic("malformed deep link", err)
	}
	var out T
	if err := cachekv.Get(ctx, c, deepLinkCacheKey(string(raw)), &out); err != nil {
		return zero, err
	}
	return out, nil
}

func deepLinkCacheKey(key string) string { return "deeplink:" + key }
