package permissions

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hrygo/modbot/internal/cachekv"
	"github.com/hrygo/modbot/internal/store"
)

const adminRefreshLockTTL = 10 * time.Minute

// refreshLockScript atomically claims the per-chat admin-refresh lock:
// SETNX with an expiry, returning 1 on success and 0 if another
// refresh is already in flight. Mirrors C1's captcha try-counter
// pattern of pushing rate-limiting into a single round trip.
var refreshLockScript = redis.NewScript(`
if redis.call("SET", KEYS[1], "1", "NX", "EX", ARGV[1]) then
	return 1
else
	return 0
end
`)

// AdminFetcher fetches the live administrator list for a chat, backed
// by the platform transport.
type AdminFetcher interface {
	GetChatAdministrators(ctx context.Context, chatID int64) ([]store.ChatMember, error)
}

// AdminCache is the hash-keyed per-chat admin-id → ChatMember cache
// named in spec.md §4.5.1.
type AdminCache struct {
	cache   *cachekv.Client
	fetcher AdminFetcher
}

func NewAdminCache(cache *cachekv.Client, fetcher AdminFetcher) *AdminCache {
	return &AdminCache{cache: cache, fetcher: fetcher}
}

func hashKey(chatID int64) string { return "admins:" + strconv.FormatInt(chatID, 10) }
func lockKey(chatID int64) string { return "admins:refresh_lock:" + strconv.FormatInt(chatID, 10) }

// Get resolves userID's ChatMember from the per-chat hash, refreshing
// the whole chat's admin list on a miss. Concurrent refreshers
// receive cachekv.ErrCacheWait rather than duplicating the fetch.
func (a *AdminCache) Get(ctx context.Context, chatID, userID int64) (*store.ChatMember, error) {
	members, err := cachekv.HGetAll[store.ChatMember](ctx, a.cache, hashKey(chatID))
	if err != nil {
		return nil, err
	}
	if m, ok := members[strconv.FormatInt(userID, 10)]; ok {
		return &m, nil
	}
	if err := a.refresh(ctx, chatID); err != nil {
		return nil, err
	}
	members, err = cachekv.HGetAll[store.ChatMember](ctx, a.cache, hashKey(chatID))
	if err != nil {
		return nil, err
	}
	if m, ok := members[strconv.FormatInt(userID, 10)]; ok {
		return &m, nil
	}
	return nil, nil
}

// refresh claims the per-chat lock and repopulates the hash from the
// live administrator list; a lock already held returns ErrCacheWait.
func (a *AdminCache) refresh(ctx context.Context, chatID int64) error {
	claimed, err := a.cache.EvalScript(ctx, refreshLockScript,
		[]string{lockKey(chatID)}, int(adminRefreshLockTTL.Seconds()))
	if err != nil {
		return err
	}
	if claimed == 0 {
		return cachekv.ErrCacheWait
	}
	admins, err := a.fetcher.GetChatAdministrators(ctx, chatID)
	if err != nil {
		return err
	}
	for _, m := range admins {
		if err := cachekv.HSet(ctx, a.cache, hashKey(chatID), strconv.FormatInt(m.UserID, 10), m, 0); err != nil {
			return err
		}
	}
	return nil
}

// UpdateInPlace applies a single MyChatMember/ChatMember update to the
// cache without a full refresh (spec.md §4.5.1).
func (a *AdminCache) UpdateInPlace(ctx context.Context, chatID int64, m store.ChatMember) error {
	if m.Role == store.RoleLeft || m.Role == store.RoleBanned {
		return a.cache.HDel(ctx, hashKey(chatID), strconv.FormatInt(m.UserID, 10))
	}
	return cachekv.HSet(ctx, a.cache, hashKey(chatID), strconv.FormatInt(m.UserID, 10), m, 0)
}
