package moderation

import (
	"context"
	"strconv"

	"github.com/hrygo/modbot/internal/cachekv"
	"github.com/hrygo/modbot/internal/store"
)

// fbanEmptySentinel is the hash field spec.md §4.6.5 calls for so a
// cached empty fban set is distinguishable from "not cached at all".
const fbanEmptySentinel = "__empty__"

// FederationGuard is the cache-through layer over the durable
// federation store: a hash per federation maps user → fban-id, with
// fbanEmptySentinel marking a federation known to have no bans.
type FederationGuard struct {
	cache *cachekv.Client
	store *store.Store
}

func NewFederationGuard(cache *cachekv.Client, s *store.Store) *FederationGuard {
	return &FederationGuard{cache: cache, store: s}
}

func fbanHashKey(fedID string) string { return "fban:" + fedID }

// IsFbanned reports whether userID is banned in fedID's effective
// fban set, filling the cache from EffectiveFbans on a miss.
func (g *FederationGuard) IsFbanned(ctx context.Context, fedID string, userID int64) (bool, error) {
	key := fbanHashKey(fedID)
	field := strconv.FormatInt(userID, 10)

	var fid string
	err := cachekv.HGet[string](ctx, g.cache, key, field, &fid)
	if err == nil {
		return true, nil
	}
	if err != cachekv.ErrCacheMiss {
		return false, err
	}

	var sentinel string
	if err := cachekv.HGet[string](ctx, g.cache, key, fbanEmptySentinel, &sentinel); err == nil {
		return false, nil
	} else if err != cachekv.ErrCacheMiss {
		return false, err
	}

	return g.refill(ctx, fedID, userID)
}

func (g *FederationGuard) refill(ctx context.Context, fedID string, userID int64) (bool, error) {
	fbans, err := g.store.EffectiveFbans(ctx, fedID)
	if err != nil {
		return false, err
	}
	key := fbanHashKey(fedID)
	if len(fbans) == 0 {
		if err := cachekv.HSet(ctx, g.cache, key, fbanEmptySentinel, "1", 0); err != nil {
			return false, err
		}
		return false, nil
	}
	hit := false
	for _, b := range fbans {
		if err := cachekv.HSet(ctx, g.cache, key, strconv.FormatInt(b.UserID, 10), b.FedID, 0); err != nil {
			return false, err
		}
		if b.UserID == userID {
			hit = true
		}
	}
	return hit, nil
}

// Invalidate drops fedID's cached fban hash; /subfed calls it for the
// subscribing federation after a successful Subscribe.
func (g *FederationGuard) Invalidate(ctx context.Context, fedID string) error {
	return g.cache.Del(ctx, fbanHashKey(fedID))
}
