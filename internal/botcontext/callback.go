package botcontext

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hrygo/modbot/internal/boterror"
)

// CallbackHandler answers one inline button push.
type CallbackHandler func(ctx context.Context, cb *tgbotapi.CallbackQuery) error

// CallbackRegistry is an in-process, UUID-keyed table of pending
// button handlers: the anonymous-admin confirmation flow (spec.md
// §4.5.3) and DM note/rules buttons both install a closure here and
// reference it by callback data.
type CallbackRegistry struct {
	mu       sync.Mutex
	handlers map[string]registered
}

type registered struct {
	fn      CallbackHandler
	repeat  bool
	expires time.Time
}

// NewCallbackRegistry constructs an empty registry. A single instance
// is shared process-wide.
func NewCallbackRegistry() *CallbackRegistry {
	return &CallbackRegistry{handlers: make(map[string]registered)}
}

// InstallOnce registers fn to run at most once; it is removed from the
// table the first time Dispatch finds it, win or lose.
func (r *CallbackRegistry) InstallOnce(fn CallbackHandler, ttl time.Duration) string {
	return r.install(fn, false, ttl)
}

// InstallRepeat registers fn to run every time its callback data is
// seen until ttl elapses (used for buttons that can be pressed by more
// than one user, like the anonymous-admin confirmation prompt).
func (r *CallbackRegistry) InstallRepeat(fn CallbackHandler, ttl time.Duration) string {
	return r.install(fn, true, ttl)
}

func (r *CallbackRegistry) install(fn CallbackHandler, repeat bool, ttl time.Duration) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.handlers[id] = registered{fn: fn, repeat: repeat, expires: time.Now().Add(ttl)}
	r.mu.Unlock()
	return id
}

// Dispatch looks up id's handler and invokes it, pruning expired or
// one-shot-consumed entries. Returns boterror.NotFound if id is
// unknown or expired.
func (r *CallbackRegistry) Dispatch(ctx context.Context, id string, cb *tgbotapi.CallbackQuery) error {
	r.mu.Lock()
	reg, ok := r.handlers[id]
	if ok && (!reg.repeat || time.Now().After(reg.expires)) {
		delete(r.handlers, id)
	}
	r.mu.Unlock()

	if !ok || time.Now().After(reg.expires) {
		return boterror.NotFound("callback handler")
	}
	return reg.fn(ctx, cb)
}

// Sweep removes every expired entry; callers should run this
// periodically so a long-lived process doesn't accumulate stale
// one-shot handlers whose button was never pushed.
func (r *CallbackRegistry) Sweep() {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, reg := range r.handlers {
		if now.After(reg.expires) {
			delete(r.handlers, id)
		}
	}
}
