package moderation

import (
	"context"
	"database/sql"
	"time"

	"github.com/hrygo/modbot/internal/store"
)

// taintWindow is the 45-minute re-upload patch window spec.md §4.6.7
// grants an admin to forward the correct media in DM.
const taintWindow = 45 * time.Minute

// PatchFunc updates the module row that owns mediaID once the correct
// media arrives, replacing the unresolved reference with newFileID.
type PatchFunc func(ctx context.Context, tx *sql.Tx, chatID int64, mediaID, newFileID string) error

// TaintTracker records unresolved imported media and applies the DM
// patch a chat admin sends within the window, dispatching by scope to
// whichever module registered a PatchFunc for it.
type TaintTracker struct {
	store   *store.Store
	patches map[string]PatchFunc
}

func NewTaintTracker(s *store.Store) *TaintTracker {
	return &TaintTracker{store: s, patches: map[string]PatchFunc{}}
}

// Register associates scope (e.g. "filter", "note", "welcome",
// "rules", "sticker") with the patch logic for that module.
func (t *TaintTracker) Register(scope string, fn PatchFunc) {
	t.patches[scope] = fn
}

// Mark records an import-time unresolved media reference.
func (t *TaintTracker) Mark(ctx context.Context, tx *sql.Tx, chatID int64, scope, mediaID string, kind store.MediaKind, notes string) error {
	return t.store.RecordTaint(ctx, tx, &store.Taint{
		ChatID: chatID, Scope: scope, MediaID: mediaID,
		MediaKind: kind, Notes: notes, CreatedAt: time.Now(),
	})
}

// Patch runs the PatchFunc registered for scope, applying newFileID to
// mediaID in chatID, then clears that scope's taint row. Returns 1 when
// the scope was patched and 0 when no PatchFunc is registered for it.
func (t *TaintTracker) Patch(ctx context.Context, tx *sql.Tx, chatID int64, scope, mediaID, newFileID string) (int, error) {
	fn, ok := t.patches[scope]
	if !ok {
		return 0, nil
	}
	if err := fn(ctx, tx, chatID, mediaID, newFileID); err != nil {
		return 0, err
	}
	if err := t.store.ResolveTaint(ctx, tx, chatID, scope, mediaID); err != nil {
		return 0, err
	}
	return 1, nil
}

// Sweep returns every taint row past the 45-minute window, for a
// caller to report and delete; it does not delete them itself, since
// the module it belongs to may still want to react to the expiry.
func (t *TaintTracker) Sweep(ctx context.Context) ([]store.Taint, error) {
	return t.store.ListStaleTaint(ctx, time.Now().Add(-taintWindow))
}
