package moderation

import (
	"strings"

	"github.com/hrygo/modbot/internal/store"
)

// BlocklistHit is one fired blocklist trigger, carrying the resolved
// action to apply. ScriptAction is nil unless the firing trigger was
// Script-predicated.
type BlocklistHit struct {
	Blocklist    *store.Blocklist
	ScriptAction *ModAction
}

// MatchBlocklists evaluates every configured blocklist's triggers
// against an incoming message, returning the first one that fires.
// Glob and Text triggers always fire their configured action-kind;
// Script triggers run their program and fire unless it resolves to
// Ignore.
func MatchBlocklists(lists []store.Blocklist, msg ScriptMessage, scripts *ScriptEngine) (*BlocklistHit, bool) {
	for i := range lists {
		bl := &lists[i]
		for _, t := range bl.Triggers {
			switch t.Predicate {
			case store.PredicateGlob:
				if MatchGlob(t.Trigger, msg.Text) {
					return &BlocklistHit{Blocklist: bl}, true
				}
			case store.PredicateText:
				if strings.Contains(strings.ToLower(msg.Text), strings.ToLower(t.Trigger)) {
					return &BlocklistHit{Blocklist: bl}, true
				}
			case store.PredicateScript:
				action, err := scripts.Eval(t.Trigger, msg)
				if err != nil {
					action = ModAction{Kind: ModDelete, Diagnostic: err.Error()}
				}
				if action.Kind != ModIgnore {
					return &BlocklistHit{Blocklist: bl, ScriptAction: &action}, true
				}
			}
		}
	}
	return nil, false
}

// ResolveAction translates a BlocklistHit into the concrete
// action-kind, reason and whether to delete the triggering message.
// Delete is implicit after any non-Ignore action (spec.md §4.6.2).
func ResolveAction(hit *BlocklistHit) (kind store.ActionKind, reason string, deleteMsg bool) {
	bl := hit.Blocklist
	if hit.ScriptAction == nil {
		return bl.Action, bl.Reason, true
	}
	action := *hit.ScriptAction
	switch action.Kind {
	case ModWarn:
		return store.ActionWarn, firstNonEmpty(action.Reason, bl.Reason), true
	case ModBan:
		return store.ActionBan, firstNonEmpty(action.Reason, bl.Reason), true
	case ModMute:
		return store.ActionMute, firstNonEmpty(action.Reason, bl.Reason), true
	case ModReply, ModDelete:
		return store.ActionDelete, bl.Reason, true
	default:
		return store.ActionDelete, bl.Reason, true
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
