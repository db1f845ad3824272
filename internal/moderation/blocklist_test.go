package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/modbot/internal/store"
)

func TestMatchBlocklistsGlob(t *testing.T) {
	lists := []store.Blocklist{
		{ID: 1, Action: store.ActionMute, Triggers: []store.BlocklistTrigger{
			{Trigger: "*crypto*", Predicate: store.PredicateGlob},
		}},
	}
	hit, ok := MatchBlocklists(lists, ScriptMessage{Text: "buy crypto now"}, NewScriptEngine())
	require.True(t, ok)
	kind, _, del := ResolveAction(hit)
	require.Equal(t, store.ActionMute, kind)
	require.True(t, del)
}

func TestMatchBlocklistsGlobLiteralMidMessage(t *testing.T) {
	lists := []store.Blocklist{
		{ID: 4, Action: store.ActionWarn, Triggers: []store.BlocklistTrigger{
			{Trigger: "spam", Predicate: store.PredicateGlob},
		}},
	}
	hit, ok := MatchBlocklists(lists, ScriptMessage{Text: "this is spam"}, NewScriptEngine())
	require.True(t, ok)
	require.Equal(t, int64(4), hit.Blocklist.ID)
}

func TestMatchBlocklistsText(t *testing.T) {
	lists := []store.Blocklist{
		{ID: 2, Action: store.ActionBan, Triggers: []store.BlocklistTrigger{
			{Trigger: "BadWord", Predicate: store.PredicateText},
		}},
	}
	hit, ok := MatchBlocklists(lists, ScriptMessage{Text: "that's a badword indeed"}, NewScriptEngine())
	require.True(t, ok)
	require.Equal(t, int64(2), hit.Blocklist.ID)
}

func TestMatchBlocklistsScript(t *testing.T) {
	lists := []store.Blocklist{
		{ID: 3, Action: store.ActionDelete, Reason: "policy", Triggers: []store.BlocklistTrigger{
			{Trigger: `text.contains("kick me") ? "ban:rule violation" : "ignore"`, Predicate: store.PredicateScript},
		}},
	}
	hit, ok := MatchBlocklists(lists, ScriptMessage{Text: "please kick me"}, NewScriptEngine())
	require.True(t, ok)
	kind, reason, _ := ResolveAction(hit)
	require.Equal(t, store.ActionBan, kind)
	require.Equal(t, "rule violation", reason)

	_, ok = MatchBlocklists(lists, ScriptMessage{Text: "nothing to see"}, NewScriptEngine())
	require.False(t, ok)
}
