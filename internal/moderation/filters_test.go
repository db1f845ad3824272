package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/modbot/internal/store"
)

func TestMatchFiltersWholeWord(t *testing.T) {
	filters := []store.Filter{
		{ID: 1, Text: "no spam here", Triggers: []string{"spam"}},
	}

	f, ok := MatchFilters("please stop the SPAM now", filters)
	require.True(t, ok)
	require.Equal(t, int64(1), f.ID)

	_, ok = MatchFilters("this is spamalot", filters)
	require.False(t, ok, "spam inside spamalot is not a whole-word match")

	_, ok = MatchFilters("nothing to see", filters)
	require.False(t, ok)
}
