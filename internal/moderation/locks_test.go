package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hrygo/modbot/internal/store"
)

func TestEvaluateLocksPrecedence(t *testing.T) {
	banAction := store.ActionBan
	locks := []store.Lock{
		{Kind: store.LockLink, Action: nil},
		{Kind: store.LockPhoto, Action: &banAction},
	}
	def := store.DefaultLock{Action: store.ActionMute}

	msg := LockMessage{
		Entities: []tgbotapi.MessageEntity{{Type: "url"}},
		HasPhoto: true,
	}
	kind, _, matched := EvaluateLocks(locks, def, msg)
	require.True(t, matched)
	require.Equal(t, store.ActionBan, kind, "photo lock's explicit Ban outranks the link lock's default Mute")
}

func TestEvaluateLocksNoMatch(t *testing.T) {
	locks := []store.Lock{{Kind: store.LockSticker}}
	def := store.DefaultLock{Action: store.ActionMute}
	_, _, matched := EvaluateLocks(locks, def, LockMessage{})
	require.False(t, matched)
}
