package botcontext

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCommandBasic(t *testing.T) {
	cmd, ok := ParseCommand("/ban @user \"long reason here\" 1h")
	require.True(t, ok)
	require.Equal(t, "ban", cmd.Name)
	require.Equal(t, []string{"@user", "long reason here", "1h"}, cmd.Args)
}

func TestParseCommandBangAndBotSuffix(t *testing.T) {
	cmd, ok := ParseCommand("!mute@modbot 5m")
	require.True(t, ok)
	require.True(t, cmd.Bang)
	require.Equal(t, "modbot", cmd.Bot)
	require.Equal(t, []string{"5m"}, cmd.Args)
}

func TestParseCommandNoMatch(t *testing.T) {
	_, ok := ParseCommand("just a regular message")
	require.False(t, ok)
}
