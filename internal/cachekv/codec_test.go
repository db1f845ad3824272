package cachekv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type codecFixture struct {
	Name  string
	Count int
	Tags  []string
}

func TestCodecRoundTrip(t *testing.T) {
	c := Codec{}
	in := codecFixture{Name: "spam", Count: 3, Tags: []string{"a", "b"}}

	data, err := c.Marshal(in)
	require.NoError(t, err)
	require.Greater(t, len(data), 4)

	var out codecFixture
	require.NoError(t, c.Unmarshal(data, &out))
	require.Equal(t, in, out)
}

func TestCodecRejectsShortFrame(t *testing.T) {
	c := Codec{}
	err := c.Unmarshal([]byte{0, 1}, &codecFixture{})
	require.Error(t, err)
}

func TestCodecRejectsLengthMismatch(t *testing.T) {
	c := Codec{}
	data, err := c.Marshal(codecFixture{Name: "x"})
	require.NoError(t, err)
	data = append(data, 0xFF) // corrupt the length prefix vs body size
	require.Error(t, c.Unmarshal(data, &codecFixture{}))
}
