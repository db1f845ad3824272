package markup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderMurkdownBasicSpan(t *testing.T) {
	r := RenderMurkdown("[*bold] text", FillingContext{})
	require.Equal(t, "bold text", r.Text)
	require.Len(t, r.Entities, 1)
	require.Equal(t, "bold", r.Entities[0].Type)
	require.Equal(t, 0, r.Entities[0].Offset)
	require.Equal(t, 4, r.Entities[0].Length)
}

func TestRenderMurkdownScaffoldNoOp(t *testing.T) {
	r := RenderMurkdown("[!future directive]", FillingContext{})
	require.Equal(t, "[!future directive]", r.Text)
	require.Empty(t, r.Entities)
}

func TestRenderMurkdownButtonURL(t *testing.T) {
	r := RenderMurkdown("[Visit](buttonurl://https://example.com)", FillingContext{})
	require.NotNil(t, r.Keyboard)
	require.Len(t, r.Keyboard.InlineKeyboard, 1)
	require.Equal(t, "Visit", r.Keyboard.InlineKeyboard[0][0].Text)
}

func TestRenderMurkdownSameRowButtons(t *testing.T) {
	r := RenderMurkdown("[A](buttonurl://https://a)[B](buttonurl://https://b:same)", FillingContext{})
	require.Len(t, r.Keyboard.InlineKeyboard, 1)
	require.Len(t, r.Keyboard.InlineKeyboard[0], 2)
}

func TestFillingsSubstitution(t *testing.T) {
	r := RenderMurkdown("hello {first}!", FillingContext{FirstName: "Ada"})
	require.Equal(t, "hello Ada!", r.Text)
}

func TestParseRivalMarkdownBoundaryRules(t *testing.T) {
	doc := ParseRivalMarkdown("a *cat* b")
	require.Len(t, doc.Spans, 1)
	require.Equal(t, SpanBold, doc.Spans[0].Kind)

	doc = ParseRivalMarkdown("con*cat*enate")
	require.Empty(t, doc.Spans)
}

func TestParseRivalMarkdownEscaping(t *testing.T) {
	doc := ParseRivalMarkdown(`\*not bold\*`)
	require.Equal(t, "*not bold*", doc.Text)
	require.Empty(t, doc.Spans)
}

func TestDecompileRoundTrip(t *testing.T) {
	r := RenderMurkdown("[*bold]", FillingContext{})
	out := Decompile(r.Text, r.Entities, r.Keyboard)
	require.Equal(t, "*bold*", out)
}
