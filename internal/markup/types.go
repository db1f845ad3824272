// Package markup renders the bot's two input dialects — native
// "murkdown" and an interop reader for a rival bot's markdown — into
// the common (text, entities, keyboard) triple the platform expects.
package markup

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// SpanKind enumerates the span types both dialects can produce.
type SpanKind int

const (
	SpanBold SpanKind = iota
	SpanItalic
	SpanUnderline
	SpanStrike
	SpanSpoiler
	SpanCode
	SpanPre
	SpanTextLink
	SpanTextMention
)

// Span is one parsed rich-text range, offsets in runes; render converts
// them to UTF-16 code units in the MessageEntity values it emits and
// leaves the Span itself unchanged. Nested spans on the same underlying text merge
// into the caller's MessageEntity list, not into this tree.
type Span struct {
	Kind   SpanKind
	Offset int
	Length int
	URL    string
	UserID int64
}

// ButtonSpec is one parsed button, independent of its eventual keyboard
// row/column placement.
type ButtonSpec struct {
	Label string
	URL   string
	// NoteName is set for `[label](#name)` buttons; BuildKeyboard always
	// turns it into NoteCallbackPrefix callback data, in every chat kind.
	NoteName string
	SameRow  bool
}

// ActionSpec is the optional trailing `{action}` specifier on filter
// and blocklist bodies: an action kind plus an optional duration.
type ActionSpec struct {
	Kind     string
	Duration string
}

// Document is the parsed, not-yet-rendered form of a murkdown or
// rival-dialect body: plain text plus the spans and buttons found in
// it, before form-fillings are substituted.
type Document struct {
	Text    string
	Spans   []Span
	Buttons []ButtonSpec
	Header  []string
	Action  *ActionSpec
}

// Rendered is the common triple every dialect converges to.
type Rendered struct {
	Text     string
	Entities []tgbotapi.MessageEntity
	Keyboard *tgbotapi.InlineKeyboardMarkup
}

func (k SpanKind) tgType() string {
	switch k {
	case SpanBold:
		return "bold"
	case SpanItalic:
		return "italic"
	case SpanUnderline:
		return "underline"
	case SpanStrike:
		return "strikethrough"
	case SpanSpoiler:
		return "spoiler"
	case SpanCode:
		return "code"
	case SpanPre:
		return "pre"
	case SpanTextLink:
		return "text_link"
	case SpanTextMention:
		return "text_mention"
	default:
		return "bold"
	}
}
