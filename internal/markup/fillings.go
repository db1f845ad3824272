package markup

import (
	"fmt"
	"strings"
)

// FillingContext supplies the values `{name}` tokens substitute against
// at render time (spec.md §4.3.1). RulesURL is a deep link into the
// bot produced by the caller via internal/botcontext's deep-link
// plumbing; {rules} expands to a one-button keyboard pointing at it.
type FillingContext struct {
	FirstName string
	LastName  string
	Username  string
	UserID    int64
	ChatName  string
	RulesURL  string
}

var fillingNames = map[string]func(FillingContext) string{
	"first": func(c FillingContext) string { return c.FirstName },
	"last":  func(c FillingContext) string { return c.LastName },
	"username": func(c FillingContext) string {
		if c.Username == "" {
			return c.FirstName
		}
		return "@" + c.Username
	},
	"mention": func(c FillingContext) string {
		name := c.FirstName
		if name == "" {
			name = "user"
		}
		return name
	},
	"chatname": func(c FillingContext) string { return c.ChatName },
	"id":       func(c FillingContext) string { return fmt.Sprintf("%d", c.UserID) },
}

type fillingEdit struct {
	start, end int // rune offsets in the original text
	name       string
	replace    []rune
}

// applyFillings substitutes every `{name}` token in doc.Text, shifting
// span and button offsets to match, and attaches the {rules} button
// when present.
func applyFillings(doc Document, ctx FillingContext) Document {
	runes := []rune(doc.Text)
	edits := scanFillings(runes)
	if len(edits) == 0 {
		return doc
	}

	// Spans appended below (mentions) are already in output coordinates;
	// only the first orig spans are shifted afterwards.
	orig := len(doc.Spans)
	var out []rune
	cursor := 0
	// shift[i] holds the cumulative delta to add to any original offset
	// >= edits[i].end.
	shift := make([]int, len(edits))
	delta := 0
	for i, e := range edits {
		out = append(out, runes[cursor:e.start]...)
		var repl []rune
		switch e.name {
		case "rules":
			repl = nil // consumed by text, not inserted; button attached separately
			doc.Buttons = append(doc.Buttons, ButtonSpec{Label: "Rules", URL: ctx.RulesURL})
		case "mention":
			mentionStart := len(out)
			repl = []rune(fillingNames["mention"](ctx))
			out = append(out, repl...)
			doc.Spans = append(doc.Spans, Span{Kind: SpanTextMention, Offset: mentionStart, Length: len(repl), UserID: ctx.UserID})
			cursor = e.end
			delta += len(repl) - (e.end - e.start)
			shift[i] = delta
			continue
		default:
			if fn, ok := fillingNames[e.name]; ok {
				repl = []rune(fn(ctx))
			} else {
				repl = []rune("{" + e.name + "}")
			}
		}
		out = append(out, repl...)
		cursor = e.end
		delta += len(repl) - (e.end - e.start)
		shift[i] = delta
	}
	out = append(out, runes[cursor:]...)
	doc.Text = string(out)

	shiftOffset := func(off int) int {
		d := 0
		for i, e := range edits {
			if e.end <= off {
				d = shift[i]
			}
		}
		return off + d
	}
	for i := range doc.Spans[:orig] {
		doc.Spans[i].Offset = shiftOffset(doc.Spans[i].Offset)
	}
	return doc
}

// scanFillings finds every `{word}` token in runes, word being
// alphanumeric-or-underscore only (no nested braces).
func scanFillings(runes []rune) []fillingEdit {
	var edits []fillingEdit
	for i := 0; i < len(runes); i++ {
		if runes[i] != '{' {
			continue
		}
		j := i + 1
		var name strings.Builder
		ok := true
		for j < len(runes) && runes[j] != '}' {
			if !isWordRune(runes[j]) {
				ok = false
				break
			}
			name.WriteRune(runes[j])
			j++
		}
		if ok && j < len(runes) && runes[j] == '}' {
			edits = append(edits, fillingEdit{start: i, end: j + 1, name: name.String()})
			i = j
		}
	}
	return edits
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
