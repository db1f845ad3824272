package markup

import (
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// RenderMurkdown parses src as native murkdown, substitutes form
// fillings against ctx, and produces the platform-ready triple.
func RenderMurkdown(src string, ctx FillingContext) Rendered {
	doc := parseMurkdown(src)
	doc = applyFillings(doc, ctx)
	return render(doc)
}

func render(doc Document) Rendered {
	runes := []rune(doc.Text)
	offsets := utf16OffsetTable(runes)

	entities := make([]tgbotapi.MessageEntity, 0, len(doc.Spans))
	for _, sp := range doc.Spans {
		e := tgbotapi.MessageEntity{
			Type:   sp.Kind.tgType(),
			Offset: offsets[clampOffset(sp.Offset, len(offsets)-1)],
			Length: offsets[clampOffset(sp.Offset+sp.Length, len(offsets)-1)] - offsets[clampOffset(sp.Offset, len(offsets)-1)],
		}
		if sp.Kind == SpanTextLink {
			e.URL = sp.URL
		}
		if sp.Kind == SpanTextMention {
			e.User = &tgbotapi.User{ID: sp.UserID}
		}
		entities = append(entities, e)
	}

	var kb *tgbotapi.InlineKeyboardMarkup
	if len(doc.Buttons) > 0 {
		built := BuildKeyboard(doc.Buttons)
		kb = &built
	}

	return Rendered{Text: doc.Text, Entities: entities, Keyboard: kb}
}

// utf16OffsetTable returns, for each rune index 0..len(runes), the
// UTF-16 code-unit offset of that rune boundary (table[len(runes)] is
// the total code-unit length). Telegram's wire format addresses
// entities in UTF-16 code units, so astral-plane runes (emoji,
// surrogate-pair characters) must count as 2.
func utf16OffsetTable(runes []rune) []int {
	table := make([]int, len(runes)+1)
	units := 0
	for i, r := range runes {
		table[i] = units
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
	}
	table[len(runes)] = units
	return table
}

func clampOffset(n, max int) int {
	if n < 0 {
		return 0
	}
	if n > max {
		return max
	}
	return n
}

// utf16Len is a small helper the decompiler also uses to size buffers.
func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}
