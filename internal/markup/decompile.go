package markup

import (
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Decompile renders a platform MessageEntity list back into rival-bot
// markdown source, interleaving open/close markers at the sorted
// entity offsets and appending buttons after the text (spec.md
// §4.3.3). Offsets on entities are UTF-16 code units; Decompile
// converts back to rune boundaries before inserting markers.
func Decompile(text string, entities []tgbotapi.MessageEntity, kb *tgbotapi.InlineKeyboardMarkup) string {
	runes := []rune(text)
	runeOffset := utf16ToRuneOffsets(runes)

	type marker struct {
		pos   int
		open  bool
		order int
		text  string
	}
	var markers []marker

	sorted := make([]tgbotapi.MessageEntity, len(entities))
	copy(sorted, entities)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	for idx, e := range sorted {
		startRune := runeOffset(e.Offset)
		endRune := runeOffset(e.Offset + e.Length)
		open, close := delimsForEntity(e)
		// Open order is entity-list reverse; close order matches, so
		// nested spans that open later close first at a shared offset.
		markers = append(markers, marker{pos: startRune, open: true, order: len(sorted) - idx, text: open})
		markers = append(markers, marker{pos: endRune, open: false, order: idx, text: close})
	}

	sort.SliceStable(markers, func(i, j int) bool {
		if markers[i].pos != markers[j].pos {
			return markers[i].pos < markers[j].pos
		}
		// At the same offset, closes before opens, both ordered by `order`.
		if markers[i].open != markers[j].open {
			return !markers[i].open
		}
		return markers[i].order < markers[j].order
	})

	var b strings.Builder
	cursor := 0
	for _, m := range markers {
		b.WriteString(string(runes[cursor:m.pos]))
		b.WriteString(m.text)
		cursor = m.pos
	}
	b.WriteString(string(runes[cursor:]))

	if kb != nil {
		for _, row := range kb.InlineKeyboard {
			for _, btn := range row {
				b.WriteString("\n")
				target := ""
				if btn.URL != nil {
					target = *btn.URL
				} else if btn.CallbackData != nil {
					target = "buttonurl:" + *btn.CallbackData
				}
				fmt.Fprintf(&b, "[%s](%s)", btn.Text, target)
			}
		}
	}
	return b.String()
}

func delimsForEntity(e tgbotapi.MessageEntity) (open, close string) {
	switch e.Type {
	case "bold":
		return "*", "*"
	case "italic":
		return "_", "_"
	case "underline":
		return "__", "__"
	case "strikethrough":
		return "~", "~"
	case "spoiler":
		return "||", "||"
	case "code":
		return "`", "`"
	case "pre":
		return "```", "```"
	case "text_link":
		return "[", "](" + e.URL + ")"
	case "text_mention":
		id := int64(0)
		if e.User != nil {
			id = e.User.ID
		}
		return "[", fmt.Sprintf("](tg://user?id=%d)", id)
	default:
		return "", ""
	}
}

// utf16ToRuneOffsets builds a closure mapping a UTF-16 code-unit offset
// back to its rune index, the inverse of render.go's utf16OffsetTable.
func utf16ToRuneOffsets(runes []rune) func(int) int {
	table := utf16OffsetTable(runes)
	return func(units int) int {
		// table is monotonically non-decreasing; find the first rune
		// index whose code-unit offset is >= units.
		lo, hi := 0, len(table)-1
		for lo < hi {
			mid := (lo + hi) / 2
			if table[mid] < units {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		return lo
	}
}
