package markup

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// NoteCallbackPrefix marks a button's callback data as referring to a
// note. Every `#note` button is built as a callback-data button carrying
// this prefix, whatever the chat kind; no deep-link URL variant is
// produced here.
const NoteCallbackPrefix = "note:"

// BuildKeyboard lays out ButtonSpecs into rows: each button starts a
// new row unless SameRow asks to append to the previous one.
func BuildKeyboard(specs []ButtonSpec) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, b := range specs {
		btn := toButton(b)
		if b.SameRow && len(rows) > 0 {
			rows[len(rows)-1] = append(rows[len(rows)-1], btn)
			continue
		}
		rows = append(rows, []tgbotapi.InlineKeyboardButton{btn})
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func toButton(b ButtonSpec) tgbotapi.InlineKeyboardButton {
	if b.NoteName != "" {
		return tgbotapi.NewInlineKeyboardButtonData(b.Label, NoteCallbackPrefix+b.NoteName)
	}
	return tgbotapi.NewInlineKeyboardButtonURL(b.Label, b.URL)
}
