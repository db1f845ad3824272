// Package botcontext wraps an inbound Telegram update in the shared
// carrier commands and moderation handlers read from, and hosts the
// tokenizer, deep-link, and callback-registry plumbing described in
// spec.md §4.4.
package botcontext

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var commandRe = regexp.MustCompile(`^(!|/)(\w+)(?:@(\w+))?`)

// Command is the parsed command prefix of a message, if any.
type Command struct {
	Bang bool // true for "!"-prefixed commands, false for "/"
	Name string
	Bot  string // set when the command carries an explicit @botname
	Args []string
}

// ParseCommand matches the command regex against text and, on a hit,
// splits the remainder into whitespace-separated arguments preserving
// "..."-quoted runs as single tokens.
func ParseCommand(text string) (*Command, bool) {
	m := commandRe.FindStringSubmatchIndex(text)
	if m == nil {
		return nil, false
	}
	cmd := &Command{
		Bang: text[m[2]:m[3]] == "!",
		Name: text[m[4]:m[5]],
	}
	if m[6] != -1 {
		cmd.Bot = text[m[6]:m[7]]
	}
	rest := strings.TrimSpace(text[m[1]:])
	cmd.Args = splitArgs(rest)
	return cmd, true
}

// splitArgs splits on whitespace, keeping "..."-quoted runs intact as
// a single argument with the quotes stripped.
func splitArgs(s string) []string {
	var args []string
	var cur strings.Builder
	inQuote := false
	hasCur := false
	flush := func() {
		if hasCur {
			args = append(args, cur.String())
			cur.Reset()
			hasCur = false
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			hasCur = true
		case unicode.IsSpace(r) && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
			hasCur = true
		}
	}
	flush()
	return args
}

// NamedEntityKinds is the closed set extracted from a message for
// command argument resolution.
var NamedEntityKinds = map[string]bool{
	"hashtag":     true,
	"mention":     true,
	"url":         true,
	"text_mention": true,
	"text_link":   true,
}

// ExtractEntities returns the named entities of NamedEntityKinds in
// descending-offset order, so a caller slicing the original text by
// entity position can safely process them front-to-back without an
// earlier slice invalidating a later offset.
func ExtractEntities(text string, entities []tgbotapi.MessageEntity) []tgbotapi.MessageEntity {
	var out []tgbotapi.MessageEntity
	for _, e := range entities {
		if NamedEntityKinds[e.Type] {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset > out[j].Offset })
	return out
}
