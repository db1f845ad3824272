package moderation

import (
	"context"
	"strings"
	"unicode"

	"github.com/hrygo/modbot/internal/markup"
	"github.com/hrygo/modbot/internal/store"
)

// MatchFilters returns the first configured filter whose trigger fires
// against text (spec.md §4.6.2): a case-insensitive whole-word
// occurrence, flanked by start/end of text or whitespace.
func MatchFilters(text string, filters []store.Filter) (*store.Filter, bool) {
	for i := range filters {
		for _, trig := range filters[i].Triggers {
			if wholeWordContains(text, trig) {
				return &filters[i], true
			}
		}
	}
	return nil, false
}

// wholeWordContains reports whether trigger occurs in text as a
// whole-word slice: the characters immediately before and after the
// match, if any, must be whitespace.
func wholeWordContains(text, trigger string) bool {
	if trigger == "" {
		return false
	}
	t := []rune(strings.ToLower(text))
	tr := []rune(strings.ToLower(trigger))
	for start := 0; start+len(tr) <= len(t); start++ {
		if !runesEqual(t[start:start+len(tr)], tr) {
			continue
		}
		before := start == 0 || unicode.IsSpace(t[start-1])
		end := start + len(tr)
		after := end == len(t) || unicode.IsSpace(t[end])
		if before && after {
			return true
		}
	}
	return false
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// RenderFilter renders a matched filter's body, ready to send. A
// filter saved from a reply (spec.md §8 scenario 1) carries its
// captured platform entities verbatim via EntityID; one authored as
// murkdown source is parsed and filled fresh on every fire.
func RenderFilter(ctx context.Context, s *store.Store, f *store.Filter, fillCtx markup.FillingContext) (markup.Rendered, error) {
	if f.EntityID != nil {
		return RenderStored(ctx, s, f.Text, f.EntityID)
	}
	return markup.RenderMurkdown(f.Text, fillCtx), nil
}
