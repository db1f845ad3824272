package moderation

import "unicode"

// MatchGlob implements the blocklist engine's modified wildcard
// matcher (spec.md §4.6.2, ported from original_source's glob
// module). `?` matches one non-whitespace rune, `*` matches zero or
// more non-whitespace runes, every other pattern rune matches
// literally. The deviation from a standard wildcard engine: whitespace
// in the input resets the match position back to the start of the
// pattern, so `cat` never matches inside "concatenate" but `*cat*`
// matches "a cat b".
func MatchGlob(pattern, input string) bool {
	p := []rune(pattern)
	return matchFrom(p, []rune(input))
}

func matchFrom(pattern, input []rune) bool {
	pi, ii := 0, 0
	// starIdx/starMatch record the most recent '*' for backtracking, reset
	// whenever a whitespace rune is consumed (the core deviation).
	starIdx, starMatch := -1, -1

	for ii < len(input) {
		if allStars(pattern[pi:]) {
			return true
		}

		if unicode.IsSpace(input[ii]) {
			// Whitespace resets the match to pattern start, but also
			// advances past literal/`?`/`*` matches of whitespace-adjacent
			// patterns: a space in the pattern matches a space in the input
			// normally before the reset rule applies to non-space patterns.
			if pi < len(pattern) && pattern[pi] == input[ii] {
				pi++
				ii++
				continue
			}
			pi, starIdx, starMatch = 0, -1, -1
			ii++
			continue
		}

		switch {
		case pi < len(pattern) && pattern[pi] == '?':
			pi++
			ii++
		case pi < len(pattern) && pattern[pi] == '*':
			starIdx = pi
			starMatch = ii
			pi++
		case pi < len(pattern) && pattern[pi] == input[ii]:
			pi++
			ii++
		case starIdx != -1:
			pi = starIdx + 1
			starMatch++
			ii = starMatch
		default:
			// No wildcard to backtrack into: this word can never match
			// starting here. Skip past the rest of the current
			// (whitespace-delimited) word and retry from the pattern
			// start at the next word, mirroring the whitespace-reset
			// branch above instead of failing the whole match.
			for ii < len(input) && !unicode.IsSpace(input[ii]) {
				ii++
			}
			pi, starIdx, starMatch = 0, -1, -1
		}
	}

	return allStars(pattern[pi:])
}

func allStars(pattern []rune) bool {
	for _, r := range pattern {
		if r != '*' {
			return false
		}
	}
	return true
}
