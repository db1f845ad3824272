package markup

import "strings"

// parser is a hand-rolled recursive-descent reader over the murkdown
// token stream. The original implementation drives a table-driven
// LALR parser; Go's ecosystem has no equivalent generator in active
// use among the retrieved examples, so this reads the same grammar by
// hand, one production per marker. Output accumulates as runes so
// span offsets never need a byte/rune reconciliation pass.
type parser struct {
	toks []token
	pos  int
	out  []rune
	doc  Document
}

func parseMurkdown(src string) Document {
	p := &parser{toks: lex([]rune(src))}
	p.parseSequence(tokEOF)
	p.doc.Text = string(p.out)
	return p.doc
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// parseSequence consumes tokens until it sees `until` (or EOF),
// appending output runes to p.out and spans to p.doc.Spans. It
// recurses for bracketed markers.
func (p *parser) parseSequence(until tokenKind) {
	for {
		t := p.peek()
		if t.kind == tokEOF || t.kind == until {
			return
		}
		switch t.kind {
		case tokLSBracket:
			p.parseBracket()
		default:
			p.advance()
			p.out = append(p.out, rawRunes(t)...)
		}
	}
}

func rawRunes(t token) []rune {
	switch t.kind {
	case tokRawChar:
		return []rune{t.ch}
	case tokUnderscore:
		return []rune{'_'}
	case tokDoubleUnderscore:
		return []rune("__")
	case tokTilde:
		return []rune{'~'}
	case tokTick:
		return []rune{'`'}
	case tokTripleTick:
		return []rune("```")
	case tokStar:
		return []rune{'*'}
	case tokDoubleBar:
		return []rune("||")
	case tokLSBracket:
		return []rune{'['}
	case tokRSBracket:
		return []rune{']'}
	case tokLParen:
		return []rune{'('}
	case tokRParen:
		return []rune{')'}
	}
	return nil
}

var markerKinds = map[tokenKind]SpanKind{
	tokStar:             SpanBold,
	tokUnderscore:       SpanItalic,
	tokDoubleUnderscore: SpanUnderline,
	tokTilde:            SpanStrike,
	tokDoubleBar:        SpanSpoiler,
	tokTick:             SpanCode,
	tokTripleTick:       SpanPre,
}

// parseBracket consumes one `[...]` group, already positioned at the
// LSBracket.
func (p *parser) parseBracket() {
	p.advance() // consume '['

	if p.isScaffoldDirective() {
		p.passThroughScaffold()
		return
	}

	if kind, ok := markerKinds[p.peek().kind]; ok {
		p.advance() // consume marker
		start := len(p.out)
		p.parseSequence(tokRSBracket)
		if p.peek().kind == tokRSBracket {
			p.advance()
		}
		p.doc.Spans = append(p.doc.Spans, Span{Kind: kind, Offset: start, Length: len(p.out) - start})
		return
	}

	// No marker: either `[text](url)` link or `[text](#note)` /
	// `[text](buttonurl://...)` button. Parse the label into a scratch
	// buffer first so a button target can omit it from the rendered text.
	label := p.parseLabel()
	if p.peek().kind == tokRSBracket {
		p.advance()
	}
	if p.peek().kind != tokLParen {
		// No following parenthesis: not a link, keep the brackets literal.
		p.out = append(p.out, '[')
		p.out = append(p.out, []rune(label)...)
		p.out = append(p.out, ']')
		return
	}
	p.advance() // consume '('
	var target strings.Builder
	for p.peek().kind != tokRParen && p.peek().kind != tokEOF {
		target.WriteString(string(rawRunes(p.advance())))
	}
	if p.peek().kind == tokRParen {
		p.advance()
	}
	p.resolveBracketTarget(label, target.String())
}

// parseLabel parses a bracketed label into its own scratch sub-parser,
// so bracket/marker syntax can nest inside a link or button's label
// without touching p.out until the target classification is known.
func (p *parser) parseLabel() string {
	inner := &parser{toks: p.toks, pos: p.pos}
	inner.parseSequence(tokRSBracket)
	p.pos = inner.pos
	p.doc.Spans = append(p.doc.Spans, inner.doc.Spans...)
	return string(inner.out)
}

// resolveBracketTarget classifies `[label](target)` per spec.md
// §4.3.1: a `buttonurl://` target (optionally `:same`-suffixed) or a
// `#note` target becomes a ButtonSpec instead of inline text/entity;
// anything else is a text_link span over the label.
func (p *parser) resolveBracketTarget(label, target string) {
	switch {
	case strings.HasPrefix(target, "buttonurl://"):
		url := strings.TrimPrefix(target, "buttonurl://")
		same := strings.HasSuffix(url, ":same")
		url = strings.TrimSuffix(url, ":same")
		p.doc.Buttons = append(p.doc.Buttons, ButtonSpec{Label: label, URL: url, SameRow: same})
	case strings.HasPrefix(target, "#"):
		p.doc.Buttons = append(p.doc.Buttons, ButtonSpec{Label: label, NoteName: strings.TrimPrefix(target, "#")})
	default:
		start := len(p.out)
		p.out = append(p.out, []rune(label)...)
		p.doc.Spans = append(p.doc.Spans, Span{Kind: SpanTextLink, Offset: start, Length: len([]rune(label)), URL: target})
	}
}

// isScaffoldDirective reports whether the bracket just opened begins
// with `!`, a reserved no-op directive slot (spec.md Open Questions:
// keep the scaffold token, do nothing with it yet).
func (p *parser) isScaffoldDirective() bool {
	t := p.peek()
	return t.kind == tokRawChar && t.ch == '!'
}

// passThroughScaffold emits a `[!...]` group back out verbatim, unparsed.
func (p *parser) passThroughScaffold() {
	p.out = append(p.out, '[')
	depth := 1
	for depth > 0 {
		t := p.peek()
		if t.kind == tokEOF {
			return
		}
		if t.kind == tokLSBracket {
			depth++
		}
		if t.kind == tokRSBracket {
			depth--
			if depth == 0 {
				p.advance()
				p.out = append(p.out, ']')
				return
			}
		}
		p.advance()
		p.out = append(p.out, rawRunes(t)...)
	}
}
