// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package expr

import "unicode"

// symbol is either a nonterminal (match == nil) or a single-rune terminal.
type symbol struct {
	name  string
	match func(r rune) bool
}

func (s symbol) terminal() bool { return s.match != nil }

type rule struct {
	lhs string
	rhs []symbol
}

type grammar struct {
	start    string
	rules    map[string][]*rule
	nullable map[string]bool
}

func nt(name string) symbol { return symbol{name: name} }

func lit(r rune) symbol {
	return symbol{name: string(r), match: func(c rune) bool { return c == r }}
}

func class(name string, fn func(rune) bool) symbol {
	return symbol{name: name, match: fn}
}

// word expands a literal string into one terminal per rune.
func word(s string) []symbol {
	out := make([]symbol, 0, len(s))
	for _, r := range s {
		out = append(out, lit(r))
	}
	return out
}

func seq(parts ...any) []symbol {
	var out []symbol
	for _, p := range parts {
		switch v := p.(type) {
		case symbol:
			out = append(out, v)
		case []symbol:
			out = append(out, v...)
		case string:
			out = append(out, word(v)...)
		}
	}
	return out
}

func (g *grammar) add(lhs string, rhs ...[]symbol) {
	for _, r := range rhs {
		g.rules[lhs] = append(g.rules[lhs], &rule{lhs: lhs, rhs: r})
	}
}

// computeNullable finds every nonterminal that derives the empty string.
func (g *grammar) computeNullable() {
	g.nullable = make(map[string]bool)
	for changed := true; changed; {
		changed = false
		for lhs, rules := range g.rules {
			if g.nullable[lhs] {
				continue
			}
			for _, r := range rules {
				all := true
				for _, s := range r.rhs {
					if s.terminal() || !g.nullable[s.name] {
						all = false
						break
					}
				}
				if all {
					g.nullable[lhs] = true
					changed = true
					break
				}
			}
		}
	}
}

// Nonterminal names. Their text shows up in parse trees only.
const (
	symStart  = "<start>"
	symOr     = "<or>"
	symAnd    = "<and>"
	symCmp    = "<cmp>"
	symSum    = "<sum>"
	symTerm   = "<term>"
	symFactor = "<factor>"
	symNegate = "<negate>"
	symRelop  = "<relop>"
	symAddop  = "<addop>"
	symMulop  = "<mulop>"
	symNumber = "<number>"
	symDigits = "<digits>"
	symBinary = "<bindigits>"
	symHex    = "<hexdigits>"
	symIdent  = "<ident>"
	symIdRest = "<identrest>"
	symWS     = "<ws>"
	symSpace  = "<space>"
	symOrKw   = "<orkw>"
	symAndKw  = "<andkw>"
)

// newExpressionGrammar builds the character-level expression grammar.
//
// Precedence, low to high: or, and, relational, additive (+ - | ^),
// multiplicative (* / % & << >>), unary minus, factor.
func newExpressionGrammar() *grammar {
	g := &grammar{start: symStart, rules: make(map[string][]*rule)}

	ws := nt(symWS)
	space := class("' '", func(r rune) bool { return r == ' ' || r == '\t' })
	// Identifiers may also start with '_' so _parent and _root resolve.
	letter := class("letter", func(r rune) bool { return r < unicode.MaxASCII && (unicode.IsLetter(r) || r == '_') })
	digit := class("digit", func(r rune) bool { return r >= '0' && r <= '9' })
	bit := class("bit", func(r rune) bool { return r == '0' || r == '1' })
	hexDigit := class("hexdigit", func(r rune) bool {
		return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
	})
	identChar := class("identchar", func(r rune) bool {
		return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_')
	})

	g.add(symStart, seq(ws, nt(symOr), ws))

	// Keyword operators need at least one space on each side so that they
	// never merge with the neighbouring identifiers.
	g.add(symOrKw, seq(nt(symSpace), "or", nt(symSpace)))
	g.add(symAndKw, seq(nt(symSpace), "and", nt(symSpace)))
	g.add(symSpace, seq(space, ws))

	g.add(symOr,
		seq(nt(symOr), nt(symOrKw), nt(symAnd)),
		seq(nt(symAnd)),
	)
	g.add(symAnd,
		seq(nt(symAnd), nt(symAndKw), nt(symCmp)),
		seq(nt(symCmp)),
	)
	g.add(symCmp,
		seq(nt(symSum), ws, nt(symRelop), ws, nt(symSum)),
		seq(nt(symSum)),
	)
	g.add(symRelop, seq("=="), seq("!="), seq("<="), seq(">="), seq("<"), seq(">"))

	g.add(symSum,
		seq(nt(symSum), ws, nt(symAddop), ws, nt(symTerm)),
		seq(nt(symTerm)),
	)
	g.add(symAddop, seq("+"), seq("-"), seq("|"), seq("^"))

	g.add(symTerm,
		seq(nt(symTerm), ws, nt(symMulop), ws, nt(symFactor)),
		seq(nt(symFactor)),
	)
	g.add(symMulop, seq("*"), seq("/"), seq("%"), seq("&"), seq("<<"), seq(">>"))

	g.add(symFactor,
		seq("(", ws, nt(symOr), ws, ")"),
		seq(nt(symNegate)),
		seq(nt(symNumber)),
		seq(nt(symIdent)),
	)
	g.add(symNegate, seq("-", ws, nt(symFactor)))

	g.add(symNumber,
		seq("0b", nt(symBinary)),
		seq("0x", nt(symHex)),
		seq(nt(symDigits)),
	)
	g.add(symDigits, seq(digit, nt(symDigits)), seq(digit))
	g.add(symBinary, seq(bit, nt(symBinary)), seq(bit))
	g.add(symHex, seq(hexDigit, nt(symHex)), seq(hexDigit))

	g.add(symIdent, seq(letter, nt(symIdRest)))
	g.add(symIdRest, seq(identChar, nt(symIdRest)), seq())

	g.add(symWS, seq(space, ws), seq())

	g.computeNullable()
	return g
}
