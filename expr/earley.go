// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package expr

import "strings"

// item is an Earley state: rule with a dot position, started at column start.
type item struct {
	r     *rule
	dot   int
	start int
}

func (it item) done() bool { return it.dot == len(it.r.rhs) }

func (it item) next() symbol { return it.r.rhs[it.dot] }

func (it item) advance() item { return item{r: it.r, dot: it.dot + 1, start: it.start} }

type doneKey struct {
	lhs   string
	start int
}

// column holds the states ending at one input position.
type column struct {
	items []item
	seen  map[item]bool
	// completed rules indexed by (lhs, start) for derivation extraction
	completed map[doneKey][]*rule
}

func newColumn() *column {
	return &column{seen: make(map[item]bool), completed: make(map[doneKey][]*rule)}
}

func (c *column) add(it item) {
	if c.seen[it] {
		return
	}
	c.seen[it] = true
	c.items = append(c.items, it)
	if it.done() {
		k := doneKey{lhs: it.r.lhs, start: it.start}
		c.completed[k] = append(c.completed[k], it.r)
	}
}

// ptree is a raw parse tree node. Terminals have an empty sym.
type ptree struct {
	sym  string
	text string
	kids []*ptree
}

// flatten returns the input text spanned by t.
func (t *ptree) flatten() string {
	if t.sym == "" {
		return t.text
	}
	var b strings.Builder
	for _, k := range t.kids {
		b.WriteString(k.flatten())
	}
	return b.String()
}

type spanKey struct {
	lhs  string
	i, j int
}

// earley is a scanner-less chart parser over runes. It accepts any
// context-free grammar, including left recursion and nullable rules, so
// the expression grammar can be written in its natural precedence form.
type earley struct {
	g     *grammar
	input []rune
	cols  []*column

	memo    map[spanKey]*ptree
	failed  map[spanKey]bool
	pending map[spanKey]bool
}

// recognize fills the chart and reports whether the whole input derives
// from the start symbol. On failure it returns the furthest offset reached.
func (p *earley) recognize() (bool, int) {
	n := len(p.input)
	p.cols = make([]*column, n+1)
	for i := range p.cols {
		p.cols[i] = newColumn()
	}
	for _, r := range p.g.rules[p.g.start] {
		p.cols[0].add(item{r: r})
	}

	furthest := 0
	for k := 0; k <= n; k++ {
		col := p.cols[k]
		if len(col.items) > 0 {
			furthest = k
		}
		for i := 0; i < len(col.items); i++ {
			it := col.items[i]
			if it.done() {
				p.complete(col, it)
				continue
			}
			sym := it.next()
			if sym.terminal() {
				if k < n && sym.match(p.input[k]) {
					p.cols[k+1].add(it.advance())
				}
				continue
			}
			for _, r := range p.g.rules[sym.name] {
				col.add(item{r: r, start: k})
			}
			// Aycock-Horspool: a nullable nonterminal may be skipped at once,
			// otherwise its empty completion would miss items added later.
			if p.g.nullable[sym.name] {
				col.add(it.advance())
			}
		}
	}

	if _, ok := p.cols[n].completed[doneKey{lhs: p.g.start, start: 0}]; ok {
		return true, n
	}
	return false, furthest
}

func (p *earley) complete(col *column, done item) {
	origin := p.cols[done.start]
	for i := 0; i < len(origin.items); i++ {
		it := origin.items[i]
		if it.done() {
			continue
		}
		if s := it.next(); !s.terminal() && s.name == done.r.lhs {
			col.add(it.advance())
		}
	}
}

// extract builds one derivation of lhs spanning input[i:j]. The grammar may
// admit several; the first consistent one found is returned.
func (p *earley) extract(lhs string, i, j int) *ptree {
	key := spanKey{lhs: lhs, i: i, j: j}
	if t, ok := p.memo[key]; ok {
		return t
	}
	if p.failed[key] || p.pending[key] {
		return nil
	}
	p.pending[key] = true
	defer delete(p.pending, key)

	for _, r := range p.cols[j].completed[doneKey{lhs: lhs, start: i}] {
		if kids, ok := p.match(r.rhs, i, j); ok {
			t := &ptree{sym: lhs, kids: kids}
			p.memo[key] = t
			return t
		}
	}
	p.failed[key] = true
	return nil
}

// match splits input[i:j] across rhs, working right to left.
func (p *earley) match(rhs []symbol, i, j int) ([]*ptree, bool) {
	if len(rhs) == 0 {
		return nil, i == j
	}
	last := rhs[len(rhs)-1]
	rest := rhs[:len(rhs)-1]

	if last.terminal() {
		if j <= i || !last.match(p.input[j-1]) {
			return nil, false
		}
		prefix, ok := p.match(rest, i, j-1)
		if !ok {
			return nil, false
		}
		return append(prefix, &ptree{text: string(p.input[j-1])}), true
	}

	for k := j; k >= i; k-- {
		if _, ok := p.cols[j].completed[doneKey{lhs: last.name, start: k}]; !ok {
			continue
		}
		if !p.reachable(rest, i, k) {
			continue
		}
		sub := p.extract(last.name, k, j)
		if sub == nil {
			continue
		}
		prefix, ok := p.match(rest, i, k)
		if !ok {
			continue
		}
		return append(prefix, sub), true
	}
	return nil, false
}

// reachable prunes split points: a non-empty prefix cannot end before it starts.
func (p *earley) reachable(rest []symbol, i, k int) bool {
	if len(rest) == 0 {
		return i == k
	}
	return k >= i
}

// parseTree runs the recognizer and extraction over src.
func parseTree(g *grammar, src string) (*ptree, error) {
	p := &earley{
		g:       g,
		input:   []rune(src),
		memo:    make(map[spanKey]*ptree),
		failed:  make(map[spanKey]bool),
		pending: make(map[spanKey]bool),
	}
	ok, at := p.recognize()
	if !ok {
		return nil, &GrammarError{Source: src, Offset: at}
	}
	t := p.extract(g.start, 0, len(p.input))
	if t == nil {
		return nil, &GrammarError{Source: src, Offset: len(p.input), Message: "no derivation"}
	}
	return t, nil
}
