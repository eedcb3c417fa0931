// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is a reduced expression tree node.
type Node interface {
	node()
}

// Num is a numeric literal. Text keeps the literal as written.
type Num struct {
	Text  string
	Value int64
}

// Ident is a (possibly dotted) identifier.
type Ident struct {
	Name string
}

// Binary is a folded (left, op, right) production.
type Binary struct {
	Left  Node
	Op    string
	Right Node
}

// Unary is a negation.
type Unary struct {
	Op      string
	Operand Node
}

func (*Num) node()    {}
func (*Ident) node()  {}
func (*Binary) node() {}
func (*Unary) node()  {}

// Idents lists the identifiers referenced by n, in first-use order.
func Idents(n Node) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case *Ident:
			if !seen[v.Name] {
				seen[v.Name] = true
				out = append(out, v.Name)
			}
		case *Binary:
			walk(v.Left)
			walk(v.Right)
		case *Unary:
			walk(v.Operand)
		}
	}
	walk(n)
	return out
}

// String renders n with every nested binary production parenthesized.
func String(n Node) string {
	s := format(n)
	if _, ok := n.(*Binary); ok {
		s = s[1 : len(s)-1]
	}
	return s
}

func format(n Node) string {
	switch v := n.(type) {
	case *Num:
		return v.Text
	case *Ident:
		return v.Name
	case *Unary:
		return v.Op + format(v.Operand)
	case *Binary:
		return "(" + format(v.Left) + " " + v.Op + " " + format(v.Right) + ")"
	}
	return "?"
}

// reduce collapses the raw parse tree: single-child chains disappear,
// parentheses and whitespace are dropped, and every binary production
// becomes a Binary triple.
func reduce(t *ptree) (Node, error) {
	switch t.sym {
	case symNumber:
		return parseNumber(t.flatten())
	case symIdent:
		return &Ident{Name: t.flatten()}, nil
	case symNegate:
		kids := significant(t)
		if len(kids) != 2 {
			return nil, fmt.Errorf("malformed negation %q", t.flatten())
		}
		operand, err := reduce(kids[1])
		if err != nil {
			return nil, err
		}
		return &Unary{Op: "-", Operand: operand}, nil
	}

	kids := significant(t)
	switch len(kids) {
	case 1:
		return reduce(kids[0])
	case 3:
		left, err := reduce(kids[0])
		if err != nil {
			return nil, err
		}
		right, err := reduce(kids[2])
		if err != nil {
			return nil, err
		}
		return &Binary{Left: left, Op: strings.TrimSpace(kids[1].flatten()), Right: right}, nil
	}
	return nil, fmt.Errorf("unexpected production %s over %q", t.sym, t.flatten())
}

// significant drops whitespace and parenthesis leaves.
func significant(t *ptree) []*ptree {
	var out []*ptree
	for _, k := range t.kids {
		switch {
		case k.sym == symWS:
		case k.sym == "" && (k.text == "(" || k.text == ")"):
		default:
			out = append(out, k)
		}
	}
	return out
}

func parseNumber(text string) (*Num, error) {
	var v int64
	var err error
	switch {
	case strings.HasPrefix(text, "0b"):
		v, err = strconv.ParseInt(text[2:], 2, 64)
	case strings.HasPrefix(text, "0x"):
		v, err = strconv.ParseInt(text[2:], 16, 64)
	default:
		v, err = strconv.ParseInt(text, 10, 64)
	}
	if err != nil {
		return nil, fmt.Errorf("numeric literal %q: %w", text, err)
	}
	return &Num{Text: text, Value: v}, nil
}
