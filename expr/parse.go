// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

// Package expr implements the expression language used by schema guards
// (if) and derived values (instances): integer arithmetic, bitwise and
// relational operators over numeric literals and dotted identifiers.
//
// Expressions are recognized by a character-level Earley parser, reduced to
// a small tree of (left, op, right) triples and evaluated against an Env.
package expr

import (
	"sync"
)

var (
	grammarOnce sync.Once
	exprGrammar *grammar
)

func expressionGrammar() *grammar {
	grammarOnce.Do(func() {
		exprGrammar = newExpressionGrammar()
	})
	return exprGrammar
}

// Parse parses src into a reduced expression tree.
func Parse(src string) (Node, error) {
	t, err := parseTree(expressionGrammar(), src)
	if err != nil {
		return nil, err
	}
	n, err := reduce(t)
	if err != nil {
		return nil, &GrammarError{Source: src, Message: err.Error()}
	}
	return n, nil
}

type cached struct {
	node Node
	err  error
}

// Cache memoizes Parse results by source text. It is safe for concurrent use.
type Cache struct {
	mu sync.RWMutex
	m  map[string]cached
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{m: make(map[string]cached)}
}

// Parse returns the parsed tree for src, parsing it at most once.
func (c *Cache) Parse(src string) (Node, error) {
	c.mu.RLock()
	hit, ok := c.m[src]
	c.mu.RUnlock()
	if ok {
		return hit.node, hit.err
	}

	n, err := Parse(src)
	c.mu.Lock()
	c.m[src] = cached{node: n, err: err}
	c.mu.Unlock()
	return n, err
}

// Len returns the number of cached sources.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

var defaultCache = NewCache()

// Compile parses src through the process-wide cache.
func Compile(src string) (Node, error) {
	return defaultCache.Parse(src)
}

// EvalString compiles src and evaluates it against env.
func EvalString(src string, env *Env) (Value, error) {
	n, err := Compile(src)
	if err != nil {
		return Value{}, err
	}
	return Eval(n, env)
}
