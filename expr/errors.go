// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package expr

import (
	"errors"
	"fmt"
)

var (
	// ErrDivisionByZero is returned when / or % has a zero right operand.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrCycle is returned when a deferred binding depends on itself.
	ErrCycle = errors.New("cyclic deferred binding")
)

// GrammarError is returned when an expression does not parse.
type GrammarError struct {
	Source  string
	Offset  int // furthest rune offset the recognizer reached
	Message string
}

func (e *GrammarError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "syntax error"
	}
	return fmt.Sprintf("expression %q: %s at offset %d", e.Source, msg, e.Offset)
}

// UnboundNameError is returned when an identifier is not reachable from the
// environment it is looked up in.
type UnboundNameError struct {
	Name  string // full (dotted) name as written
	Scope string // environment the lookup failed in
}

func (e *UnboundNameError) Error() string {
	if e.Scope == "" {
		return fmt.Sprintf("unbound name %q", e.Name)
	}
	return fmt.Sprintf("unbound name %q in %s", e.Name, e.Scope)
}

// TypeError is returned when an operator gets a value it cannot handle,
// such as bytes in arithmetic or a composite used as a scalar.
type TypeError struct {
	Op      string
	Message string
}

func (e *TypeError) Error() string {
	if e.Op == "" {
		return "type error: " + e.Message
	}
	return fmt.Sprintf("type error in %s: %s", e.Op, e.Message)
}
