// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package expr

import (
	"fmt"
)

// Eval evaluates a reduced expression against env with integer semantics.
// Relational operators, and, or yield booleans; booleans act as 0 and 1
// in arithmetic. Division floors.
func Eval(n Node, env *Env) (Value, error) {
	switch v := n.(type) {
	case *Num:
		return Int(v.Value), nil
	case *Ident:
		switch v.Name {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return Lookup(v.Name, env)
	case *Unary:
		x, err := Eval(v.Operand, env)
		if err != nil {
			return Value{}, err
		}
		i, ok := x.Int()
		if !ok {
			return Value{}, &TypeError{Op: "-", Message: "operand is " + x.Kind().String()}
		}
		return Int(-i), nil
	case *Binary:
		return evalBinary(v, env)
	}
	return Value{}, fmt.Errorf("unknown node %T", n)
}

func evalBinary(b *Binary, env *Env) (Value, error) {
	left, err := Eval(b.Left, env)
	if err != nil {
		return Value{}, err
	}

	// and/or short-circuit so a guard can protect a lookup on its right.
	switch b.Op {
	case "and":
		if !left.Truthy() {
			return Bool(false), nil
		}
		right, err := Eval(b.Right, env)
		if err != nil {
			return Value{}, err
		}
		return Bool(right.Truthy()), nil
	case "or":
		if left.Truthy() {
			return Bool(true), nil
		}
		right, err := Eval(b.Right, env)
		if err != nil {
			return Value{}, err
		}
		return Bool(right.Truthy()), nil
	}

	right, err := Eval(b.Right, env)
	if err != nil {
		return Value{}, err
	}

	switch b.Op {
	case "==":
		return Bool(left.Equal(right)), nil
	case "!=":
		return Bool(!left.Equal(right)), nil
	}

	l, lok := left.Int()
	r, rok := right.Int()
	if !lok || !rok {
		return Value{}, &TypeError{
			Op:      b.Op,
			Message: fmt.Sprintf("operands are %s and %s", left.Kind(), right.Kind()),
		}
	}

	switch b.Op {
	case "<":
		return Bool(l < r), nil
	case ">":
		return Bool(l > r), nil
	case "<=":
		return Bool(l <= r), nil
	case ">=":
		return Bool(l >= r), nil
	case "+":
		return Int(l + r), nil
	case "-":
		return Int(l - r), nil
	case "|":
		return Int(l | r), nil
	case "^":
		return Int(l ^ r), nil
	case "*":
		return Int(l * r), nil
	case "&":
		return Int(l & r), nil
	case "<<":
		if r < 0 || r > 63 {
			return Value{}, &TypeError{Op: "<<", Message: fmt.Sprintf("shift count %d out of range", r)}
		}
		return Int(l << uint(r)), nil
	case ">>":
		if r < 0 || r > 63 {
			return Value{}, &TypeError{Op: ">>", Message: fmt.Sprintf("shift count %d out of range", r)}
		}
		return Int(l >> uint(r)), nil
	case "/":
		if r == 0 {
			return Value{}, ErrDivisionByZero
		}
		return Int(floorDiv(l, r)), nil
	case "%":
		if r == 0 {
			return Value{}, ErrDivisionByZero
		}
		return Int(l - floorDiv(l, r)*r), nil
	}
	return Value{}, fmt.Errorf("unknown operator %q", b.Op)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Render substitutes every identifier in n with its resolved value and
// returns the flat expression text, e.g. "(3 * 4) == 12".
func Render(n Node, env *Env) (string, error) {
	s, err := render(n, env)
	if err != nil {
		return "", err
	}
	if _, ok := n.(*Binary); ok {
		s = s[1 : len(s)-1]
	}
	return s, nil
}

func render(n Node, env *Env) (string, error) {
	switch v := n.(type) {
	case *Num:
		return v.Text, nil
	case *Ident:
		if v.Name == "true" || v.Name == "false" {
			return v.Name, nil
		}
		val, err := Lookup(v.Name, env)
		if err != nil {
			return "", err
		}
		return val.String(), nil
	case *Unary:
		s, err := render(v.Operand, env)
		if err != nil {
			return "", err
		}
		return v.Op + s, nil
	case *Binary:
		l, err := render(v.Left, env)
		if err != nil {
			return "", err
		}
		r, err := render(v.Right, env)
		if err != nil {
			return "", err
		}
		return "(" + l + " " + v.Op + " " + r + ")", nil
	}
	return "", fmt.Errorf("unknown node %T", n)
}
