// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package expr

import (
	"bytes"
	"encoding/hex"
	"strconv"
)

// ValueKind tags a Value.
type ValueKind int

const (
	KindInt ValueKind = iota
	KindBool
	KindBytes
)

func (k ValueKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindBytes:
		return "bytes"
	}
	return "unknown"
}

// Value is a scalar bound in an environment or produced by evaluation.
type Value struct {
	kind ValueKind
	i    int64
	b    []byte
}

// Int wraps an integer.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Bool wraps a boolean.
func Bool(v bool) Value {
	if v {
		return Value{kind: KindBool, i: 1}
	}
	return Value{kind: KindBool}
}

// Bytes wraps a byte string (contents, raw bytes, strings).
func Bytes(b []byte) Value { return Value{kind: KindBytes, b: b} }

// Kind returns the value's kind.
func (v Value) Kind() ValueKind { return v.kind }

// Int returns the integer view; booleans count as 0 and 1.
func (v Value) Int() (int64, bool) {
	if v.kind == KindBytes {
		return 0, false
	}
	return v.i, true
}

// Bytes returns the byte view of a KindBytes value.
func (v Value) Bytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return v.b, true
}

// Truthy reports the value's truth: non-zero integers, true, non-empty bytes.
func (v Value) Truthy() bool {
	if v.kind == KindBytes {
		return len(v.b) > 0
	}
	return v.i != 0
}

// Equal compares two values. Booleans and integers compare numerically.
func (v Value) Equal(o Value) bool {
	if (v.kind == KindBytes) != (o.kind == KindBytes) {
		return false
	}
	if v.kind == KindBytes {
		return bytes.Equal(v.b, o.b)
	}
	return v.i == o.i
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.i != 0)
	case KindBytes:
		return "[" + hex.EncodeToString(v.b) + "]"
	}
	return strconv.FormatInt(v.i, 10)
}
