// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

// Package schema provides the in-memory tree of a Kaitai-Struct-style binary
// format definition and a loader for its YAML (.ksy) representation.
//
// The tree is built once and treated as read-only afterwards; generators
// walk it concurrently without locking.
package schema

import (
	"sort"
	"strings"
)

// Endian represents a byte order.
type Endian string

const (
	EndianBig    Endian = "big"
	EndianLittle Endian = "little"
)

// ParseEndian maps the .ksy spelling (le, be) to an Endian.
// An empty string yields "" so callers can fall back to an enclosing default.
func ParseEndian(s string) (Endian, bool) {
	switch s {
	case "":
		return "", true
	case "le":
		return EndianLittle, true
	case "be":
		return EndianBig, true
	}
	return "", false
}

// Meta carries the format-wide defaults.
type Meta struct {
	ID       string
	Title    string
	Endian   Endian // defaults to big when absent
	Encoding string // default string encoding, may be empty
}

// Kind tags the variant held by an Attribute.
type Kind int

const (
	KindContents Kind = iota
	KindRawBytes
	KindPrimitive
	KindNamedType
	KindSwitch
)

func (k Kind) String() string {
	switch k {
	case KindContents:
		return "contents"
	case KindRawBytes:
		return "bytes"
	case KindPrimitive:
		return "primitive"
	case KindNamedType:
		return "type"
	case KindSwitch:
		return "switch"
	}
	return "unknown"
}

// Attribute is one declared field of a sequence.
type Attribute struct {
	ID   string
	If   string // guard expression, empty when unconditional
	Kind Kind

	// KindContents
	Contents     []byte
	ContentsList []any // list-valued contents, kept only to be rejected

	// KindRawBytes, and the size of str/strz primitives
	Size    int
	HasSize bool

	// KindPrimitive
	Prim     Primitive
	Encoding string
	Enum     string // enum name for integer fields

	// KindNamedType
	Type string

	// KindSwitch
	Switch *Switch

	// Repeat holds the repeat mode when declared; generation rejects it.
	Repeat string
}

// Switch selects the type of an attribute from an earlier field's value.
type Switch struct {
	On    string
	Cases []Case
}

// Case maps a case key (integer literal, enum case name, enum::name or _)
// to a target type, either a primitive tag or a user type name.
type Case struct {
	Key  string
	Type string
}

// Target returns the target type for a case key, if declared.
func (s *Switch) Target(key string) (string, bool) {
	for _, c := range s.Cases {
		if c.Key == key {
			return c.Type, true
		}
	}
	return "", false
}

// Instance is a derived value computed from an expression.
type Instance struct {
	ID    string
	Value string
}

// EnumValue is a single enum member.
type EnumValue struct {
	Key  int64
	Name string
}

// Enum maps integer values to symbolic names, in declaration order.
type Enum struct {
	Name   string
	Values []EnumValue
}

// Lookup returns the case name bound to v.
func (e *Enum) Lookup(v int64) (string, bool) {
	for _, ev := range e.Values {
		if ev.Key == v {
			return ev.Name, true
		}
	}
	return "", false
}

// Keys returns the declared keys in declaration order.
func (e *Enum) Keys() []int64 {
	keys := make([]int64, len(e.Values))
	for i, ev := range e.Values {
		keys[i] = ev.Key
	}
	return keys
}

// TypeDef is a named sequence of attributes plus derived instances.
// Nested types and enums are resolved lexically, innermost first.
type TypeDef struct {
	Name      string
	Endian    Endian // per-type override, "" inherits
	Seq       []Attribute
	Instances []Instance
	Types     map[string]*TypeDef
	Enums     map[string]*Enum
	Parent    *TypeDef
}

// ResolveType finds a user type visible from t. Names may be qualified
// with "::" (outer::inner).
func (t *TypeDef) ResolveType(name string) (*TypeDef, bool) {
	parts := strings.Split(name, "::")
	for scope := t; scope != nil; scope = scope.Parent {
		found, ok := scope.Types[parts[0]]
		if !ok {
			continue
		}
		for _, p := range parts[1:] {
			found, ok = found.Types[p]
			if !ok {
				return nil, false
			}
		}
		return found, true
	}
	return nil, false
}

// ResolveEnum finds an enum visible from t. Names may be qualified with "::".
func (t *TypeDef) ResolveEnum(name string) (*Enum, bool) {
	parts := strings.Split(name, "::")
	last := parts[len(parts)-1]
	if len(parts) == 1 {
		for scope := t; scope != nil; scope = scope.Parent {
			if e, ok := scope.Enums[last]; ok {
				return e, true
			}
		}
		return nil, false
	}
	owner, ok := t.ResolveType(strings.Join(parts[:len(parts)-1], "::"))
	if !ok {
		return nil, false
	}
	e, ok := owner.Enums[last]
	return e, ok
}

// EffectiveEndian returns the byte order in force for t, falling back to def.
func (t *TypeDef) EffectiveEndian(def Endian) Endian {
	for scope := t; scope != nil; scope = scope.Parent {
		if scope.Endian != "" {
			return scope.Endian
		}
	}
	if def == "" {
		return EndianBig
	}
	return def
}

// Schema is a loaded format definition. Root holds the top-level seq,
// instances, types and enums.
type Schema struct {
	Meta Meta
	Root *TypeDef
}

// TypeNames lists every user type reachable from the root, qualified with "::".
func (s *Schema) TypeNames() []string {
	var names []string
	var walk func(prefix string, t *TypeDef)
	walk = func(prefix string, t *TypeDef) {
		for name, sub := range t.Types {
			full := name
			if prefix != "" {
				full = prefix + "::" + name
			}
			names = append(names, full)
			walk(full, sub)
		}
	}
	walk("", s.Root)
	sort.Strings(names)
	return names
}
