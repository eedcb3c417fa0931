// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package schema

import (
	"strconv"
	"strings"
)

// PrimKind is the family of a primitive type tag.
type PrimKind string

const (
	PrimUnsigned PrimKind = "u"
	PrimSigned   PrimKind = "s"
	PrimFloat    PrimKind = "f"
	PrimStr      PrimKind = "str"
	PrimStrz     PrimKind = "strz"
)

// Primitive is a parsed primitive tag such as u2, s4be or str.
type Primitive struct {
	Tag    string // tag as written in the schema
	Kind   PrimKind
	Width  int    // byte width for numeric kinds, 0 for strings
	Endian Endian // explicit le/be suffix, "" inherits
}

// IsInteger reports whether the primitive decodes as an integer.
func (p Primitive) IsInteger() bool {
	return p.Kind == PrimUnsigned || p.Kind == PrimSigned
}

// IsString reports whether the primitive is a character string.
func (p Primitive) IsString() bool {
	return p.Kind == PrimStr || p.Kind == PrimStrz
}

var validWidths = map[PrimKind][]int{
	PrimUnsigned: {1, 2, 4, 8},
	PrimSigned:   {1, 2, 4, 8},
	PrimFloat:    {4, 8},
}

// ParsePrimitive parses a primitive type tag. Tags that are not primitives
// (user type names) return false.
func ParsePrimitive(tag string) (Primitive, bool) {
	switch tag {
	case "str":
		return Primitive{Tag: tag, Kind: PrimStr}, true
	case "strz":
		return Primitive{Tag: tag, Kind: PrimStrz}, true
	}
	if len(tag) < 2 {
		return Primitive{}, false
	}

	kind := PrimKind(tag[:1])
	widths, ok := validWidths[kind]
	if !ok {
		return Primitive{}, false
	}

	rest := tag[1:]
	var endian Endian
	switch {
	case strings.HasSuffix(rest, "le"):
		endian = EndianLittle
		rest = strings.TrimSuffix(rest, "le")
	case strings.HasSuffix(rest, "be"):
		endian = EndianBig
		rest = strings.TrimSuffix(rest, "be")
	}

	width, err := strconv.Atoi(rest)
	if err != nil {
		return Primitive{}, false
	}
	for _, w := range widths {
		if w == width {
			return Primitive{Tag: tag, Kind: kind, Width: width, Endian: endian}, true
		}
	}
	return Primitive{}, false
}
