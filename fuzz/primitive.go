// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package fuzz

import (
	"math/rand/v2"

	"github.com/vrthra/KaitaiFuzz/schema"
)

// stringAlphabet is the character set of generated strings.
const stringAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// defaultEncoding applies when neither the attribute nor meta name one.
const defaultEncoding = "UTF-8"

// Primitives produces random leaf values. It holds no state besides the
// random source, so two Primitives with equally seeded sources agree.
type Primitives struct {
	rng     *rand.Rand
	maxStrz int
}

// NewPrimitives creates a generator drawing from rng.
func NewPrimitives(rng *rand.Rand, maxStrz int) *Primitives {
	if maxStrz <= 0 {
		maxStrz = DefaultOptions().MaxStrz
	}
	return &Primitives{rng: rng, maxStrz: maxStrz}
}

// RandomBytes returns n uniformly random bytes.
func (p *Primitives) RandomBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(p.rng.IntN(256))
	}
	return b
}

// RandomString returns n random characters from stringAlphabet.
func (p *Primitives) RandomString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = stringAlphabet[p.rng.IntN(len(stringAlphabet))]
	}
	return string(b)
}

// Generate produces a leaf for a primitive tag. size and encoding apply to
// strings only; endian is the effective byte order when the tag has no
// explicit le/be suffix.
func (p *Primitives) Generate(prim schema.Primitive, size int, hasSize bool, enc string, endian schema.Endian) (*Leaf, error) {
	if prim.Endian != "" {
		endian = prim.Endian
	}
	leaf := &Leaf{Tag: prim.Tag, Endian: endian, prim: prim}

	switch prim.Kind {
	case schema.PrimUnsigned, schema.PrimSigned, schema.PrimFloat:
		// Any bit pattern will do, including NaNs and negative zero.
		leaf.Bytes = p.RandomBytes(prim.Width)
		return leaf, nil

	case schema.PrimStr:
		if enc == "" {
			enc = defaultEncoding
		}
		b, err := encodeString(p.RandomString(size), enc)
		if err != nil {
			return nil, err
		}
		leaf.Bytes = b
		return leaf, nil

	case schema.PrimStrz:
		if enc == "" {
			enc = defaultEncoding
		}
		// A sized strz counts its terminator.
		n := size - 1
		if !hasSize {
			n = 1 + p.rng.IntN(p.maxStrz)
		} else if n < 0 {
			return nil, schema.Errorf("", "strz size %d leaves no room for the terminator", size)
		}
		b, err := encodeString(p.RandomString(n), enc)
		if err != nil {
			return nil, err
		}
		term, err := encodeString("\x00", enc)
		if err != nil {
			return nil, err
		}
		leaf.Bytes = append(b, term...)
		return leaf, nil
	}
	return nil, schema.Errorf("", "unrecognized primitive %q", prim.Tag)
}

// Raw produces size random bytes tagged as opaque.
func (p *Primitives) Raw(size int, endian schema.Endian) *Leaf {
	return &Leaf{Bytes: p.RandomBytes(size), Tag: TagRaw, Endian: endian}
}

// Contents returns the fixed bytes of a contents attribute. List-valued
// contents are rejected rather than approximated.
func Contents(attr *schema.Attribute, path string, endian schema.Endian) (*Leaf, error) {
	if attr.ContentsList != nil {
		return nil, schema.Unsupported(path, "list-valued contents")
	}
	b := make([]byte, len(attr.Contents))
	copy(b, attr.Contents)
	return &Leaf{Bytes: b, Tag: TagContents, Endian: endian}, nil
}
