// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package fuzz

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vrthra/KaitaiFuzz/expr"
	"github.com/vrthra/KaitaiFuzz/schema"
)

// TagRaw is the type tag of size-only attributes.
const TagRaw = "_"

// TagContents is the type tag of fixed contents attributes.
const TagContents = "contents"

// Leaf is one emitted field: its bytes, type tag and byte order.
//
// Output is append-only except for one case: resolving a switch may rewrite
// the bytes of the controlling leaf in place (backpatch). The environment
// binds the same *Leaf, so both views change together.
type Leaf struct {
	Bytes  []byte
	Tag    string
	Endian schema.Endian
	Enum   string // enum declared on the attribute, if any

	prim schema.Primitive
	enum *schema.Enum
}

// Int decodes the leaf as an integer in its recorded byte order.
func (l *Leaf) Int() (int64, error) {
	return ReadInt(l.Bytes, l.Endian, l.prim.Kind == schema.PrimSigned)
}

// FieldValue implements expr.Field. Integer and float tags decode to an
// integer (floats by their bit pattern); everything else binds as bytes.
func (l *Leaf) FieldValue() expr.Value {
	switch l.prim.Kind {
	case schema.PrimUnsigned, schema.PrimSigned, schema.PrimFloat:
		if v, err := l.Int(); err == nil {
			return expr.Int(v)
		}
	}
	return expr.Bytes(l.Bytes)
}

// RecordKind tags a Record.
type RecordKind int

const (
	RecordLeaf RecordKind = iota
	RecordGroup
	RecordDerived
)

// Record is one entry of an Output: a leaf, a nested group produced by a
// user type, or a derived instance value (no bytes).
type Record struct {
	ID    string
	Kind  RecordKind
	Leaf  *Leaf
	Type  string // user type name for groups
	Group Output
	Value expr.Value
}

// Output is the ordered result of generating one sequence.
type Output []Record

// Bytes concatenates all leaves in declaration order.
func (o Output) Bytes() []byte {
	var buf bytes.Buffer
	o.Walk(func(_ string, l *Leaf) {
		buf.Write(l.Bytes)
	})
	return buf.Bytes()
}

// Len returns the number of emitted bytes.
func (o Output) Len() int {
	n := 0
	o.Walk(func(_ string, l *Leaf) {
		n += len(l.Bytes)
	})
	return n
}

// Walk visits every leaf depth first with its dotted path.
func (o Output) Walk(fn func(path string, l *Leaf)) {
	o.walk("", fn)
}

func (o Output) walk(prefix string, fn func(string, *Leaf)) {
	for _, r := range o {
		path := r.ID
		if prefix != "" {
			path = prefix + "." + r.ID
		}
		switch r.Kind {
		case RecordLeaf:
			fn(path, r.Leaf)
		case RecordGroup:
			r.Group.walk(path, fn)
		}
	}
}

// Find returns the record at a dotted id path.
func (o Output) Find(path string) (*Record, bool) {
	segs := strings.Split(path, ".")
	cur := o
	for i, seg := range segs {
		var found *Record
		for j := range cur {
			if cur[j].ID == seg {
				found = &cur[j]
				break
			}
		}
		if found == nil {
			return nil, false
		}
		if i == len(segs)-1 {
			return found, true
		}
		if found.Kind != RecordGroup {
			return nil, false
		}
		cur = found.Group
	}
	return nil, false
}

// Leaf returns the leaf at a dotted id path.
func (o Output) Leaf(path string) (*Leaf, bool) {
	r, ok := o.Find(path)
	if !ok || r.Kind != RecordLeaf {
		return nil, false
	}
	return r.Leaf, true
}

// IDs returns the top-level record ids in order.
func (o Output) IDs() []string {
	ids := make([]string, len(o))
	for i, r := range o {
		ids[i] = r.ID
	}
	return ids
}

// Shape renders the record structure without bytes, e.g. "hdr(magic,len),body".
func (o Output) Shape() string {
	parts := make([]string, len(o))
	for i, r := range o {
		switch r.Kind {
		case RecordGroup:
			parts[i] = r.ID + "(" + r.Group.Shape() + ")"
		case RecordDerived:
			parts[i] = "$" + r.ID
		default:
			parts[i] = r.ID
		}
	}
	return strings.Join(parts, ",")
}

type recordView struct {
	ID      string       `json:"id" yaml:"id"`
	Type    string       `json:"type,omitempty" yaml:"type,omitempty"`
	Endian  string       `json:"endian,omitempty" yaml:"endian,omitempty"`
	Hex     string       `json:"hex,omitempty" yaml:"hex,omitempty"`
	Value   string       `json:"value,omitempty" yaml:"value,omitempty"`
	Records []recordView `json:"records,omitempty" yaml:"records,omitempty"`
}

func (o Output) view() []recordView {
	views := make([]recordView, 0, len(o))
	for _, r := range o {
		v := recordView{ID: r.ID}
		switch r.Kind {
		case RecordLeaf:
			v.Type = r.Leaf.Tag
			v.Endian = string(r.Leaf.Endian)
			v.Hex = hex.EncodeToString(r.Leaf.Bytes)
		case RecordGroup:
			v.Type = r.Type
			v.Records = r.Group.view()
		case RecordDerived:
			v.Value = r.Value.String()
		}
		views = append(views, v)
	}
	return views
}

// MarshalJSON renders the output tree with leaf bytes in hex.
func (o Output) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.view())
}

// MarshalYAML renders the output tree with leaf bytes in hex.
func (o Output) MarshalYAML() (any, error) {
	return o.view(), nil
}

// Format names an output encoding.
type Format string

const (
	FormatBin  Format = "bin"
	FormatHex  Format = "hex"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Ext returns the file extension for f.
func (f Format) Ext() string {
	if f == FormatBin {
		return "bin"
	}
	return string(f)
}

// Encode serializes o in the given format.
func Encode(o Output, f Format) ([]byte, error) {
	switch f {
	case FormatBin, "":
		return o.Bytes(), nil
	case FormatHex:
		return []byte(hex.EncodeToString(o.Bytes()) + "\n"), nil
	case FormatJSON:
		data, err := json.MarshalIndent(o, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		return yaml.Marshal(o)
	}
	return nil, fmt.Errorf("unknown output format %q", f)
}
