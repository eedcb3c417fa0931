// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package schema

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoadFile reads and parses a .ksy schema from disk.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	s, err := ParseSchema(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseSchema parses a schema from its YAML representation.
//
// The document is walked as a yaml.Node tree rather than unmarshalled into
// maps so that seq, instances, cases and enum members keep their declaration
// order.
func ParseSchema(data string) (*Schema, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, Errorf("", "empty document")
		}
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, Errorf("", "top level must be a mapping")
	}

	s := &Schema{Meta: Meta{Endian: EndianBig}}
	if meta := lookupKey(root, "meta"); meta != nil {
		m, err := parseMeta(meta, "meta")
		if err != nil {
			return nil, err
		}
		s.Meta.ID = m.ID
		s.Meta.Title = m.Title
		s.Meta.Encoding = m.Encoding
		if m.Endian != "" {
			s.Meta.Endian = m.Endian
		}
	}

	rootName := s.Meta.ID
	if rootName == "" {
		rootName = "root"
	}
	t, err := parseTypeDef(rootName, root, nil, "")
	if err != nil {
		return nil, err
	}
	// The root's meta.endian is the format default, not a type override.
	t.Endian = ""
	s.Root = t
	return s, nil
}

func parseMeta(node *yaml.Node, path string) (Meta, error) {
	var m Meta
	if node.Kind != yaml.MappingNode {
		return m, Errorf(path, "meta must be a mapping")
	}
	for _, kv := range pairs(node) {
		key, val := kv[0].Value, kv[1]
		switch key {
		case "id":
			m.ID = val.Value
		case "title":
			m.Title = val.Value
		case "encoding":
			m.Encoding = val.Value
		case "endian":
			if val.Kind != yaml.ScalarNode {
				// Calculated endianness (switch-on inside meta) picks the
				// byte order at parse time of the target; not modelled.
				return m, Unsupported(path+".endian", "calculated endianness")
			}
			e, ok := ParseEndian(val.Value)
			if !ok {
				return m, Errorf(path+".endian", "invalid endianness %q (want le or be)", val.Value)
			}
			m.Endian = e
		}
	}
	return m, nil
}

func parseTypeDef(name string, node *yaml.Node, parent *TypeDef, path string) (*TypeDef, error) {
	if node.Kind != yaml.MappingNode {
		return nil, Errorf(path, "type %s must be a mapping", name)
	}
	t := &TypeDef{
		Name:   name,
		Parent: parent,
		Types:  make(map[string]*TypeDef),
		Enums:  make(map[string]*Enum),
	}

	if meta := lookupKey(node, "meta"); meta != nil {
		m, err := parseMeta(meta, join(path, "meta"))
		if err != nil {
			return nil, err
		}
		t.Endian = m.Endian
	}

	if enums := lookupKey(node, "enums"); enums != nil {
		if enums.Kind != yaml.MappingNode {
			return nil, Errorf(join(path, "enums"), "enums must be a mapping")
		}
		for _, kv := range pairs(enums) {
			e, err := parseEnum(kv[0].Value, kv[1], join(path, "enums."+kv[0].Value))
			if err != nil {
				return nil, err
			}
			t.Enums[e.Name] = e
		}
	}

	if types := lookupKey(node, "types"); types != nil {
		if types.Kind != yaml.MappingNode {
			return nil, Errorf(join(path, "types"), "types must be a mapping")
		}
		for _, kv := range pairs(types) {
			sub, err := parseTypeDef(kv[0].Value, kv[1], t, join(path, "types."+kv[0].Value))
			if err != nil {
				return nil, err
			}
			t.Types[sub.Name] = sub
		}
	}

	ids := make(map[string]bool)
	if seq := lookupKey(node, "seq"); seq != nil {
		if seq.Kind != yaml.SequenceNode {
			return nil, Errorf(join(path, "seq"), "seq must be a list")
		}
		for i, item := range seq.Content {
			attr, err := parseAttribute(item, fmt.Sprintf("%s[%d]", join(path, "seq"), i))
			if err != nil {
				return nil, err
			}
			if ids[attr.ID] {
				return nil, Errorf(join(path, attr.ID), "duplicate attribute id")
			}
			ids[attr.ID] = true
			t.Seq = append(t.Seq, attr)
		}
	}

	if instances := lookupKey(node, "instances"); instances != nil {
		if instances.Kind != yaml.MappingNode {
			return nil, Errorf(join(path, "instances"), "instances must be a mapping")
		}
		for _, kv := range pairs(instances) {
			id := kv[0].Value
			ipath := join(path, "instances."+id)
			if ids[id] {
				return nil, Errorf(ipath, "instance id collides with attribute id")
			}
			ids[id] = true
			value := lookupKey(kv[1], "value")
			if value == nil {
				return nil, Unsupported(ipath, "parse instances (pos/io)")
			}
			if value.Kind != yaml.ScalarNode {
				return nil, Errorf(ipath, "value must be an expression")
			}
			t.Instances = append(t.Instances, Instance{ID: id, Value: value.Value})
		}
	}

	return t, nil
}

func parseEnum(name string, node *yaml.Node, path string) (*Enum, error) {
	if node.Kind != yaml.MappingNode {
		return nil, Errorf(path, "enum must be a mapping")
	}
	e := &Enum{Name: name}
	seen := make(map[int64]bool)
	for _, kv := range pairs(node) {
		key, err := strconv.ParseInt(kv[0].Value, 0, 64)
		if err != nil {
			return nil, Errorf(path, "enum key %q is not an integer", kv[0].Value)
		}
		if seen[key] {
			return nil, Errorf(path, "duplicate enum key %d", key)
		}
		seen[key] = true

		var caseName string
		switch kv[1].Kind {
		case yaml.ScalarNode:
			caseName = kv[1].Value
		case yaml.MappingNode:
			// Verbose form: {id: name, doc: ...}
			id := lookupKey(kv[1], "id")
			if id == nil {
				return nil, Errorf(path, "enum key %d has no id", key)
			}
			caseName = id.Value
		default:
			return nil, Errorf(path, "enum key %d has an invalid value", key)
		}
		e.Values = append(e.Values, EnumValue{Key: key, Name: caseName})
	}
	return e, nil
}

func parseAttribute(node *yaml.Node, path string) (Attribute, error) {
	var a Attribute
	if node.Kind != yaml.MappingNode {
		return a, Errorf(path, "attribute must be a mapping")
	}
	idNode := lookupKey(node, "id")
	if idNode == nil || idNode.Value == "" {
		return a, Errorf(path, "attribute has no id")
	}
	a.ID = idNode.Value
	path = path + "(" + a.ID + ")"

	if n := lookupKey(node, "if"); n != nil {
		a.If = n.Value
	}
	if n := lookupKey(node, "repeat"); n != nil {
		a.Repeat = n.Value
	}
	if n := lookupKey(node, "encoding"); n != nil {
		a.Encoding = n.Value
	}
	if n := lookupKey(node, "enum"); n != nil {
		a.Enum = n.Value
	}
	if n := lookupKey(node, "size"); n != nil {
		size, err := strconv.Atoi(n.Value)
		if err != nil || n.Kind != yaml.ScalarNode {
			return a, Unsupported(path+".size", fmt.Sprintf("size expression %q", n.Value))
		}
		if size < 0 {
			return a, Errorf(path+".size", "negative size %d", size)
		}
		a.Size = size
		a.HasSize = true
	}
	if n := lookupKey(node, "size-eos"); n != nil && n.Value == "true" {
		return a, Unsupported(path, "size-eos")
	}

	if contents := lookupKey(node, "contents"); contents != nil {
		a.Kind = KindContents
		switch contents.Kind {
		case yaml.ScalarNode:
			if contents.ShortTag() != "!!str" {
				return a, Unsupported(path+".contents", fmt.Sprintf("%s contents %s", contents.ShortTag(), contents.Value))
			}
			a.Contents = []byte(contents.Value)
		case yaml.SequenceNode:
			var list []any
			if err := contents.Decode(&list); err != nil {
				return a, Errorf(path+".contents", "invalid contents list: %v", err)
			}
			a.ContentsList = list
		default:
			return a, Errorf(path+".contents", "contents must be a string or a list")
		}
		return a, nil
	}

	typ := lookupKey(node, "type")
	if typ == nil {
		if !a.HasSize {
			return a, Errorf(path, "attribute has neither type, contents nor size")
		}
		a.Kind = KindRawBytes
		return a, nil
	}

	switch typ.Kind {
	case yaml.ScalarNode:
		if p, ok := ParsePrimitive(typ.Value); ok {
			a.Kind = KindPrimitive
			a.Prim = p
			if p.Kind == PrimStr && !a.HasSize {
				return a, Errorf(path, "str requires a size")
			}
			if p.Kind == PrimStrz && a.HasSize && a.Size < 1 {
				return a, Errorf(path+".size", "strz size %d leaves no room for the terminator", a.Size)
			}
			return a, nil
		}
		a.Kind = KindNamedType
		a.Type = typ.Value
		return a, nil

	case yaml.MappingNode:
		on := lookupKey(typ, "switch-on")
		if on == nil || on.Value == "" {
			return a, Errorf(path+".type", "switch has no switch-on")
		}
		sw := &Switch{On: on.Value}
		if cases := lookupKey(typ, "cases"); cases != nil {
			if cases.Kind != yaml.MappingNode {
				return a, Errorf(path+".type.cases", "cases must be a mapping")
			}
			for _, kv := range pairs(cases) {
				sw.Cases = append(sw.Cases, Case{Key: kv[0].Value, Type: kv[1].Value})
			}
		}
		a.Kind = KindSwitch
		a.Switch = sw
		return a, nil
	}
	return a, Errorf(path+".type", "type must be a name or a switch")
}

// pairs returns the key/value node pairs of a mapping node in document order.
func pairs(node *yaml.Node) [][2]*yaml.Node {
	var out [][2]*yaml.Node
	for i := 0; i < len(node.Content)-1; i += 2 {
		out = append(out, [2]*yaml.Node{node.Content[i], node.Content[i+1]})
	}
	return out
}

// lookupKey returns the value node for key in a mapping node.
func lookupKey(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(node.Content)-1; i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
