// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

// Package fuzz synthesizes byte streams that conform to a schema.
//
// A Generator walks the schema tree top to bottom, emitting random leaves
// for primitive attributes, recursing into user types, evaluating if guards
// and instances through package expr, and keeping switch-on fields
// consistent with the case they select. When a randomly drawn controlling
// field decodes to no known case, its already emitted bytes are rewritten
// in place to a valid key before the switched attribute is generated.
package fuzz

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/vrthra/KaitaiFuzz/expr"
	"github.com/vrthra/KaitaiFuzz/schema"
)

// Result is the outcome of one generation run.
type Result struct {
	Env    *expr.Env
	Output Output
}

// Generator produces outputs for one schema. A Generator is not safe for
// concurrent use; run one per goroutine with its own random source.
type Generator struct {
	schema *schema.Schema
	opts   Options
	rng    *rand.Rand
	prims  *Primitives
	log    *slog.Logger
}

// New creates a generator for s.
func New(s *schema.Schema, opts Options) *Generator {
	opts = opts.withDefaults()
	return &Generator{
		schema: s,
		opts:   opts,
		rng:    opts.Rand,
		prims:  NewPrimitives(opts.Rand, opts.MaxStrz),
		log:    opts.Logger,
	}
}

// Fuzz generates one output for s.
func Fuzz(s *schema.Schema, opts Options) (Output, error) {
	res, err := New(s, opts).Generate()
	if err != nil {
		return nil, err
	}
	return res.Output, nil
}

// Generate runs the root sequence once. Successive calls continue drawing
// from the same random source.
func (g *Generator) Generate() (*Result, error) {
	if g.schema == nil || g.schema.Root == nil {
		return nil, schema.Errorf("", "schema has no root type")
	}
	root := g.schema.Root
	env, out, err := g.generateSequence(root, root.Name, nil, "", 0)
	if err != nil {
		return nil, err
	}
	return &Result{Env: env, Output: out}, nil
}

func (g *Generator) compile(src string) (expr.Node, error) {
	if g.opts.Cache != nil {
		return g.opts.Cache.Parse(src)
	}
	return expr.Compile(src)
}

func (g *Generator) debug() bool {
	return g.log.Enabled(context.Background(), slog.LevelDebug)
}

// generateSequence emits the attributes of def in order into a fresh
// environment whose parent is parent.
func (g *Generator) generateSequence(def *schema.TypeDef, name string, parent *expr.Env, path string, depth int) (*expr.Env, Output, error) {
	if depth > g.opts.MaxDepth {
		return nil, nil, schema.Errorf(path, "type nesting exceeds %d levels", g.opts.MaxDepth)
	}
	env := expr.NewEnv(name, parent)

	// Instances are bound before any attribute so guards may refer to them,
	// and they may in turn refer to attributes not generated yet.
	for _, inst := range def.Instances {
		n, err := g.compile(inst.Value)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", join(path, inst.ID), err)
		}
		env.BindDeferred(inst.ID, n)
	}

	var out Output
	for i := range def.Seq {
		attr := &def.Seq[i]
		apath := join(path, attr.ID)
		if attr.Repeat != "" {
			return nil, nil, schema.Unsupported(apath, "repeat: "+attr.Repeat)
		}
		if attr.If != "" {
			ok, err := g.guard(attr.If, env, apath)
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				continue
			}
		}
		rec, err := g.generateAttribute(def, attr, env, apath, depth)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, rec)
	}

	if g.opts.EvalInstances {
		for _, inst := range def.Instances {
			v, err := expr.Lookup(inst.ID, env)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", join(path, inst.ID), err)
			}
			out = append(out, Record{ID: inst.ID, Kind: RecordDerived, Value: v})
		}
	}
	return env, out, nil
}

// guard evaluates an if expression against the environment built so far.
func (g *Generator) guard(src string, env *expr.Env, path string) (bool, error) {
	n, err := g.compile(src)
	if err != nil {
		return false, fmt.Errorf("%s: if: %w", path, err)
	}
	v, err := expr.Eval(n, env)
	if err != nil {
		return false, fmt.Errorf("%s: if %q: %w", path, src, err)
	}
	if g.debug() {
		attrs := []any{"path", path, "expr", src, "result", v.Truthy()}
		if rendered, err := expr.Render(n, env); err == nil {
			attrs = append(attrs, "rendered", rendered)
		} else {
			attrs = append(attrs, "render_error", err)
		}
		g.log.Debug("guard", attrs...)
	}
	return v.Truthy(), nil
}

func (g *Generator) generateAttribute(def *schema.TypeDef, attr *schema.Attribute, env *expr.Env, path string, depth int) (Record, error) {
	endian := def.EffectiveEndian(g.schema.Meta.Endian)

	switch attr.Kind {
	case schema.KindContents:
		leaf, err := Contents(attr, path, endian)
		if err != nil {
			return Record{}, err
		}
		env.BindField(attr.ID, leaf)
		return Record{ID: attr.ID, Kind: RecordLeaf, Leaf: leaf}, nil

	case schema.KindRawBytes:
		leaf := g.prims.Raw(attr.Size, endian)
		env.BindField(attr.ID, leaf)
		return Record{ID: attr.ID, Kind: RecordLeaf, Leaf: leaf}, nil

	case schema.KindPrimitive:
		return g.generatePrimitive(def, attr, attr.Prim, env, path, endian)

	case schema.KindNamedType:
		return g.generateNamed(def, attr.ID, attr.Type, env, path, depth)

	case schema.KindSwitch:
		target, err := g.resolveSwitch(def, attr.Switch, env, path)
		if err != nil {
			return Record{}, err
		}
		return g.generateTarget(def, attr, target, env, path, depth, endian)
	}
	return Record{}, schema.Errorf(path, "unknown attribute kind %s", attr.Kind)
}

func (g *Generator) generatePrimitive(def *schema.TypeDef, attr *schema.Attribute, prim schema.Primitive, env *expr.Env, path string, endian schema.Endian) (Record, error) {
	if prim.Kind == schema.PrimStr && !attr.HasSize {
		return Record{}, schema.Errorf(path, "str requires a size")
	}
	enc := attr.Encoding
	if enc == "" {
		enc = g.schema.Meta.Encoding
	}
	leaf, err := g.prims.Generate(prim, attr.Size, attr.HasSize, enc, endian)
	if err != nil {
		var se *schema.SchemaError
		if errors.As(err, &se) && se.Path == "" {
			se.Path = path
			return Record{}, se
		}
		return Record{}, fmt.Errorf("%s: %w", path, err)
	}
	if attr.Enum != "" {
		en, ok := def.ResolveEnum(attr.Enum)
		if !ok {
			return Record{}, schema.Errorf(path, "unknown enum %q", attr.Enum)
		}
		leaf.Enum = attr.Enum
		leaf.enum = en
	}
	env.BindField(attr.ID, leaf)
	return Record{ID: attr.ID, Kind: RecordLeaf, Leaf: leaf}, nil
}

func (g *Generator) generateNamed(def *schema.TypeDef, id, typeName string, env *expr.Env, path string, depth int) (Record, error) {
	sub, ok := def.ResolveType(typeName)
	if !ok {
		return Record{}, schema.Errorf(path, "unknown type %q", typeName)
	}
	subEnv, subOut, err := g.generateSequence(sub, path, env, path, depth+1)
	if err != nil {
		return Record{}, err
	}
	env.BindEnv(id, subEnv)
	return Record{ID: id, Kind: RecordGroup, Type: typeName, Group: subOut}, nil
}

// generateTarget generates a switch case target, a primitive tag or a
// user type name.
func (g *Generator) generateTarget(def *schema.TypeDef, attr *schema.Attribute, target string, env *expr.Env, path string, depth int, endian schema.Endian) (Record, error) {
	if prim, ok := schema.ParsePrimitive(target); ok {
		return g.generatePrimitive(def, attr, prim, env, path, endian)
	}
	return g.generateNamed(def, attr.ID, target, env, path, depth)
}

// choice is a switch case reachable from the consulted key set.
type choice struct {
	key    int64
	name   string
	target string
}

// resolveSwitch returns the target type of a switch. When switch-on names
// an emitted integer field whose value selects no case, the field is
// backpatched to a random valid key first.
func (g *Generator) resolveSwitch(def *schema.TypeDef, sw *schema.Switch, env *expr.Env, path string) (string, error) {
	n, err := g.compile(sw.On)
	if err != nil {
		return "", fmt.Errorf("%s: switch-on: %w", path, err)
	}
	ident, isIdent := n.(*expr.Ident)
	if !isIdent {
		return g.switchOnValue(def, sw, n, env, path)
	}

	field, err := expr.LookupField(ident.Name, env)
	if err != nil {
		var te *expr.TypeError
		if errors.As(err, &te) {
			// Bound, but not an emitted field (an instance or a nested
			// value): select by value without patching.
			return g.switchOnValue(def, sw, n, env, path)
		}
		return "", fmt.Errorf("%s: switch-on %q: %w", path, sw.On, err)
	}
	leaf, ok := field.(*Leaf)
	if !ok || !leaf.prim.IsInteger() {
		return "", schema.Errorf(path, "switch-on %q is not an integer field", sw.On)
	}

	en := leaf.enum
	if en == nil {
		en = g.switchEnum(def, sw)
	}
	width := len(leaf.Bytes)
	signed := leaf.prim.Kind == schema.PrimSigned
	var choices []choice
	for _, c := range g.choices(def, sw, en) {
		if fits(c.key, width, signed) {
			choices = append(choices, c)
		}
	}

	v, err := leaf.Int()
	if err != nil {
		return "", fmt.Errorf("%s: switch-on %q: %w", path, sw.On, err)
	}
	if len(choices) == 0 {
		if t, ok := sw.Target("_"); ok {
			g.log.Debug("switch", "path", path, "on", sw.On, "value", v, "case", "_")
			return t, nil
		}
		return "", schema.Errorf(path, "switch-on %q has no case representable in %d bytes", sw.On, width)
	}
	for _, c := range choices {
		if c.key == v {
			g.log.Debug("switch", "path", path, "on", sw.On, "value", v, "case", c.name, "target", c.target)
			return c.target, nil
		}
	}

	pick := choices[g.rng.IntN(len(choices))]
	before := hex.EncodeToString(leaf.Bytes)
	copy(leaf.Bytes, encodeInt(pick.key, width, leaf.Endian))
	g.log.Debug("backpatch", "path", path, "on", sw.On,
		"from", v, "to", pick.key, "before", before, "after", hex.EncodeToString(leaf.Bytes),
		"case", pick.name, "target", pick.target)
	return pick.target, nil
}

// switchOnValue selects a case from an evaluated switch-on expression.
// There is no field to patch, so a value without a case is an error
// unless a default case exists.
func (g *Generator) switchOnValue(def *schema.TypeDef, sw *schema.Switch, n expr.Node, env *expr.Env, path string) (string, error) {
	val, err := expr.Eval(n, env)
	if err != nil {
		return "", fmt.Errorf("%s: switch-on %q: %w", path, sw.On, err)
	}
	v, ok := val.Int()
	if !ok {
		return "", fmt.Errorf("%s: switch-on %q: %w", path, sw.On,
			&expr.TypeError{Op: "switch-on", Message: "value is " + val.Kind().String()})
	}
	for _, c := range g.choices(def, sw, g.switchEnum(def, sw)) {
		if c.key == v {
			g.log.Debug("switch", "path", path, "on", sw.On, "value", v, "case", c.name, "target", c.target)
			return c.target, nil
		}
	}
	if t, ok := sw.Target("_"); ok {
		g.log.Debug("switch", "path", path, "on", sw.On, "value", v, "case", "_")
		return t, nil
	}
	return "", schema.Errorf(path, "switch-on %q = %d selects no case", sw.On, v)
}

// switchEnum finds the enum consulted by a switch whose controlling field
// declares none: an enum named like the switch-on id, else the enum
// qualifying the case keys (kind::name).
func (g *Generator) switchEnum(def *schema.TypeDef, sw *schema.Switch) *schema.Enum {
	name := sw.On
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if en, ok := def.ResolveEnum(name); ok {
		return en
	}
	for _, c := range sw.Cases {
		if i := strings.LastIndex(c.Key, "::"); i > 0 {
			if en, ok := def.ResolveEnum(c.Key[:i]); ok {
				return en
			}
		}
	}
	return nil
}

// choices lists the keys a switch can select, each with its target. With an
// enum these are the enum keys that have a target; without one they are the
// integer case keys.
func (g *Generator) choices(def *schema.TypeDef, sw *schema.Switch, en *schema.Enum) []choice {
	var out []choice
	if en == nil {
		for _, c := range sw.Cases {
			if k, err := strconv.ParseInt(c.Key, 0, 64); err == nil {
				out = append(out, choice{key: k, name: c.Key, target: c.Type})
			}
		}
		return out
	}
	for _, ev := range en.Values {
		if t, ok := caseTarget(def, sw, en, ev); ok {
			out = append(out, choice{key: ev.Key, name: ev.Name, target: t})
		}
	}
	return out
}

// caseTarget finds the target of one enum member: by integer key, by case
// name, by enum::name, then the default case, then the case name itself
// taken as a type name.
func caseTarget(def *schema.TypeDef, sw *schema.Switch, en *schema.Enum, ev schema.EnumValue) (string, bool) {
	for _, c := range sw.Cases {
		if k, err := strconv.ParseInt(c.Key, 0, 64); err == nil && k == ev.Key {
			return c.Type, true
		}
	}
	if t, ok := sw.Target(ev.Name); ok {
		return t, true
	}
	for _, c := range sw.Cases {
		i := strings.LastIndex(c.Key, "::")
		if i <= 0 || c.Key[i+2:] != ev.Name {
			continue
		}
		if owner, ok := def.ResolveEnum(c.Key[:i]); ok && owner == en {
			return c.Type, true
		}
	}
	if t, ok := sw.Target("_"); ok {
		return t, true
	}
	if _, ok := schema.ParsePrimitive(ev.Name); ok {
		return ev.Name, true
	}
	if _, ok := def.ResolveType(ev.Name); ok {
		return ev.Name, true
	}
	return "", false
}

func join(path, id string) string {
	if path == "" {
		return id
	}
	return path + "." + id
}
