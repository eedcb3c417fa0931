// Copyright (c) 2026 The KaitaiFuzz Authors
// SPDX-License-Identifier: MIT

package expr

import "strings"

// Field is a live view of an emitted field. Its value is decoded from the
// current bytes on every read, so in-place rewrites are observed at once.
type Field interface {
	FieldValue() Value
}

type entryKind int

const (
	entryScalar entryKind = iota
	entryField
	entryNested
	entryDeferred
)

type entry struct {
	kind       entryKind
	value      Value
	field      Field
	env        *Env
	expr       Node
	evaluating bool
}

// Env maps ids to scalars, fields, nested environments or deferred
// expressions. Environments nest along attribute ids; the parent link
// backs the _parent and _root path segments.
type Env struct {
	name    string
	parent  *Env
	entries map[string]*entry
	order   []string
}

// NewEnv creates an empty environment. name is used in error messages.
func NewEnv(name string, parent *Env) *Env {
	return &Env{name: name, parent: parent, entries: make(map[string]*entry)}
}

// Name returns the environment's name.
func (e *Env) Name() string { return e.name }

// Parent returns the enclosing environment, nil at the root.
func (e *Env) Parent() *Env { return e.parent }

// Root returns the outermost environment.
func (e *Env) Root() *Env {
	r := e
	for r.parent != nil {
		r = r.parent
	}
	return r
}

func (e *Env) bind(id string, en *entry) {
	if _, ok := e.entries[id]; !ok {
		e.order = append(e.order, id)
	}
	e.entries[id] = en
}

// BindValue binds id to a scalar.
func (e *Env) BindValue(id string, v Value) {
	e.bind(id, &entry{kind: entryScalar, value: v})
}

// BindField binds id to a live field.
func (e *Env) BindField(id string, f Field) {
	e.bind(id, &entry{kind: entryField, field: f})
}

// BindEnv binds id to a nested environment.
func (e *Env) BindEnv(id string, sub *Env) {
	e.bind(id, &entry{kind: entryNested, env: sub})
}

// BindDeferred binds id to an expression evaluated on lookup, against e.
func (e *Env) BindDeferred(id string, n Node) {
	e.bind(id, &entry{kind: entryDeferred, expr: n})
}

// Has reports whether id is bound directly in e.
func (e *Env) Has(id string) bool {
	_, ok := e.entries[id]
	return ok
}

// IDs returns the bound ids in binding order.
func (e *Env) IDs() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// Nested returns the environment bound to id, if id is a composite.
func (e *Env) Nested(id string) (*Env, bool) {
	en, ok := e.entries[id]
	if !ok || en.kind != entryNested {
		return nil, false
	}
	return en.env, true
}

// walk descends all but the last segment of a dotted name and returns the
// environment holding the last segment.
func (e *Env) walk(name string) (*Env, string, error) {
	segs := strings.Split(name, ".")
	cur := e
	for _, seg := range segs[:len(segs)-1] {
		switch seg {
		case "_parent":
			if cur.parent == nil {
				return nil, "", &UnboundNameError{Name: name, Scope: cur.name}
			}
			cur = cur.parent
			continue
		case "_root":
			cur = cur.Root()
			continue
		}
		en, ok := cur.entries[seg]
		if !ok {
			return nil, "", &UnboundNameError{Name: name, Scope: cur.name}
		}
		if en.kind != entryNested {
			return nil, "", &TypeError{Op: name, Message: seg + " is not a composite value"}
		}
		cur = en.env
	}
	return cur, segs[len(segs)-1], nil
}

// Lookup resolves a possibly dotted name against env.
//
// Single-segment names resolve in env itself. Dotted names descend through
// nested environments segment by segment. A deferred terminal is evaluated
// at the point of lookup, against the environment the traversal arrived at,
// so instances may reference fields declared after them once those exist.
func Lookup(name string, env *Env) (Value, error) {
	cur, last, err := env.walk(name)
	if err != nil {
		return Value{}, err
	}
	en, ok := cur.entries[last]
	if !ok {
		return Value{}, &UnboundNameError{Name: name, Scope: cur.name}
	}

	switch en.kind {
	case entryScalar:
		return en.value, nil
	case entryField:
		return en.field.FieldValue(), nil
	case entryNested:
		return Value{}, &TypeError{Op: name, Message: "composite value used as a scalar"}
	}

	// Deferred results are not memoized: a later backpatch may change an
	// input of the expression.
	if en.evaluating {
		return Value{}, ErrCycle
	}
	en.evaluating = true
	defer func() { en.evaluating = false }()
	return Eval(en.expr, cur)
}

// LookupField resolves a dotted name to a live field binding.
func LookupField(name string, env *Env) (Field, error) {
	cur, last, err := env.walk(name)
	if err != nil {
		return nil, err
	}
	en, ok := cur.entries[last]
	if !ok {
		return nil, &UnboundNameError{Name: name, Scope: cur.name}
	}
	if en.kind != entryField {
		return nil, &TypeError{Op: name, Message: "not an emitted field"}
	}
	return en.field, nil
}
