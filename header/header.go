// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package header implements the recursive typed key-value tree used
// as the structured metadata ("front matter") of every entry, along
// with the dotted-path query language described in the specification.
//
// On disk a Header is TOML, read and written with
// github.com/BurntSushi/toml; the in-memory representation is a small
// tagged Node tree (grounded on the original Rust implementation's
// EntryHeader, which wraps a toml::Value) so that typed reads can
// distinguish "absent" from "wrong type" without resorting to
// interface{} type switches at every call site.
package header

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"imag.dev/imag/errors"
)

// Kind identifies which variant a Node holds.
type Kind uint8

// The Header variants, per the specification's data model.
const (
	Null Kind = iota
	Bool
	Integer
	Float
	String
	Datetime
	Array
	Map
)

// Node is one value in the header tree. Its zero value is Null.
type Node struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	t    time.Time
	arr  []Node
	m    map[string]Node
}

// NewNull returns a Null node, representing the absence of a value.
func NewNull() Node { return Node{kind: Null} }

// NewBool returns a Bool node.
func NewBool(b bool) Node { return Node{kind: Bool, b: b} }

// NewInteger returns an Integer node.
func NewInteger(i int64) Node { return Node{kind: Integer, i: i} }

// NewFloat returns a Float node.
func NewFloat(f float64) Node { return Node{kind: Float, f: f} }

// NewString returns a String node.
func NewString(s string) Node { return Node{kind: String, s: s} }

// NewDatetime returns a Datetime node.
func NewDatetime(t time.Time) Node { return Node{kind: Datetime, t: t} }

// NewArray returns an Array node holding the given elements, in order.
func NewArray(items ...Node) Node {
	a := make([]Node, len(items))
	copy(a, items)
	return Node{kind: Array, arr: a}
}

// NewMap returns a Map node holding a copy of the given key-value pairs.
func NewMap(m map[string]Node) Node {
	cp := make(map[string]Node, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Node{kind: Map, m: cp}
}

// Kind reports which variant n holds.
func (n Node) Kind() Kind { return n.kind }

// Bool returns n's bool value, if n is a Bool node.
func (n Node) Bool() (bool, bool) { return n.b, n.kind == Bool }

// Integer returns n's integer value, if n is an Integer node.
func (n Node) Integer() (int64, bool) { return n.i, n.kind == Integer }

// Float returns n's float value, if n is a Float node.
func (n Node) Float() (float64, bool) { return n.f, n.kind == Float }

// StringValue returns n's string value, if n is a String node.
func (n Node) StringValue() (string, bool) { return n.s, n.kind == String }

// Datetime returns n's time value, if n is a Datetime node.
func (n Node) Datetime() (time.Time, bool) { return n.t, n.kind == Datetime }

// Array returns n's elements, if n is an Array node. The returned
// slice must not be modified.
func (n Node) Array() ([]Node, bool) { return n.arr, n.kind == Array }

// Map returns n's entries, if n is a Map node. The returned map must
// not be modified.
func (n Node) Map() (map[string]Node, bool) { return n.m, n.kind == Map }

// Value unwraps n into a plain Go value suitable for type-asserting
// with ReadTyped: bool, int64, float64, string, time.Time, []Node,
// map[string]Node, or nil for a Null node.
func (n Node) Value() interface{} {
	switch n.kind {
	case Bool:
		return n.b
	case Integer:
		return n.i
	case Float:
		return n.f
	case String:
		return n.s
	case Datetime:
		return n.t
	case Array:
		return n.arr
	case Map:
		return n.m
	}
	return nil
}

// Equal reports whether n and other hold the same value.
func (n Node) Equal(other Node) bool {
	if n.kind != other.kind {
		return false
	}
	switch n.kind {
	case Null:
		return true
	case Bool:
		return n.b == other.b
	case Integer:
		return n.i == other.i
	case Float:
		return n.f == other.f
	case String:
		return n.s == other.s
	case Datetime:
		return n.t.Equal(other.t)
	case Array:
		if len(n.arr) != len(other.arr) {
			return false
		}
		for i := range n.arr {
			if !n.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case Map:
		if len(n.m) != len(other.m) {
			return false
		}
		for k, v := range n.m {
			ov, ok := other.m[k]
			if !ok || !v.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// Header is a typed key-value tree, rooted at a Map node, with a
// dotted-path query language: "imag.version" reads the "version" key
// of the "imag" table; numeric path components index into arrays.
type Header struct {
	root Node
}

// New returns an empty Header.
func New() *Header {
	return &Header{root: NewMap(map[string]Node{})}
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Read resolves path left-to-right and returns the sub-tree found
// there, or ok=false if any step is absent.
func (h *Header) Read(path string) (Node, bool) {
	steps := splitPath(path)
	cur := h.root
	for _, step := range steps {
		switch cur.kind {
		case Map:
			next, ok := cur.m[step]
			if !ok {
				return Node{}, false
			}
			cur = next
		case Array:
			idx, err := strconv.Atoi(step)
			if err != nil || idx < 0 || idx >= len(cur.arr) {
				return Node{}, false
			}
			cur = cur.arr[idx]
		default:
			return Node{}, false
		}
	}
	return cur, true
}

// ReadTyped resolves path and type-asserts the result to T. It
// reports HeaderMissing if the path is absent and HeaderType if the
// value is present but not of type T.
func ReadTyped[T any](h *Header, path string) (T, error) {
	const op errors.Op = "Header.ReadTyped"
	var zero T
	node, ok := h.Read(path)
	if !ok {
		return zero, errors.E(op, path, errors.HeaderMissing)
	}
	v, ok := node.Value().(T)
	if !ok {
		return zero, errors.E(op, path, errors.HeaderType)
	}
	return v, nil
}

// Insert resolves path, creating intermediate Map nodes as needed, and
// sets the final component to value. It fails with Invalid if an
// intermediate path component is blocked by a non-container value, or
// if an array index component is out of range (insertion into an
// array may only replace an existing element or append the next one;
// sparse insertion is not permitted).
func (h *Header) Insert(path string, value Node) error {
	const op errors.Op = "Header.Insert"
	steps := splitPath(path)
	if len(steps) == 0 {
		return errors.E(op, path, errors.Invalid, errors.Str("empty path"))
	}
	newRoot, err := insert(h.root, steps, value)
	if err != nil {
		return errors.E(op, path, err)
	}
	h.root = newRoot
	return nil
}

func insert(cur Node, steps []string, value Node) (Node, error) {
	step := steps[0]
	last := len(steps) == 1

	// The root and any intermediate container defaults to a Map if it
	// doesn't exist yet (Null); callers building a fresh Header see this.
	if cur.kind == Null {
		cur = NewMap(map[string]Node{})
	}

	switch cur.kind {
	case Map:
		m := make(map[string]Node, len(cur.m)+1)
		for k, v := range cur.m {
			m[k] = v
		}
		if last {
			m[step] = value
			return Node{kind: Map, m: m}, nil
		}
		child := m[step]
		newChild, err := insert(child, steps[1:], value)
		if err != nil {
			return Node{}, err
		}
		m[step] = newChild
		return Node{kind: Map, m: m}, nil
	case Array:
		idx, err := strconv.Atoi(step)
		if err != nil || idx < 0 || idx > len(cur.arr) {
			return Node{}, errors.E(errors.Invalid, errors.Errorf("array index %q out of range", step))
		}
		arr := make([]Node, len(cur.arr), len(cur.arr)+1)
		copy(arr, cur.arr)
		if last {
			if idx == len(arr) {
				arr = append(arr, value)
			} else {
				arr[idx] = value
			}
			return Node{kind: Array, arr: arr}, nil
		}
		if idx == len(arr) {
			return Node{}, errors.E(errors.Invalid, errors.Errorf("cannot descend into new array index %q", step))
		}
		newChild, err := insert(arr[idx], steps[1:], value)
		if err != nil {
			return Node{}, err
		}
		arr[idx] = newChild
		return Node{kind: Array, arr: arr}, nil
	default:
		return Node{}, errors.E(errors.Invalid, errors.Errorf("path blocked by a %v value", cur.kind))
	}
}

// Delete removes the value at path, returning it if present.
func (h *Header) Delete(path string) (Node, bool) {
	steps := splitPath(path)
	if len(steps) == 0 {
		return Node{}, false
	}
	newRoot, removed, ok := del(h.root, steps)
	if !ok {
		return Node{}, false
	}
	h.root = newRoot
	return removed, true
}

func del(cur Node, steps []string) (Node, Node, bool) {
	step := steps[0]
	last := len(steps) == 1
	switch cur.kind {
	case Map:
		child, ok := cur.m[step]
		if !ok {
			return cur, Node{}, false
		}
		m := make(map[string]Node, len(cur.m))
		for k, v := range cur.m {
			m[k] = v
		}
		if last {
			delete(m, step)
			return Node{kind: Map, m: m}, child, true
		}
		newChild, removed, ok := del(child, steps[1:])
		if !ok {
			return cur, Node{}, false
		}
		m[step] = newChild
		return Node{kind: Map, m: m}, removed, true
	case Array:
		idx, err := strconv.Atoi(step)
		if err != nil || idx < 0 || idx >= len(cur.arr) {
			return cur, Node{}, false
		}
		if last {
			removed := cur.arr[idx]
			arr := make([]Node, 0, len(cur.arr)-1)
			arr = append(arr, cur.arr[:idx]...)
			arr = append(arr, cur.arr[idx+1:]...)
			return Node{kind: Array, arr: arr}, removed, true
		}
		newChild, removed, ok := del(cur.arr[idx], steps[1:])
		if !ok {
			return cur, Node{}, false
		}
		arr := make([]Node, len(cur.arr))
		copy(arr, cur.arr)
		arr[idx] = newChild
		return Node{kind: Array, arr: arr}, removed, true
	}
	return cur, Node{}, false
}

// Root returns the Header's root Map node.
func (h *Header) Root() Node {
	return h.root
}

// Clone returns a Header independent of h: since Insert and Delete
// never mutate a Node in place (each rebuilds the path from the root),
// two Headers may safely share a root until one of them is next
// written to.
func (h *Header) Clone() *Header {
	return &Header{root: h.root}
}

// Marshal serializes the Header as canonical TOML: keys are written in
// lexicographic order at every level, so that repeated
// parse-then-serialize round trips produce byte-identical output.
func (h *Header) Marshal() ([]byte, error) {
	const op errors.Op = "Header.Marshal"
	plain, err := toGo(h.root)
	if err != nil {
		return nil, errors.E(op, err)
	}
	table, ok := plain.(map[string]interface{})
	if !ok {
		return nil, errors.E(op, errors.Invalid, errors.Str("header root is not a table"))
	}
	var buf strings.Builder
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(table); err != nil {
		return nil, errors.E(op, errors.Parse, err)
	}
	return []byte(buf.String()), nil
}

// Unmarshal parses TOML bytes into a fresh Header.
func Unmarshal(data []byte) (*Header, error) {
	const op errors.Op = "header.Unmarshal"
	var table map[string]interface{}
	if err := toml.Unmarshal(data, &table); err != nil {
		return nil, errors.E(op, errors.Parse, err)
	}
	return &Header{root: fromGo(table)}, nil
}

// toGo converts a Node tree into plain Go values suitable for the TOML
// encoder (which sorts map keys itself, giving us the canonical
// ordering the round-trip invariant requires).
func toGo(n Node) (interface{}, error) {
	switch n.kind {
	case Null:
		return nil, nil
	case Bool:
		return n.b, nil
	case Integer:
		return n.i, nil
	case Float:
		return n.f, nil
	case String:
		return n.s, nil
	case Datetime:
		return n.t, nil
	case Array:
		out := make([]interface{}, 0, len(n.arr))
		for _, e := range n.arr {
			v, err := toGo(e)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case Map:
		out := make(map[string]interface{}, len(n.m))
		keys := make([]string, 0, len(n.m))
		for k := range n.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v, err := toGo(n.m[k])
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	}
	return nil, errors.E(errors.Invalid, errors.Errorf("unknown node kind %d", n.kind))
}

// fromGo converts a value produced by the TOML decoder (or built by
// hand) into a Node tree.
func fromGo(v interface{}) Node {
	switch t := v.(type) {
	case nil:
		return NewNull()
	case bool:
		return NewBool(t)
	case int64:
		return NewInteger(t)
	case int:
		return NewInteger(int64(t))
	case float64:
		return NewFloat(t)
	case string:
		return NewString(t)
	case time.Time:
		return NewDatetime(t)
	case []interface{}:
		items := make([]Node, len(t))
		for i, e := range t {
			items[i] = fromGo(e)
		}
		return NewArray(items...)
	case map[string]interface{}:
		m := make(map[string]Node, len(t))
		for k, e := range t {
			m[k] = fromGo(e)
		}
		return Node{kind: Map, m: m}
	}
	return NewNull()
}
