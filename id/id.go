// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package id implements the typed, collection-scoped path identifiers
// used to name entries in a store.
//
// An Identifier is an ordered sequence of path components rooted at a
// store base. It is modeled on upspin.io/path's Parsed type — a
// validated, cleaned path with cheap, allocation-free accessors — but
// components are plain path elements rather than mail-address-rooted
// user names, and there is no implicit "user root" concept.
package id

import (
	"path/filepath"
	"strings"

	"imag.dev/imag/errors"
)

// Identifier names an entry within a store. Two Identifiers are equal
// iff their base-relative component sequences are equal; the optional
// base does not participate in equality.
type Identifier struct {
	base       string // absolute store base; "" if unset
	hasBase    bool
	components []string // base-relative components, always non-empty
}

// Separator is the canonical component separator used in the
// base-relative (key) string form, regardless of platform.
const Separator = "/"

// validateComponent rejects empty components, components containing a
// path separator (either platform's), and "." or "..".
func validateComponent(c string) error {
	const op errors.Op = "id.validateComponent"
	if c == "" {
		return errors.E(op, errors.Invalid, errors.Str("empty component"))
	}
	if c == "." || c == ".." {
		return errors.E(op, errors.Invalid, errors.Errorf("component %q is a relative path reference", c))
	}
	if strings.ContainsRune(c, '/') || strings.ContainsRune(c, '\\') {
		return errors.E(op, errors.Invalid, errors.Errorf("component %q contains a path separator", c))
	}
	return nil
}

// FromComponents builds an Identifier from a collection name and any
// number of further path components. The collection is the leading,
// opaque namespace component (e.g. "diary", "notes", "ref").
func FromComponents(collection string, rest ...string) (Identifier, error) {
	const op errors.Op = "id.FromComponents"
	if collection == "" && len(rest) == 0 {
		return Identifier{}, errors.E(op, errors.Invalid, errors.Str("empty identifier"))
	}
	all := append([]string{collection}, rest...)
	for _, c := range all {
		if err := validateComponent(c); err != nil {
			return Identifier{}, errors.E(op, err)
		}
	}
	return Identifier{components: all}, nil
}

// Parse parses a path (either relative, or absolute if it has the
// given base as a prefix) into an Identifier rooted at base. An empty
// base means the path is always treated as relative.
func Parse(path string, base string) (Identifier, error) {
	const op errors.Op = "id.Parse"
	p := filepath.ToSlash(path)
	if base != "" {
		b := filepath.ToSlash(base)
		if p == b {
			return Identifier{}, errors.E(op, errors.Invalid, errors.Str("empty identifier"))
		}
		if strings.HasPrefix(p, b+Separator) {
			p = strings.TrimPrefix(p, b+Separator)
		}
	}
	p = strings.Trim(p, Separator)
	if p == "" {
		return Identifier{}, errors.E(op, errors.Invalid, errors.Str("empty identifier"))
	}
	parts := strings.Split(p, Separator)
	id, err := FromComponents(parts[0], parts[1:]...)
	if err != nil {
		return Identifier{}, errors.E(op, err)
	}
	if base != "" {
		id.base = filepath.ToSlash(base)
		id.hasBase = true
	}
	return id, nil
}

// WithBase returns a copy of id with its base set to b.
func (id Identifier) WithBase(b string) Identifier {
	id.base = filepath.ToSlash(b)
	id.hasBase = true
	return id
}

// WithoutBase returns a copy of id with its base cleared.
func (id Identifier) WithoutBase() Identifier {
	id.base = ""
	id.hasBase = false
	return id
}

// Base returns the Identifier's base and whether one is set.
func (id Identifier) Base() (string, bool) {
	return id.base, id.hasBase
}

// Components returns the base-relative path components. The leading
// element is the collection. The caller must not modify the result.
func (id Identifier) Components() []string {
	return id.components
}

// Collection returns the leading, namespace component.
func (id Identifier) Collection() string {
	if len(id.components) == 0 {
		return ""
	}
	return id.components[0]
}

// Relative returns the canonical base-relative key form, e.g. "notes/hello".
func (id Identifier) Relative() string {
	return strings.Join(id.components, Separator)
}

// Absolute returns the base + relative form, joined with the OS path
// separator, and whether a base is set.
func (id Identifier) Absolute() (string, bool) {
	if !id.hasBase {
		return "", false
	}
	return filepath.Join(append([]string{id.base}, id.components...)...), true
}

// String returns the base-relative form.
func (id Identifier) String() string {
	return id.Relative()
}

// IsInCollection reports whether id's components start with the given
// prefix sequence (e.g. a collection name, or a collection plus a
// sub-path).
func (id Identifier) IsInCollection(prefix ...string) bool {
	if len(prefix) > len(id.components) {
		return false
	}
	for i, p := range prefix {
		if id.components[i] != p {
			return false
		}
	}
	return true
}

// Equal reports whether id and other name the same entry, ignoring
// their bases.
func (id Identifier) Equal(other Identifier) bool {
	return id.Compare(other) == 0
}

// Compare orders Identifiers lexicographically, component by
// component, matching the stable iteration order required of Backend
// implementations.
func (id Identifier) Compare(other Identifier) int {
	a, b := id.components, other.components
	for i := 0; i < len(a) && i < len(b); i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// Parent returns the Identifier with its last component dropped, and
// whether it has a parent (a single-component Identifier has none).
func (id Identifier) Parent() (Identifier, bool) {
	if len(id.components) <= 1 {
		return Identifier{}, false
	}
	p := id
	p.components = append([]string(nil), id.components[:len(id.components)-1]...)
	return p, true
}

// Leaf returns the final path component.
func (id Identifier) Leaf() string {
	return id.components[len(id.components)-1]
}

// Child returns a new Identifier with an additional trailing component.
func (id Identifier) Child(component string) (Identifier, error) {
	const op errors.Op = "id.Child"
	if err := validateComponent(component); err != nil {
		return Identifier{}, errors.E(op, err)
	}
	c := id
	c.components = append(append([]string(nil), id.components...), component)
	return c, nil
}
