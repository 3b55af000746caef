// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package link implements the internal link subsystem: symmetric
// links between two Entries maintained as an invariant of their
// headers (spec.md §4.7). It operates on already-loaded Entries; the
// two-handle acquisition discipline that keeps this operation atomic
// with respect to the Store's exclusivity protocol lives in
// store.WithTwoMut, which calls into this package once both Entries
// are safely held.
//
// Grounded on the original Rust source's libimagstore/src/store.rs
// link-maintenance helpers (per _INDEX.md), reframed around this
// module's entry.AddLink/RemoveLink primitives rather than re-deriving
// the set-semantics merge here.
package link

import (
	"sort"

	"imag.dev/imag/entry"
	"imag.dev/imag/errors"
	"imag.dev/imag/id"
)

// Add links a and b symmetrically: b's Identifier is added to a's
// imag.links and vice versa. It is idempotent and fails with
// LinkIntegrity if a and b are the same entry.
func Add(a, b *entry.Entry) error {
	const op errors.Op = "link.Add"
	if a.Identifier().Equal(b.Identifier()) {
		return errors.E(op, a.Identifier().String(), errors.LinkIntegrity,
			errors.Str("an entry cannot link to itself"))
	}
	if err := entry.AddLink(a.Header(), b.Identifier().Relative()); err != nil {
		return errors.E(op, err)
	}
	if err := entry.AddLink(b.Header(), a.Identifier().Relative()); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// Remove symmetrically removes any link between a and b. It is
// idempotent: removing a link that does not exist is not an error.
func Remove(a, b *entry.Entry) error {
	const op errors.Op = "link.Remove"
	if err := entry.RemoveLink(a.Header(), b.Identifier().Relative()); err != nil {
		return errors.E(op, err)
	}
	if err := entry.RemoveLink(b.Header(), a.Identifier().Relative()); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// Get returns e's internal links as parsed, base-relative Identifiers,
// in their stored (sorted) order.
func Get(e *entry.Entry) ([]id.Identifier, error) {
	const op errors.Op = "link.Get"
	strs, err := entry.Links(e.Header())
	if err != nil {
		return nil, errors.E(op, err)
	}
	out := make([]id.Identifier, 0, len(strs))
	for _, s := range strs {
		ident, err := id.Parse(s, "")
		if err != nil {
			return nil, errors.E(op, e.Identifier().String(), err)
		}
		out = append(out, ident)
	}
	return out, nil
}

// RemoveTarget removes target's Identifier from e's imag.links only
// (a one-sided edit), used when repairing referential integrity for a
// neighbor of an Entry that is being deleted: the deleted Entry no
// longer exists to have its own side of the link removed.
func RemoveTarget(e *entry.Entry, target id.Identifier) error {
	const op errors.Op = "link.RemoveTarget"
	if err := entry.RemoveLink(e.Header(), target.Relative()); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// Order returns a and b's base-relative keys in the fixed
// lexicographic acquisition order the specification requires of any
// operation touching two Identifiers at once (spec.md §4.7), so that
// two concurrent two-party operations over the same pair can never
// deadlock each other by acquiring in opposite orders.
func Order(a, b id.Identifier) (first, second id.Identifier) {
	keys := []string{a.Relative(), b.Relative()}
	sort.Strings(keys)
	if keys[0] == a.Relative() {
		return a, b
	}
	return b, a
}
