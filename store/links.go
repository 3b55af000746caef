// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"imag.dev/imag/errors"
	"imag.dev/imag/id"
	"imag.dev/imag/store/link"
)

// AddInternalLink symmetrically links the Entries held by h1 and h2,
// marking both dirty so a later Release (or Update) writes the
// change through. Both Handles must come from the same Store; typical
// callers obtain them via Store.WithTwoMut, which also guarantees the
// fixed acquisition order spec.md §4.7 requires.
func AddInternalLink(h1, h2 *Handle) error {
	const op errors.Op = "AddInternalLink"
	if err := link.Add(h1.entry(), h2.entry()); err != nil {
		return errors.E(op, err)
	}
	h1.slot.dirty = true
	h2.slot.dirty = true
	return nil
}

// RemoveInternalLink symmetrically removes any link between the
// Entries held by h1 and h2. It is idempotent.
func RemoveInternalLink(h1, h2 *Handle) error {
	const op errors.Op = "RemoveInternalLink"
	if err := link.Remove(h1.entry(), h2.entry()); err != nil {
		return errors.E(op, err)
	}
	h1.slot.dirty = true
	h2.slot.dirty = true
	return nil
}

// GetInternalLinks returns the Identifiers stored in h's Entry's
// imag.links field.
func GetInternalLinks(h *Handle) ([]id.Identifier, error) {
	return link.Get(h.entry())
}

// AddExternalLink adds a normalized absolute URL to the Entry held by
// h, marking h dirty so a later Release (or Update) writes the change
// through. Unlike AddInternalLink, this is local to a single Handle:
// no WithTwoMut is needed (spec.md §4.7).
func AddExternalLink(h *Handle, rawURL string) error {
	const op errors.Op = "AddExternalLink"
	if err := link.AddExternal(h.entry(), rawURL); err != nil {
		return errors.E(op, err)
	}
	h.slot.dirty = true
	return nil
}

// RemoveExternalLink idempotently removes rawURL's normalized form
// from the Entry held by h.
func RemoveExternalLink(h *Handle, rawURL string) error {
	const op errors.Op = "RemoveExternalLink"
	if err := link.RemoveExternal(h.entry(), rawURL); err != nil {
		return errors.E(op, err)
	}
	h.slot.dirty = true
	return nil
}

// GetExternalLinks returns the normalized URLs stored in h's Entry's
// imag.content.uri field.
func GetExternalLinks(h *Handle) ([]string, error) {
	return link.GetExternal(h.entry())
}
