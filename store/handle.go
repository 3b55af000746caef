// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"imag.dev/imag/entry"
	"imag.dev/imag/errors"
	"imag.dev/imag/header"
	"imag.dev/imag/id"
	"imag.dev/imag/log"
	"imag.dev/imag/store/hook"
)

// Handle is an exclusive, scoped reference to one Entry, obtained from
// Create, Retrieve or Get and given back with Release. While a Handle
// is live, no other Handle on the same Identifier can be obtained; the
// Store returns InUse to any such attempt instead of blocking.
//
// A Handle's own Insert, Delete and SetContent methods are the
// intended mutation surface: they mark the Handle dirty so Release
// knows to write the Entry back. Mutating through Header() directly
// bypasses that tracking, so callers that need the dirty flag kept
// accurate should prefer the wrapper methods.
type Handle struct {
	store    *Store
	slot     *slot
	released bool
}

// Identifier returns the Identifier this Handle was acquired for.
func (h *Handle) Identifier() id.Identifier {
	ident, _ := id.Parse(h.slot.key, "")
	return ident
}

// Header returns the held Entry's Header.
func (h *Handle) Header() *header.Header {
	return h.slot.cached.Header()
}

// Content returns the held Entry's content body.
func (h *Handle) Content() string {
	return h.slot.cached.Content()
}

// SetContent replaces the held Entry's content body and marks the
// Handle dirty.
func (h *Handle) SetContent(content string) {
	h.slot.cached.SetContent(content)
	h.slot.dirty = true
}

// Insert sets the Header value at path and marks the Handle dirty.
func (h *Handle) Insert(path string, value header.Node) error {
	if err := h.slot.cached.Header().Insert(path, value); err != nil {
		return err
	}
	h.slot.dirty = true
	return nil
}

// Delete removes the Header value at path, if present, and marks the
// Handle dirty if it was.
func (h *Handle) Delete(path string) (header.Node, bool) {
	n, ok := h.slot.cached.Header().Delete(path)
	if ok {
		h.slot.dirty = true
	}
	return n, ok
}

// Dirty reports whether the Entry has been mutated since it was last
// written through to the backend.
func (h *Handle) Dirty() bool {
	return h.slot.dirty
}

func (h *Handle) entry() *entry.Entry {
	return h.slot.cached
}

// Release gives up exclusive ownership of the Entry. If the Handle is
// dirty, Release writes it through the backend first (via Store.Update,
// running pre_update/post_update hooks) before freeing the slot;
// otherwise it runs post_retrieve hooks one final time -- the
// "release phase" read-only check spec.md §4.5 describes, which is how
// a built-in hook like store/hook/linkverify gets a last look at an
// Entry before it stops being exclusively held. Release is idempotent:
// calling it again is a no-op.
func (h *Handle) Release() error {
	const op errors.Op = "Handle.Release"
	if h.released {
		return nil
	}
	h.released = true
	key := h.slot.key

	var releaseErr error
	if h.slot.dirty {
		if err := h.store.Update(h); err != nil {
			releaseErr = errors.E(op, key, err)
		}
	} else {
		ident := h.Identifier()
		if _, err := h.store.hooks.Dispatch(&hook.Context{Position: hook.PostRetrieve, ID: ident, Entry: h.slot.cached}); err != nil {
			log.Error.Printf("Handle.Release %s: post_retrieve: %v", key, err)
			releaseErr = errors.E(op, key, err)
		}
	}

	h.store.registry.release(key)
	h.store.cache.Add(key, &cacheToken{r: h.store.registry, key: key})
	return releaseErr
}

// Flush forces a write-through of a dirty Handle without releasing it,
// for crash-tolerance at a known safe point (spec.md §4.5). It is
// equivalent to Store.Update(h).
func (h *Handle) Flush() error {
	return h.store.Update(h)
}
