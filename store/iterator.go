// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import "imag.dev/imag/id"

// Iterator walks a snapshot of Identifiers taken when Iter was called;
// Entries created, moved or deleted afterward are not reflected.
type Iterator struct {
	items []id.Identifier
	pos   int
}

// Next returns the next Identifier in lexicographic order, or
// ok=false once the snapshot is exhausted.
func (it *Iterator) Next() (ident id.Identifier, ok bool) {
	if it.pos >= len(it.items) {
		return id.Identifier{}, false
	}
	ident = it.items[it.pos]
	it.pos++
	return ident, true
}

// HandleIterator walks the same snapshot as Iterator, but calls Get
// for each Identifier and hands back a live Handle, releasing the
// previous one first so at most one Handle from this iterator is ever
// live at a time. Entries deleted after the snapshot was taken are
// skipped silently.
type HandleIterator struct {
	store *Store
	ids   *Iterator
	last  *Handle
}

// Next releases the previously returned Handle (if any), then returns
// the next live one. done is true once the snapshot is exhausted, at
// which point h is nil.
func (hi *HandleIterator) Next() (h *Handle, done bool, err error) {
	if hi.last != nil {
		_ = hi.last.Release()
		hi.last = nil
	}
	for {
		ident, ok := hi.ids.Next()
		if !ok {
			return nil, true, nil
		}
		got, found, err := hi.store.Get(ident)
		if err != nil {
			return nil, false, err
		}
		if !found {
			continue
		}
		hi.last = got
		return got, false, nil
	}
}

// Close releases any Handle still held by the iterator, without
// visiting the remainder of the snapshot. It is safe to call more
// than once.
func (hi *HandleIterator) Close() error {
	if hi.last == nil {
		return nil
	}
	h := hi.last
	hi.last = nil
	return h.Release()
}
