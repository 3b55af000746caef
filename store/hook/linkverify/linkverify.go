// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package linkverify implements a built-in, read-only hook that warns
// when an Entry's imag.links point at an Identifier that no longer
// exists in the backend, without failing the operation.
//
// Grounded on the original Rust implementation's
// libimagstorestdhook/src/linkverify.rs LinkedEntriesExistHook, a
// NonMutableAccess hook that walks an entry's internal links and logs
// a warning (never an error) for any target that doesn't exist.
package linkverify

import (
	"imag.dev/imag/id"
	"imag.dev/imag/log"
	"imag.dev/imag/store/hook"
)

// Name is the hook's registration name.
const Name = "linkverify"

// Hook warns about dangling internal links. Exists is supplied by the
// Store at construction time (rather than linkverify importing store
// directly, which would be a circular dependency) and should report
// whether an Identifier is present in the backend.
type Hook struct {
	Exists func(id.Identifier) (bool, error)
}

// New returns a linkverify Hook backed by the given existence check.
func New(exists func(id.Identifier) (bool, error)) *Hook {
	return &Hook{Exists: exists}
}

// Name implements hook.Hook.
func (h *Hook) Name() string { return Name }

// Mode implements hook.Hook. linkverify never mutates the Entry.
func (h *Hook) Mode() hook.AccessMode { return hook.Read }

// Run implements hook.Hook.
func (h *Hook) Run(ctx *hook.Context) error {
	if ctx.Entry == nil {
		return nil
	}
	links, ok := ctx.Entry.Header().Read("imag.links")
	if !ok {
		return nil
	}
	items, ok := links.Array()
	if !ok {
		return nil
	}
	for _, link := range items {
		s, ok := link.StringValue()
		if !ok {
			continue
		}
		target, err := id.Parse(s, "")
		if err != nil {
			log.Error.Printf("linkverify: %s: malformed link %q: %v", ctx.ID, s, err)
			continue
		}
		found, err := h.Exists(target)
		if err != nil {
			log.Error.Printf("linkverify: %s: checking link %q: %v", ctx.ID, s, err)
			continue
		}
		if !found {
			log.Error.Printf("linkverify: %s: linked entry %q does not exist", ctx.ID, s)
		}
	}
	return nil
}
