// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package entry

import (
	"sort"

	"imag.dev/imag/errors"
	"imag.dev/imag/header"
)

const linksPath = "imag.links"

// Links returns the entry's imag.links field as a slice of
// base-relative Identifier strings, in the canonical sorted order the
// on-disk representation is required to maintain.
func Links(h *header.Header) ([]string, error) {
	const op errors.Op = "entry.Links"
	node, ok := h.Read(linksPath)
	if !ok {
		return nil, nil
	}
	items, ok := node.Array()
	if !ok {
		return nil, errors.E(op, errors.HeaderType, errors.Str(linksPath))
	}
	out := make([]string, 0, len(items))
	for _, n := range items {
		s, ok := n.StringValue()
		if !ok {
			return nil, errors.E(op, errors.HeaderType, errors.Str(linksPath))
		}
		out = append(out, s)
	}
	return out, nil
}

func setLinks(h *header.Header, links []string) error {
	nodes := make([]header.Node, len(links))
	for i, s := range links {
		nodes[i] = header.NewString(s)
	}
	return h.Insert(linksPath, header.NewArray(nodes...))
}

// AddLink idempotently adds target to h's imag.links, keeping the set
// sorted and free of duplicates (spec invariants I2/I3: set semantics,
// canonical sorted array).
func AddLink(h *header.Header, target string) error {
	const op errors.Op = "entry.AddLink"
	links, err := Links(h)
	if err != nil {
		return errors.E(op, err)
	}
	for _, l := range links {
		if l == target {
			return nil
		}
	}
	links = append(links, target)
	sort.Strings(links)
	if err := setLinks(h, links); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// RemoveLink idempotently removes target from h's imag.links.
func RemoveLink(h *header.Header, target string) error {
	const op errors.Op = "entry.RemoveLink"
	links, err := Links(h)
	if err != nil {
		return errors.E(op, err)
	}
	out := links[:0]
	for _, l := range links {
		if l != target {
			out = append(out, l)
		}
	}
	if err := setLinks(h, out); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// ReplaceLink substitutes oldTarget with newTarget in h's imag.links,
// preserving sorted order. It is a no-op if oldTarget is absent.
func ReplaceLink(h *header.Header, oldTarget, newTarget string) error {
	const op errors.Op = "entry.ReplaceLink"
	links, err := Links(h)
	if err != nil {
		return errors.E(op, err)
	}
	changed := false
	for i, l := range links {
		if l == oldTarget {
			links[i] = newTarget
			changed = true
		}
	}
	if !changed {
		return nil
	}
	sort.Strings(links)
	if err := setLinks(h, links); err != nil {
		return errors.E(op, err)
	}
	return nil
}
