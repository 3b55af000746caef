// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package entry

import (
	"net/url"
	"sort"

	"imag.dev/imag/errors"
	"imag.dev/imag/header"
)

const contentURIPath = "imag.content.uri"

// ExternalLinks returns the entry's imag.content.uri field as a slice
// of normalized absolute URL strings. Unlike the internal imag.links
// field, external links are local to a single Entry: no two-party
// acquisition is required to add, remove, or read them (spec.md §4.7).
//
// Grounded on libimaglink/src/external.rs's ExternalLinker trait,
// reframed as a set of URLs rather than the original's single optional
// Link, per spec.md §3/§4.7's "array of normalized absolute URL
// strings".
func ExternalLinks(h *header.Header) ([]string, error) {
	const op errors.Op = "entry.ExternalLinks"
	node, ok := h.Read(contentURIPath)
	if !ok {
		return nil, nil
	}
	items, ok := node.Array()
	if !ok {
		return nil, errors.E(op, errors.HeaderType, errors.Str(contentURIPath))
	}
	out := make([]string, 0, len(items))
	for _, n := range items {
		s, ok := n.StringValue()
		if !ok {
			return nil, errors.E(op, errors.HeaderType, errors.Str(contentURIPath))
		}
		out = append(out, s)
	}
	return out, nil
}

func setExternalLinks(h *header.Header, links []string) error {
	nodes := make([]header.Node, len(links))
	for i, s := range links {
		nodes[i] = header.NewString(s)
	}
	return h.Insert(contentURIPath, header.NewArray(nodes...))
}

// NormalizeURL parses raw as an absolute URL and returns its
// normalized string form, the direct analogue of the original source's
// Link.is_valid (a Url::parse check). It fails with errors.Invalid if
// raw does not parse as an absolute URL (one with both a scheme and a
// host).
func NormalizeURL(raw string) (string, error) {
	const op errors.Op = "entry.NormalizeURL"
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.E(op, errors.Invalid, errors.Str(raw), err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", errors.E(op, errors.Invalid,
			errors.Str(raw), errors.Str("not an absolute URL"))
	}
	return u.String(), nil
}

// AddExternalLink idempotently adds a normalized form of raw to h's
// imag.content.uri, keeping the set sorted and free of duplicates, the
// same set semantics AddLink applies to internal links. It fails with
// errors.Invalid if raw is not a valid absolute URL.
func AddExternalLink(h *header.Header, raw string) error {
	const op errors.Op = "entry.AddExternalLink"
	normalized, err := NormalizeURL(raw)
	if err != nil {
		return errors.E(op, err)
	}
	links, err := ExternalLinks(h)
	if err != nil {
		return errors.E(op, err)
	}
	for _, l := range links {
		if l == normalized {
			return nil
		}
	}
	links = append(links, normalized)
	sort.Strings(links)
	if err := setExternalLinks(h, links); err != nil {
		return errors.E(op, err)
	}
	return nil
}

// RemoveExternalLink idempotently removes raw's normalized form from
// h's imag.content.uri. Removing a URL that was never added, or that
// does not itself parse, is not an error: it simply cannot match
// anything already stored.
func RemoveExternalLink(h *header.Header, raw string) error {
	const op errors.Op = "entry.RemoveExternalLink"
	normalized, err := NormalizeURL(raw)
	if err != nil {
		normalized = raw
	}
	links, err := ExternalLinks(h)
	if err != nil {
		return errors.E(op, err)
	}
	out := links[:0]
	for _, l := range links {
		if l != normalized {
			out = append(out, l)
		}
	}
	if err := setExternalLinks(h, out); err != nil {
		return errors.E(op, err)
	}
	return nil
}
