// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link

import (
	"imag.dev/imag/entry"
	"imag.dev/imag/errors"
)

// AddExternal adds a normalized absolute URL to e's imag.content.uri.
// Unlike Add, this is a single-entry operation: no second Entry and no
// fixed acquisition order are involved (spec.md §4.7).
func AddExternal(e *entry.Entry, rawURL string) error {
	const op errors.Op = "link.AddExternal"
	if err := entry.AddExternalLink(e.Header(), rawURL); err != nil {
		return errors.E(op, e.Identifier().String(), err)
	}
	return nil
}

// RemoveExternal idempotently removes rawURL's normalized form from
// e's imag.content.uri.
func RemoveExternal(e *entry.Entry, rawURL string) error {
	const op errors.Op = "link.RemoveExternal"
	if err := entry.RemoveExternalLink(e.Header(), rawURL); err != nil {
		return errors.E(op, e.Identifier().String(), err)
	}
	return nil
}

// GetExternal returns e's external links as normalized URL strings, in
// their stored (sorted) order.
func GetExternal(e *entry.Entry) ([]string, error) {
	const op errors.Op = "link.GetExternal"
	urls, err := entry.ExternalLinks(e.Header())
	if err != nil {
		return nil, errors.E(op, e.Identifier().String(), err)
	}
	return urls, nil
}
