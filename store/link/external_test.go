// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link

import (
	"testing"

	"imag.dev/imag/errors"
)

func TestAddExternalNormalizesAndPersists(t *testing.T) {
	a := mkEntry(t, "notes", "a")
	if err := AddExternal(a, "https://example.com/a"); err != nil {
		t.Fatal(err)
	}
	urls, err := GetExternal(a)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 1 || urls[0] != "https://example.com/a" {
		t.Errorf("GetExternal() = %v, want [https://example.com/a]", urls)
	}
}

func TestAddExternalRejectsInvalidURL(t *testing.T) {
	a := mkEntry(t, "notes", "a")
	err := AddExternal(a, "bogus")
	if !errors.Is(errors.Invalid, err) {
		t.Errorf("expected errors.Invalid, got %v", err)
	}
}

func TestRemoveExternalIsIdempotentAndLocal(t *testing.T) {
	a := mkEntry(t, "notes", "a")
	b := mkEntry(t, "notes", "b")
	if err := AddExternal(a, "https://example.com/a"); err != nil {
		t.Fatal(err)
	}
	if err := RemoveExternal(a, "https://example.com/a"); err != nil {
		t.Fatal(err)
	}
	if err := RemoveExternal(a, "https://example.com/a"); err != nil {
		t.Fatal(err)
	}
	aURLs, _ := GetExternal(a)
	if len(aURLs) != 0 {
		t.Errorf("GetExternal(a) = %v, want empty", aURLs)
	}
	bURLs, _ := GetExternal(b)
	if len(bURLs) != 0 {
		t.Errorf("external links are single-entry: b must be untouched, got %v", bURLs)
	}
}
