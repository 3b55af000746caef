// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package entry

import (
	"testing"

	"imag.dev/imag/errors"
	"imag.dev/imag/header"
)

func TestAddExternalLinkNormalizesAndDeduplicates(t *testing.T) {
	h := header.New()
	if err := AddExternalLink(h, "https://example.com/a"); err != nil {
		t.Fatal(err)
	}
	if err := AddExternalLink(h, "https://example.com/a"); err != nil {
		t.Fatal(err)
	}
	links, err := ExternalLinks(h)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 || links[0] != "https://example.com/a" {
		t.Errorf("ExternalLinks() = %v, want one deduplicated entry", links)
	}
}

func TestAddExternalLinkRejectsRelativeURL(t *testing.T) {
	h := header.New()
	err := AddExternalLink(h, "not-a-url")
	if !errors.Is(errors.Invalid, err) {
		t.Errorf("expected errors.Invalid for a non-absolute URL, got %v", err)
	}
	links, _ := ExternalLinks(h)
	if len(links) != 0 {
		t.Errorf("a rejected URL must not be stored, got %v", links)
	}
}

func TestRemoveExternalLinkIsIdempotent(t *testing.T) {
	h := header.New()
	if err := AddExternalLink(h, "https://example.com/a"); err != nil {
		t.Fatal(err)
	}
	if err := RemoveExternalLink(h, "https://example.com/b"); err != nil {
		t.Fatal(err)
	}
	if err := RemoveExternalLink(h, "https://example.com/a"); err != nil {
		t.Fatal(err)
	}
	if err := RemoveExternalLink(h, "https://example.com/a"); err != nil {
		t.Fatal(err)
	}
	links, err := ExternalLinks(h)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 0 {
		t.Errorf("ExternalLinks() = %v, want empty", links)
	}
}

func TestExternalLinksSortedOrder(t *testing.T) {
	h := header.New()
	if err := AddExternalLink(h, "https://z.example.com"); err != nil {
		t.Fatal(err)
	}
	if err := AddExternalLink(h, "https://a.example.com"); err != nil {
		t.Fatal(err)
	}
	links, err := ExternalLinks(h)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 2 || links[0] != "https://a.example.com" {
		t.Errorf("ExternalLinks() = %v, want sorted order", links)
	}
}
