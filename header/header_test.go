// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"testing"
	"time"

	"imag.dev/imag/errors"
)

func TestInsertAndRead(t *testing.T) {
	h := New()
	if err := h.Insert("imag.version", NewString("0.1.0")); err != nil {
		t.Fatal(err)
	}
	if err := h.Insert("imag.links", NewArray()); err != nil {
		t.Fatal(err)
	}
	v, err := ReadTyped[string](h, "imag.version")
	if err != nil {
		t.Fatal(err)
	}
	if v != "0.1.0" {
		t.Errorf("ReadTyped = %q, want 0.1.0", v)
	}
	n, ok := h.Read("imag.links")
	if !ok {
		t.Fatal("imag.links should be present")
	}
	arr, ok := n.Array()
	if !ok || len(arr) != 0 {
		t.Errorf("imag.links = %v, want empty array", arr)
	}
}

func TestReadMissingIsHeaderMissing(t *testing.T) {
	h := New()
	_, err := ReadTyped[string](h, "imag.version")
	if !errors.Is(errors.HeaderMissing, err) {
		t.Errorf("expected HeaderMissing, got %v", err)
	}
}

func TestReadWrongTypeIsHeaderType(t *testing.T) {
	h := New()
	h.Insert("imag.version", NewInteger(1))
	_, err := ReadTyped[string](h, "imag.version")
	if !errors.Is(errors.HeaderType, err) {
		t.Errorf("expected HeaderType, got %v", err)
	}
}

func TestInsertPathBlocked(t *testing.T) {
	h := New()
	h.Insert("imag.version", NewString("0.1.0"))
	if err := h.Insert("imag.version.patch", NewInteger(1)); err == nil {
		t.Error("inserting through a String value should fail")
	}
}

func TestArrayIndexInsertNoSparse(t *testing.T) {
	h := New()
	h.Insert("tags", NewArray())
	if err := h.Insert("tags.0", NewString("a")); err != nil {
		t.Fatal(err)
	}
	if err := h.Insert("tags.1", NewString("b")); err != nil {
		t.Fatal(err)
	}
	if err := h.Insert("tags.5", NewString("sparse")); err == nil {
		t.Error("sparse array insertion should fail")
	}
	arr, _ := h.Read("tags")
	items, _ := arr.Array()
	if len(items) != 2 {
		t.Errorf("len(tags) = %d, want 2", len(items))
	}
}

func TestDelete(t *testing.T) {
	h := New()
	h.Insert("imag.version", NewString("0.1.0"))
	removed, ok := h.Delete("imag.version")
	if !ok {
		t.Fatal("Delete should find imag.version")
	}
	v, _ := removed.StringValue()
	if v != "0.1.0" {
		t.Errorf("removed value = %q", v)
	}
	if _, ok := h.Read("imag.version"); ok {
		t.Error("imag.version should be gone after Delete")
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	h := New()
	h.Insert("imag.version", NewString("0.1.0"))
	h.Insert("imag.links", NewArray())
	h.Insert("meta.created", NewDatetime(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
	h.Insert("meta.count", NewInteger(3))
	h.Insert("meta.ratio", NewFloat(0.5))
	h.Insert("meta.flag", NewBool(true))

	data, err := h.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	h2, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed on %q: %v", data, err)
	}
	if !h.Root().Equal(h2.Root()) {
		t.Errorf("round trip mismatch:\n%v\nvs\n%v", h.Root(), h2.Root())
	}

	data2, err := h2.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(data2) {
		t.Errorf("re-marshal not stable:\n%q\nvs\n%q", data, data2)
	}
}

func TestMarshalKeysAreSorted(t *testing.T) {
	h := New()
	h.Insert("imag.version", NewString("0.1.0"))
	h.Insert("imag.links", NewArray())
	data, err := h.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	linksIdx, versionIdx := -1, -1
	for i := 0; i+5 <= len(s); i++ {
		if linksIdx < 0 && s[i:i+5] == "links" {
			linksIdx = i
		}
		if versionIdx < 0 && i+7 <= len(s) && s[i:i+7] == "version" {
			versionIdx = i
		}
	}
	if linksIdx < 0 || versionIdx < 0 || linksIdx > versionIdx {
		t.Errorf("expected links before version in %q", s)
	}
}
