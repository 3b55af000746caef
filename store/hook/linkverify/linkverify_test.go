// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linkverify

import (
	"testing"

	"imag.dev/imag/entry"
	"imag.dev/imag/header"
	"imag.dev/imag/id"
	"imag.dev/imag/store/hook"
)

func testID(t *testing.T) id.Identifier {
	t.Helper()
	i, err := id.FromComponents("notes", "hello")
	if err != nil {
		t.Fatal(err)
	}
	return i
}

func TestNeverFailsOnDanglingLink(t *testing.T) {
	h := header.New()
	h.Insert("imag.links", header.NewArray(header.NewString("notes/missing")))
	e := entry.New(testID(t), h, "")

	checked := false
	hk := New(func(target id.Identifier) (bool, error) {
		checked = true
		if target.Relative() != "notes/missing" {
			t.Errorf("Exists called with %v, want notes/missing", target)
		}
		return false, nil
	})

	err := hk.Run(&hook.Context{Position: hook.PostRetrieve, ID: testID(t), Entry: e})
	if err != nil {
		t.Errorf("linkverify must never fail, got %v", err)
	}
	if !checked {
		t.Error("Exists was never called")
	}
}

func TestNoOpWithoutEntry(t *testing.T) {
	hk := New(func(id.Identifier) (bool, error) {
		t.Fatal("Exists should not be called when ctx.Entry is nil")
		return false, nil
	})
	if err := hk.Run(&hook.Context{Position: hook.PreRetrieve, ID: testID(t)}); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestModeIsRead(t *testing.T) {
	hk := New(func(id.Identifier) (bool, error) { return true, nil })
	if hk.Mode() != hook.Read {
		t.Errorf("Mode() = %v, want Read", hk.Mode())
	}
}
