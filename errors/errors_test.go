// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package errors

import (
	"strings"
	"testing"
)

func TestE(t *testing.T) {
	err := E(Op("Store.Create"), "notes/hello", AlreadyExists)
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("E did not return *Error, got %T", err)
	}
	if e.Op != "Store.Create" || e.ID != "notes/hello" || e.Kind != AlreadyExists {
		t.Fatalf("unexpected fields: %+v", e)
	}
}

func TestKindPromotion(t *testing.T) {
	inner := E(Op("Backend.Write"), IO, Str("disk full"))
	outer := E(Op("Store.Create"), "notes/hello", inner)
	if KindOf(outer) != IO {
		t.Fatalf("expected promoted Kind IO, got %v", KindOf(outer))
	}
	if !Is(IO, outer) {
		t.Fatalf("Is(IO, outer) should be true")
	}
}

func TestErrorString(t *testing.T) {
	err := E(Op("Store.Create"), "notes/hello", AlreadyExists)
	msg := err.Error()
	for _, want := range []string{"Store.Create", "notes/hello", "already exists"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error string %q missing %q", msg, want)
		}
	}
}

func TestErrorChain(t *testing.T) {
	cause := Str("disk full")
	inner := E(Op("Backend.Write"), IO, cause)
	outer := E(Op("Store.Create"), "notes/hello", inner)
	msg := outer.Error()
	if !strings.Contains(msg, "Store.Create") || !strings.Contains(msg, "Backend.Write") {
		t.Fatalf("chained error missing an op: %q", msg)
	}
	if !strings.Contains(msg, "disk full") {
		t.Fatalf("chained error missing root cause: %q", msg)
	}
}

func TestMatch(t *testing.T) {
	got := E(Op("Store.Delete"), "notes/x", InUse)
	if !Match(E(InUse), got) {
		t.Errorf("Match should ignore unset fields on want")
	}
	if Match(E(NotFound), got) {
		t.Errorf("Match should fail on differing Kind")
	}
}

func TestDuplicateIDSuppressed(t *testing.T) {
	inner := E(Op("Backend.Read"), "notes/hello", NotFound)
	outer := E(Op("Store.Retrieve"), "notes/hello", inner)
	e := outer.(*Error)
	inE := e.Err.(*Error)
	if inE.ID != "" {
		t.Errorf("expected duplicate ID to be suppressed on inner error, got %q", inE.ID)
	}
}
