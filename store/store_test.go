// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"strings"
	"sync"
	"testing"

	"imag.dev/imag/config"
	"imag.dev/imag/errors"
	"imag.dev/imag/header"
	"imag.dev/imag/id"
	"imag.dev/imag/store/backend"
	"imag.dev/imag/store/hook"
)

func newTestStore(t *testing.T, cfg *config.Config) *Store {
	t.Helper()
	return New(backend.NewMemory(), cfg, nil)
}

func mustID(t *testing.T, collection string, rest ...string) id.Identifier {
	t.Helper()
	ident, err := id.FromComponents(collection, rest...)
	if err != nil {
		t.Fatal(err)
	}
	return ident
}

// Scenario 1: round-trip (spec.md §8).
func TestScenarioRoundTrip(t *testing.T) {
	s := newTestStore(t, nil)
	ident := mustID(t, "notes", "hello")

	h, err := s.Create(ident)
	if err != nil {
		t.Fatal(err)
	}
	h.SetContent("hi\n")
	if err := h.Release(); err != nil {
		t.Fatal(err)
	}

	data, err := s.backend.Read(ident.Relative())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "---\n") {
		t.Errorf("serialized entry does not start with delimiter: %q", data)
	}
	if strings.Count(string(data), "---\n") != 2 {
		t.Errorf("expected exactly two delimiter lines, got %q", data)
	}
	if !strings.HasSuffix(string(data), "hi\n") {
		t.Errorf("expected content to end the file verbatim, got %q", data)
	}

	h2, found, err := s.Get(ident)
	if err != nil || !found {
		t.Fatalf("Get() = %v, %v, %v", h2, found, err)
	}
	if h2.Content() != "hi\n" {
		t.Errorf("Content() = %q, want %q", h2.Content(), "hi\n")
	}
	if err := h2.Release(); err != nil {
		t.Fatal(err)
	}
}

// Scenario 2: implicit create off (spec.md §8).
func TestScenarioImplicitCreateOff(t *testing.T) {
	cfg := config.Default()
	cfg.ImplicitCreate = false
	s := newTestStore(t, cfg)
	ident := mustID(t, "notes", "absent")

	_, err := s.Retrieve(ident)
	if !errors.Is(errors.NotFound, err) {
		t.Fatalf("Retrieve() = %v, want NotFound", err)
	}
	exists, err := s.backend.Exists(ident.Relative())
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("backend should be unchanged after a failed implicit-create retrieve")
	}
}

func TestRetrieveImplicitCreateOn(t *testing.T) {
	cfg := config.Default()
	cfg.ImplicitCreate = true
	s := newTestStore(t, cfg)
	ident := mustID(t, "notes", "auto")

	h, err := s.Retrieve(ident)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Release(); err != nil {
		t.Fatal(err)
	}
	exists, err := s.backend.Exists(ident.Relative())
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("expected implicit-create to have written the entry through")
	}
}

// Scenario 3: exclusive access (spec.md §8). We simulate the two
// threads sequentially since both sides are deterministic: acquire,
// assert the second attempt is rejected, release, assert the retry
// then succeeds.
func TestScenarioExclusiveAccess(t *testing.T) {
	s := newTestStore(t, nil)
	ident := mustID(t, "notes", "x")

	h1, err := s.Create(ident)
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.Retrieve(ident)
	if !errors.Is(errors.InUse, err) {
		t.Fatalf("second Retrieve() = %v, want InUse", err)
	}

	if err := h1.Release(); err != nil {
		t.Fatal(err)
	}

	h2, err := s.Retrieve(ident)
	if err != nil {
		t.Fatalf("Retrieve() after release = %v", err)
	}
	if err := h2.Release(); err != nil {
		t.Fatal(err)
	}
}

// I7: Create/Retrieve/Get/Delete from the same goroutine while a
// Handle to the same id is live also return InUse (DESIGN.md's Open
// Question decision: no reentrant-owner tracking).
func TestExclusiveAccessAppliesToSameGoroutine(t *testing.T) {
	s := newTestStore(t, nil)
	ident := mustID(t, "notes", "self")
	h, err := s.Create(ident)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Release()

	if _, err := s.Create(mustID(t, "notes", "self")); !errors.Is(errors.InUse, err) {
		t.Errorf("Create on same id while held = %v, want InUse", err)
	}
	if _, _, err := s.Get(ident); !errors.Is(errors.InUse, err) {
		t.Errorf("Get while held (same goroutine) = %v, want InUse", err)
	}
	if err := s.Delete(ident); !errors.Is(errors.InUse, err) {
		t.Errorf("Delete while held = %v, want InUse", err)
	}
}

// Scenario 4: symmetric linking (spec.md §8).
func TestScenarioSymmetricLinking(t *testing.T) {
	s := newTestStore(t, nil)
	idA := mustID(t, "notes", "a")
	idB := mustID(t, "notes", "b")

	for _, ident := range []id.Identifier{idA, idB} {
		h, err := s.Create(ident)
		if err != nil {
			t.Fatal(err)
		}
		if err := h.Release(); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.WithTwoMut(idA, idB, AddInternalLink); err != nil {
		t.Fatal(err)
	}

	ha, _, err := s.Get(idA)
	if err != nil {
		t.Fatal(err)
	}
	aLinks, err := GetInternalLinks(ha)
	if err != nil {
		t.Fatal(err)
	}
	if len(aLinks) != 1 || !aLinks[0].Equal(idB) {
		t.Errorf("a.links = %v, want [%v]", aLinks, idB)
	}
	if err := ha.Release(); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(idA); err != nil {
		t.Fatal(err)
	}

	hb, _, err := s.Get(idB)
	if err != nil {
		t.Fatal(err)
	}
	bLinks, err := GetInternalLinks(hb)
	if err != nil {
		t.Fatal(err)
	}
	if len(bLinks) != 0 {
		t.Errorf("b.links = %v, want empty after deleting a", bLinks)
	}
	if err := hb.Release(); err != nil {
		t.Fatal(err)
	}
}

func TestScenarioExternalLinking(t *testing.T) {
	s := newTestStore(t, nil)
	ident := mustID(t, "bookmarks", "a")

	h, err := s.Create(ident)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Release(); err != nil {
		t.Fatal(err)
	}

	h, _, err = s.Get(ident)
	if err != nil {
		t.Fatal(err)
	}
	if err := AddExternalLink(h, "https://example.com/a"); err != nil {
		t.Fatal(err)
	}
	if err := h.Release(); err != nil {
		t.Fatal(err)
	}

	h, _, err = s.Get(ident)
	if err != nil {
		t.Fatal(err)
	}
	urls, err := GetExternalLinks(h)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 1 || urls[0] != "https://example.com/a" {
		t.Errorf("GetExternalLinks() = %v, want [https://example.com/a]", urls)
	}
	if err := RemoveExternalLink(h, "https://example.com/a"); err != nil {
		t.Fatal(err)
	}
	if err := h.Release(); err != nil {
		t.Fatal(err)
	}

	h, _, err = s.Get(ident)
	if err != nil {
		t.Fatal(err)
	}
	urls, err = GetExternalLinks(h)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 0 {
		t.Errorf("GetExternalLinks() = %v, want empty after removal", urls)
	}
	if err := h.Release(); err != nil {
		t.Fatal(err)
	}
}

// Scenario 5: hook abort (spec.md §8).
type refusingHook struct{}

func (refusingHook) Name() string { return "refuse" }
func (refusingHook) Mode() hook.AccessMode { return hook.IDOnly }
func (refusingHook) Run(ctx *hook.Context) error { return errors.Str("refused by policy") }

func TestScenarioHookAbort(t *testing.T) {
	d := hook.NewDispatcher()
	d.SetAspectOrder(hook.PreCreate, []string{"policy"})
	if err := d.Register(hook.PreCreate, "policy", refusingHook{}); err != nil {
		t.Fatal(err)
	}

	s := New(backend.NewMemory(), nil, d)
	ident := mustID(t, "notes", "refused")

	_, err := s.Create(ident)
	if !errors.Is(errors.HookAbort, err) {
		t.Fatalf("Create() = %v, want HookAbort", err)
	}

	exists, err := s.backend.Exists(ident.Relative())
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("backend should be unchanged when a pre_create hook aborts")
	}

	// The slot must have been released, not left held: a Get on the
	// same store finds nothing instead of reporting InUse.
	if _, found, err := s.Get(ident); err != nil || found {
		t.Fatalf("Get() after aborted Create = %v, %v; want false, nil", found, err)
	}

	// Without the refusing hook, the same id can be created.
	s2 := New(backend.NewMemory(), nil, nil)
	h, err := s2.Create(ident)
	if err != nil {
		t.Fatalf("Create() on a fresh store after abort = %v", err)
	}
	if err := h.Release(); err != nil {
		t.Fatal(err)
	}
}

// Scenario 6: iteration order (spec.md §8).
func TestScenarioIterationOrder(t *testing.T) {
	s := newTestStore(t, nil)
	for _, leaf := range []string{"z", "a", "m"} {
		h, err := s.Create(mustID(t, "notes", leaf))
		if err != nil {
			t.Fatal(err)
		}
		if err := h.Release(); err != nil {
			t.Fatal(err)
		}
	}

	it, err := s.Iter("notes")
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for {
		ident, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, ident.Leaf())
	}
	want := []string{"a", "m", "z"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
			break
		}
	}
}

// I5: create; delete restores the store to its prior state.
func TestCreateThenDeleteRestoresState(t *testing.T) {
	s := newTestStore(t, nil)
	ident := mustID(t, "notes", "roundtrip")

	before, err := s.backend.Iter()
	if err != nil {
		t.Fatal(err)
	}

	h, err := s.Create(ident)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Release(); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ident); err != nil {
		t.Fatal(err)
	}

	after, err := s.backend.Iter()
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != len(after) {
		t.Errorf("backend key count changed: before=%v after=%v", before, after)
	}
}

// I6: retrieve with no mutation does not modify the backend.
func TestRetrieveWithoutMutationDoesNotRewrite(t *testing.T) {
	s := newTestStore(t, nil)
	ident := mustID(t, "notes", "untouched")

	h, err := s.Create(ident)
	if err != nil {
		t.Fatal(err)
	}
	h.SetContent("original\n")
	if err := h.Release(); err != nil {
		t.Fatal(err)
	}
	before, err := s.backend.Read(ident.Relative())
	if err != nil {
		t.Fatal(err)
	}

	h2, found, err := s.Get(ident)
	if err != nil || !found {
		t.Fatalf("Get() = %v, %v, %v", h2, found, err)
	}
	if h2.Dirty() {
		t.Error("a freshly retrieved Handle should not start dirty")
	}
	if err := h2.Release(); err != nil {
		t.Fatal(err)
	}

	after, err := s.backend.Read(ident.Relative())
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Errorf("backend content changed across a read-only retrieve/release:\nbefore=%q\nafter=%q", before, after)
	}
}

func TestDeleteMissingIsNotFound(t *testing.T) {
	s := newTestStore(t, nil)
	err := s.Delete(mustID(t, "notes", "never-existed"))
	if !errors.Is(errors.NotFound, err) {
		t.Errorf("Delete() = %v, want NotFound", err)
	}
}

func TestDeleteWhileHeldIsInUse(t *testing.T) {
	s := newTestStore(t, nil)
	ident := mustID(t, "notes", "held")
	h, err := s.Create(ident)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Release()

	if err := s.Delete(ident); !errors.Is(errors.InUse, err) {
		t.Errorf("Delete() while held = %v, want InUse", err)
	}
}

func TestConcurrentCreateOnlyOneWins(t *testing.T) {
	s := newTestStore(t, nil)
	ident := mustID(t, "notes", "race")

	const n = 8
	var wg sync.WaitGroup
	results := make(chan error, n)
	var mu sync.Mutex
	var handles []*Handle
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := s.Create(ident)
			if err == nil {
				mu.Lock()
				handles = append(handles, h)
				mu.Unlock()
			}
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, inUse, alreadyExists int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(errors.InUse, err):
			inUse++
		case errors.Is(errors.AlreadyExists, err):
			alreadyExists++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1 (got inUse=%d alreadyExists=%d)", successes, inUse, alreadyExists)
	}
	for _, h := range handles {
		h.Release()
	}
}

func TestMergeDefaultHeaderAppliesOnCreate(t *testing.T) {
	cfg := config.Default()
	frag := header.New()
	if err := frag.Insert("diary.kind", header.NewString("personal")); err != nil {
		t.Fatal(err)
	}
	cfg.DefaultFileHeader = frag

	s := newTestStore(t, cfg)
	h, err := s.Create(mustID(t, "diary", "today"))
	if err != nil {
		t.Fatal(err)
	}
	defer h.Release()

	v, err := header.ReadTyped[string](h.Header(), "diary.kind")
	if err != nil || v != "personal" {
		t.Errorf("diary.kind = %q, %v, want %q, nil", v, err, "personal")
	}
	if _, ok := h.Header().Read("imag.version"); !ok {
		t.Error("imag.version should still be auto-inserted alongside the merged default header")
	}
}
