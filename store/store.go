// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store implements the Store: the central, concurrency-safe
// keyed repository of Entries that every other component in this
// module is built on top of (spec.md §4.5). A Store owns exactly one
// store/backend.Backend, dispatches the eight store/hook.Position
// pipeline points around its CRUD operations, and exposes the
// two-party combinator the internal link subsystem (store/link) needs
// to keep symmetric links consistent.
//
// Grounded on the teacher's overall shape of a long-lived service
// value passed by reference rather than a singleton (see
// upspin.io/dir/server's Server type, which likewise wraps a striped
// lock, a backend and a config), reframed around per-Identifier
// exclusive Handles instead of upspin's request/response RPC methods.
package store

import (
	"sort"

	"github.com/google/uuid"

	"imag.dev/imag/cache"
	"imag.dev/imag/config"
	"imag.dev/imag/entry"
	"imag.dev/imag/errors"
	"imag.dev/imag/header"
	"imag.dev/imag/id"
	"imag.dev/imag/log"
	"imag.dev/imag/store/backend"
	"imag.dev/imag/store/hook"
	"imag.dev/imag/store/hook/linkverify"
	"imag.dev/imag/store/link"
)

// defaultCacheSize bounds how many Free slots' parsed Entries stay
// resident in the registry's LRU at once (SPEC_FULL.md §4.5's
// elaboration: a long iter_get traversal of a huge store must not pin
// every visited Entry in memory forever).
const defaultCacheSize = 1024

// Store is the keyed repository described by spec.md §4.5. The zero
// value is not usable; construct one with New.
type Store struct {
	backend  backend.Backend
	registry *registry
	hooks    *hook.Dispatcher
	cfg      *config.Config
	cache    *cache.LRU
}

// New returns a Store backed by b. cfg defaults to config.Default()
// and hooks to an empty hook.Dispatcher if either is nil.
func New(b backend.Backend, cfg *config.Config, hooks *hook.Dispatcher) *Store {
	if cfg == nil {
		cfg = config.Default()
	}
	if hooks == nil {
		hooks = hook.NewDispatcher()
	}
	return &Store{
		backend:  b,
		registry: newRegistry(),
		hooks:    hooks,
		cfg:      cfg,
		cache:    cache.NewLRU(defaultCacheSize),
	}
}

// Exists reports whether ident names an Entry present in the backend,
// without acquiring it. It is supplied to store/hook/linkverify as the
// existence check that package cannot perform itself without
// importing store (which would cycle).
func (s *Store) Exists(ident id.Identifier) (bool, error) {
	const op errors.Op = "Store.Exists"
	ok, err := s.backend.Exists(ident.Relative())
	if err != nil {
		return false, errors.E(op, ident.String(), errors.IO, err)
	}
	return ok, nil
}

// RegisterLinkVerify binds a store/hook/linkverify.Hook to s's own
// existence check and registers it at post_retrieve under aspect,
// which must already be declared in the hook configuration's aspect
// order for that position.
func (s *Store) RegisterLinkVerify(aspect string) error {
	return s.hooks.Register(hook.PostRetrieve, aspect, linkverify.New(s.Exists))
}

func (s *Store) writeThrough(e *entry.Entry) error {
	const op errors.Op = "Store.writeThrough"
	data, err := e.Serialize()
	if err != nil {
		return errors.E(op, e.Identifier().String(), err)
	}
	if err := s.backend.Write(e.Identifier().Relative(), data); err != nil {
		return errors.E(op, e.Identifier().String(), errors.IO, err)
	}
	return nil
}

func (s *Store) readEntry(ident id.Identifier) (*entry.Entry, error) {
	const op errors.Op = "Store.readEntry"
	key := ident.Relative()
	data, err := s.backend.Read(key)
	if err != nil {
		return nil, errors.E(op, key, errors.IO, err)
	}
	e, err := entry.Parse(ident, data)
	if err != nil {
		return nil, errors.E(op, key, err)
	}
	if err := e.Validate(); err != nil {
		return nil, errors.E(op, key, err)
	}
	return e, nil
}

func (s *Store) newDefaultEntry(ident id.Identifier) (*entry.Entry, error) {
	const op errors.Op = "Store.newDefaultEntry"
	e := entry.New(ident, header.New(), "")
	e.EnsureDefaults()
	if err := mergeDefaultHeader(e.Header(), s.cfg.DefaultFileHeader); err != nil {
		return nil, errors.E(op, ident.String(), err)
	}
	return e, nil
}

// Create makes a new, empty Entry at ident and returns an exclusive
// Handle to it. It fails with AlreadyExists if ident is already
// present in the backend, and with InUse if a Handle to ident is
// already live (checked first, so a held ident reports InUse).
func (s *Store) Create(ident id.Identifier) (*Handle, error) {
	const op errors.Op = "Store.Create"
	key := ident.Relative()
	corr := uuid.NewString()

	sl, ok := s.registry.acquire(key)
	if !ok {
		log.Debug.Printf("Store.Create %s: in use (corr %s)", key, corr)
		return nil, errors.E(op, key, errors.InUse)
	}

	exists, err := s.backend.Exists(key)
	if err != nil {
		s.registry.release(key)
		return nil, errors.E(op, key, errors.IO, err)
	}
	if exists {
		s.registry.release(key)
		return nil, errors.E(op, key, errors.AlreadyExists)
	}

	if _, err := s.hooks.Dispatch(&hook.Context{Position: hook.PreCreate, ID: ident}); err != nil {
		s.registry.release(key)
		return nil, errors.E(op, key, err)
	}

	e, err := s.newDefaultEntry(ident)
	if err != nil {
		s.registry.release(key)
		return nil, errors.E(op, key, err)
	}
	if err := s.writeThrough(e); err != nil {
		s.registry.release(key)
		return nil, errors.E(op, key, err)
	}

	dirty, herr := s.hooks.Dispatch(&hook.Context{Position: hook.PostCreate, ID: ident, Entry: e})
	if herr != nil {
		log.Error.Printf("Store.Create %s: post_create (corr %s): %v", key, corr, herr)
	}

	sl.cached = e
	sl.dirty = dirty
	h := &Handle{store: s, slot: sl}
	if herr != nil {
		return h, errors.E(op, key, herr)
	}
	return h, nil
}

// Retrieve returns an exclusive Handle to ident, creating it with an
// empty, defaulted Entry if absent and the Store's implicit-create
// configuration allows it. It fails with NotFound if ident is absent
// and implicit-create is disabled, and InUse if a Handle is already
// live.
func (s *Store) Retrieve(ident id.Identifier) (*Handle, error) {
	const op errors.Op = "Store.Retrieve"
	key := ident.Relative()

	sl, ok := s.registry.acquire(key)
	if !ok {
		return nil, errors.E(op, key, errors.InUse)
	}

	if _, err := s.hooks.Dispatch(&hook.Context{Position: hook.PreRetrieve, ID: ident}); err != nil {
		s.registry.release(key)
		return nil, errors.E(op, key, err)
	}

	e, created, err := s.loadOrCreate(ident)
	if err != nil {
		s.registry.release(key)
		return nil, errors.E(op, key, err)
	}

	dirty, herr := s.hooks.Dispatch(&hook.Context{Position: hook.PostRetrieve, ID: ident, Entry: e})
	if herr != nil {
		log.Error.Printf("Store.Retrieve %s: post_retrieve: %v", key, herr)
	}

	sl.cached = e
	sl.dirty = created || dirty
	h := &Handle{store: s, slot: sl}
	if herr != nil {
		return h, errors.E(op, key, herr)
	}
	return h, nil
}

func (s *Store) loadOrCreate(ident id.Identifier) (e *entry.Entry, created bool, err error) {
	const op errors.Op = "Store.loadOrCreate"
	key := ident.Relative()
	exists, err := s.backend.Exists(key)
	if err != nil {
		return nil, false, errors.E(op, key, errors.IO, err)
	}
	if !exists {
		if !s.cfg.ImplicitCreate {
			return nil, false, errors.E(op, key, errors.NotFound)
		}
		e, err = s.newDefaultEntry(ident)
		if err != nil {
			return nil, false, errors.E(op, key, err)
		}
		if err := s.writeThrough(e); err != nil {
			return nil, false, errors.E(op, key, err)
		}
		return e, true, nil
	}
	e, err = s.readEntry(ident)
	if err != nil {
		return nil, false, err
	}
	return e, false, nil
}

// Get returns a Handle to ident if it exists, without ever creating
// it. found is false (and h nil) if ident is absent.
func (s *Store) Get(ident id.Identifier) (h *Handle, found bool, err error) {
	const op errors.Op = "Store.Get"
	key := ident.Relative()

	sl, ok := s.registry.acquire(key)
	if !ok {
		return nil, false, errors.E(op, key, errors.InUse)
	}

	if _, err := s.hooks.Dispatch(&hook.Context{Position: hook.PreRetrieve, ID: ident}); err != nil {
		s.registry.release(key)
		return nil, false, errors.E(op, key, err)
	}

	exists, err := s.backend.Exists(key)
	if err != nil {
		s.registry.release(key)
		return nil, false, errors.E(op, key, errors.IO, err)
	}
	if !exists {
		s.registry.forget(key)
		return nil, false, nil
	}

	e, err := s.readEntry(ident)
	if err != nil {
		s.registry.release(key)
		return nil, false, err
	}

	dirty, herr := s.hooks.Dispatch(&hook.Context{Position: hook.PostRetrieve, ID: ident, Entry: e})
	if herr != nil {
		log.Error.Printf("Store.Get %s: post_retrieve: %v", key, herr)
	}

	sl.cached = e
	sl.dirty = dirty
	hnd := &Handle{store: s, slot: sl}
	if herr != nil {
		return hnd, true, errors.E(op, key, herr)
	}
	return hnd, true, nil
}

// Update forces a write-through of h's Entry if it is dirty, running
// pre_update and post_update hooks around the backend write, and
// clears the dirty flag. It is a no-op if h is not dirty. The Handle
// stays live; Update does not release it. This is the Store's
// explicit commit point, and the one Handle.Release's dirty path also
// goes through.
func (s *Store) Update(h *Handle) error {
	const op errors.Op = "Store.Update"
	if !h.slot.dirty {
		return nil
	}
	ident := h.Identifier()
	key := h.slot.key

	if _, err := s.hooks.Dispatch(&hook.Context{Position: hook.PreUpdate, ID: ident, Entry: h.slot.cached}); err != nil {
		return errors.E(op, key, err)
	}
	if err := s.writeThrough(h.slot.cached); err != nil {
		return errors.E(op, key, err)
	}
	h.slot.dirty = false
	if _, err := s.hooks.Dispatch(&hook.Context{Position: hook.PostUpdate, ID: ident, Entry: h.slot.cached}); err != nil {
		return errors.E(op, key, err)
	}
	return nil
}

// Delete removes ident's Entry, first repairing referential integrity
// by removing ident from every neighbor named in its imag.links
// (spec.md §4.7). Every neighbor is acquired before any write happens;
// if any is already held, Delete aborts with InUse and leaves both the
// target Entry and every neighbor's links untouched.
func (s *Store) Delete(ident id.Identifier) error {
	const op errors.Op = "Store.Delete"
	key := ident.Relative()

	sl, ok := s.registry.acquire(key)
	if !ok {
		return errors.E(op, key, errors.InUse)
	}
	committed := false
	defer func() {
		if !committed {
			s.registry.release(key)
		}
	}()

	if _, err := s.hooks.Dispatch(&hook.Context{Position: hook.PreDelete, ID: ident}); err != nil {
		return errors.E(op, key, err)
	}

	exists, err := s.backend.Exists(key)
	if err != nil {
		return errors.E(op, key, errors.IO, err)
	}
	if !exists {
		return errors.E(op, key, errors.NotFound)
	}

	var e *entry.Entry
	if sl.cached != nil {
		e = sl.cached
	} else {
		e, err = s.readEntry(ident)
		if err != nil {
			return errors.E(op, key, err)
		}
	}

	neighbors, err := link.Get(e)
	if err != nil {
		return errors.E(op, key, err)
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].Compare(neighbors[j]) < 0 })

	type repaired struct {
		key string
		e   *entry.Entry
	}
	var heldKeys []string
	releaseHeld := func() {
		for _, k := range heldKeys {
			s.registry.release(k)
		}
	}

	var toWrite []repaired
	for _, n := range neighbors {
		nKey := n.Relative()
		if nKey == key {
			continue
		}
		nSlot, ok := s.registry.acquire(nKey)
		if !ok {
			releaseHeld()
			return errors.E(op, nKey, errors.InUse)
		}
		heldKeys = append(heldKeys, nKey)

		nEntry := nSlot.cached
		if nEntry == nil {
			nEntry, err = s.readEntry(n)
			if err != nil {
				releaseHeld()
				return errors.E(op, nKey, err)
			}
		}
		if err := link.RemoveTarget(nEntry, ident); err != nil {
			releaseHeld()
			return errors.E(op, nKey, err)
		}
		toWrite = append(toWrite, repaired{key: nKey, e: nEntry})
	}

	for _, r := range toWrite {
		if err := s.writeThrough(r.e); err != nil {
			releaseHeld()
			return errors.E(op, r.key, err)
		}
	}

	if err := s.backend.Remove(key); err != nil {
		releaseHeld()
		return errors.E(op, key, errors.IO, err)
	}

	releaseHeld()
	s.registry.forget(key)
	committed = true

	if _, err := s.hooks.Dispatch(&hook.Context{Position: hook.PostDelete, ID: ident}); err != nil {
		return errors.E(op, key, err)
	}
	return nil
}

// MoveTo renames the Entry at from to to, rewriting every neighbor's
// symmetric link to point at the new Identifier. It is used only by
// maintenance tooling, never by core CRUD (spec.md §4.5). Atomicity of
// the underlying rename follows store/backend.Backend.Rename's own
// documented guarantee, which is only within a single directory.
func (s *Store) MoveTo(from, to id.Identifier) error {
	const op errors.Op = "Store.MoveTo"
	fromKey, toKey := from.Relative(), to.Relative()

	if _, ok := s.registry.acquire(fromKey); !ok {
		return errors.E(op, fromKey, errors.InUse)
	}
	defer s.registry.release(fromKey)

	if _, ok := s.registry.acquire(toKey); !ok {
		return errors.E(op, toKey, errors.InUse)
	}
	defer s.registry.release(toKey)

	existsTo, err := s.backend.Exists(toKey)
	if err != nil {
		return errors.E(op, toKey, errors.IO, err)
	}
	if existsTo {
		return errors.E(op, toKey, errors.AlreadyExists)
	}

	if err := s.backend.Rename(fromKey, toKey); err != nil {
		return errors.E(op, fromKey, errors.IO, err)
	}

	e, err := s.readEntry(to)
	if err != nil {
		return errors.E(op, toKey, err)
	}
	neighbors, err := link.Get(e)
	if err != nil {
		return errors.E(op, toKey, err)
	}
	for _, n := range neighbors {
		nKey := n.Relative()
		if nKey == fromKey || nKey == toKey {
			continue
		}
		if _, ok := s.registry.acquire(nKey); !ok {
			return errors.E(op, nKey, errors.InUse)
		}
		nEntry, err := s.readEntry(n)
		if err != nil {
			s.registry.release(nKey)
			return errors.E(op, nKey, err)
		}
		if err := entry.ReplaceLink(nEntry.Header(), fromKey, toKey); err != nil {
			s.registry.release(nKey)
			return errors.E(op, nKey, err)
		}
		if err := s.writeThrough(nEntry); err != nil {
			s.registry.release(nKey)
			return errors.E(op, nKey, err)
		}
		s.registry.release(nKey)
	}

	s.registry.rename(fromKey, toKey)
	return nil
}

// Iter returns a snapshot, lexicographically ordered sequence of every
// Identifier under collection (or every Identifier in the store if
// collection is empty). The snapshot is taken once, at call time;
// Entries created afterward are not reflected, and Entries deleted
// afterward are simply absent when later Get through HandleIterator.
func (s *Store) Iter(collection ...string) (*Iterator, error) {
	const op errors.Op = "Store.Iter"
	keys, err := s.backend.Iter(collection...)
	if err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	items := make([]id.Identifier, 0, len(keys))
	for _, k := range keys {
		ident, err := id.Parse(k, "")
		if err != nil {
			return nil, errors.E(op, k, err)
		}
		items = append(items, ident)
	}
	return &Iterator{items: items}, nil
}

// IterGet is like Iter, but materializes a live Handle for each
// Identifier in turn, releasing the previous Handle before producing
// the next so at most one Handle from this iterator is ever live.
func (s *Store) IterGet(collection ...string) (*HandleIterator, error) {
	it, err := s.Iter(collection...)
	if err != nil {
		return nil, err
	}
	return &HandleIterator{store: s, ids: it}, nil
}

// WithTwoMut acquires Handles to id1 and id2 in a fixed lexicographic
// order (by base-relative key) regardless of the order the caller
// names them, runs f with both held, then releases both -- the
// combinator spec.md §4.7 requires for add/remove internal link so
// that two concurrent two-party operations over the same pair can
// never deadlock each other. Both Identifiers must already exist; it
// fails with NotFound otherwise, and with InUse if either is already
// held.
func (s *Store) WithTwoMut(id1, id2 id.Identifier, f func(h1, h2 *Handle) error) error {
	const op errors.Op = "Store.WithTwoMut"
	first, second := link.Order(id1, id2)

	h1, found1, err := s.Get(first)
	if err != nil {
		return errors.E(op, first.String(), err)
	}
	if !found1 {
		return errors.E(op, first.String(), errors.NotFound)
	}

	h2, found2, err := s.Get(second)
	if err != nil {
		_ = h1.Release()
		return errors.E(op, second.String(), err)
	}
	if !found2 {
		_ = h1.Release()
		return errors.E(op, second.String(), errors.NotFound)
	}

	fErr := f(h1, h2)
	err1 := h1.Release()
	err2 := h2.Release()

	if fErr != nil {
		return errors.E(op, fErr)
	}
	if err1 != nil {
		return errors.E(op, first.String(), err1)
	}
	if err2 != nil {
		return errors.E(op, second.String(), err2)
	}
	return nil
}

// mergeDefaultHeader folds src's fields into dst, the way
// config.Config.DefaultFileHeader is merged into every newly created
// Entry (spec.md §4.5's "default-file-header" key). Map nodes recurse;
// any other value overwrites whatever dst already has at that path.
func mergeDefaultHeader(dst *header.Header, src *header.Header) error {
	return mergeNode(dst, "", src.Root())
}

func mergeNode(dst *header.Header, prefix string, n header.Node) error {
	m, ok := n.Map()
	if !ok {
		if prefix == "" {
			return nil
		}
		return dst.Insert(prefix, n)
	}
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if _, isMap := v.Map(); isMap {
			if err := mergeNode(dst, path, v); err != nil {
				return err
			}
			continue
		}
		if err := dst.Insert(path, v); err != nil {
			return err
		}
	}
	return nil
}

// cacheToken is the value Handle.Release adds to the Store's LRU: on
// eviction it clears the corresponding slot's cached Entry, so a
// long-idle Free slot's parsed form can be reclaimed under memory
// pressure without disturbing a Held slot (OnEviction checks the
// slot's current state before clearing).
type cacheToken struct {
	r   *registry
	key string
}

// OnEviction implements cache.EvictionNotifier.
func (t *cacheToken) OnEviction(interface{}) {
	t.r.evictCache(t.key)
}
