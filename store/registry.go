// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"sync"

	"imag.dev/imag/entry"
)

// numShards is the width of the registry's lock/map striping, grounded
// on upspin.io/dir/server/userlock.go's hashCode%numUserLocks idiom.
// Each shard owns an independent map, so operations on Identifiers
// that hash to different shards never contend.
const numShards = 64

type slotState uint8

const (
	free slotState = iota
	held
)

// slot is the registry's per-Identifier exclusivity and cache record.
// Every field below is only ever touched while the owning shard's
// mutex is held, except cached and dirty, which a Handle may read and
// write freely once it has exclusive ownership of the slot (state ==
// held guarantees no other goroutine can observe or mutate them until
// release puts the slot back to free).
type slot struct {
	key     string
	state   slotState
	cached  *entry.Entry
	dirty   bool
	waiters int // diagnostic count of rejected (non-blocking) acquisitions
}

type shard struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type registry struct {
	shards [numShards]shard
}

func newRegistry() *registry {
	r := &registry{}
	for i := range r.shards {
		r.shards[i].slots = make(map[string]*slot)
	}
	return r
}

// hashCode is upspin.io/dir/server/userlock.go's hashCode, unchanged:
// a simple multiplicative string hash, good enough to spread keys
// evenly across shards without needing a cryptographic hash.
func hashCode(s string) uint64 {
	h := uint64(123479)
	for _, c := range s {
		h = 31*h + uint64(c)
	}
	return h
}

func (r *registry) shardFor(key string) *shard {
	return &r.shards[hashCode(key)%numShards]
}

// acquire returns the slot for key, creating it if absent, and
// transitions it to held. ok is false (and the slot left untouched)
// if it was already held; acquisition never blocks.
func (r *registry) acquire(key string) (*slot, bool) {
	sh := r.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s, ok := sh.slots[key]
	if !ok {
		s = &slot{key: key}
		sh.slots[key] = s
	}
	if s.state == held {
		s.waiters++
		return s, false
	}
	s.state = held
	return s, true
}

// release transitions the slot for key back to free.
func (r *registry) release(key string) {
	sh := r.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if s, ok := sh.slots[key]; ok {
		s.state = free
	}
}

// forget transitions the slot for key back to free and removes it
// from the registry entirely, for use after a successful delete.
func (r *registry) forget(key string) {
	sh := r.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.slots, key)
}

// evictCache clears a Free slot's cached Entry to reclaim memory,
// called when the Store's bounding cache.LRU evicts key. It is a
// no-op if the slot is currently Held (an exclusive Handle must never
// have its cached Entry pulled out from under it) or already gone.
func (r *registry) evictCache(key string) {
	sh := r.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if s, ok := sh.slots[key]; ok && s.state == free {
		s.cached = nil
	}
}

// rename moves the slot at oldKey to newKey. Both keys' shards are
// locked in ascending index order to avoid deadlocking against a
// concurrent rename of the reverse pair.
func (r *registry) rename(oldKey, newKey string) {
	iOld := hashCode(oldKey) % numShards
	iNew := hashCode(newKey) % numShards
	if iOld == iNew {
		sh := &r.shards[iOld]
		sh.mu.Lock()
		defer sh.mu.Unlock()
		if s, ok := sh.slots[oldKey]; ok {
			delete(sh.slots, oldKey)
			s.key = newKey
			sh.slots[newKey] = s
		}
		return
	}
	first, second := iOld, iNew
	if second < first {
		first, second = second, first
	}
	r.shards[first].mu.Lock()
	defer r.shards[first].mu.Unlock()
	r.shards[second].mu.Lock()
	defer r.shards[second].mu.Unlock()
	shOld, shNew := &r.shards[iOld], &r.shards[iNew]
	if s, ok := shOld.slots[oldKey]; ok {
		delete(shOld.slots, oldKey)
		s.key = newKey
		shNew.slots[newKey] = s
	}
}
