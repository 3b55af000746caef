// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package backend

import (
	"sort"
	"strings"
	"sync"

	"imag.dev/imag/errors"
)

// Memory is a non-durable Backend backed by a map, grounded on
// upspin.io/store/inprocess's map-plus-mutex shape. It is intended for
// tests and for Stores that are deliberately ephemeral.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory Backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Exists implements Backend.
func (m *Memory) Exists(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// Read implements Backend.
func (m *Memory) Read(key string) ([]byte, error) {
	const op errors.Op = "backend.Memory.Read"
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, errors.E(op, key, errors.NotFound, errNotFound)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Write implements Backend.
func (m *Memory) Write(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.data[key] = cp
	return nil
}

// Remove implements Backend.
func (m *Memory) Remove(key string) error {
	const op errors.Op = "backend.Memory.Remove"
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; !ok {
		return errors.E(op, key, errors.NotFound, errNotFound)
	}
	delete(m.data, key)
	return nil
}

// Rename implements Backend.
func (m *Memory) Rename(oldKey, newKey string) error {
	const op errors.Op = "backend.Memory.Rename"
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[oldKey]
	if !ok {
		return errors.E(op, oldKey, errors.NotFound, errNotFound)
	}
	if _, ok := m.data[newKey]; ok {
		return errors.E(op, newKey, errors.AlreadyExists, errExists)
	}
	m.data[newKey] = data
	delete(m.data, oldKey)
	return nil
}

// Iter implements Backend.
func (m *Memory) Iter(prefix ...string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := strings.Join(prefix, "/")
	var keys []string
	for k := range m.data {
		if p == "" || k == p || strings.HasPrefix(k, p+"/") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
