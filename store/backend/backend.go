// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package backend defines the storage abstraction a Store is built
// on, and provides two implementations: FS, durable storage on a
// local filesystem, and Memory, a non-durable implementation for
// tests and ephemeral stores.
package backend

import "imag.dev/imag/errors"

// Backend is the minimal set of durable operations a Store needs.
// Keys are base-relative, slash-separated identifier strings (see
// id.Identifier.Relative); implementations need not understand their
// structure beyond treating "/" as a hierarchy separator for Iter.
type Backend interface {
	// Exists reports whether key is present.
	Exists(key string) (bool, error)

	// Read returns the bytes stored at key, or a NotFound error.
	Read(key string) ([]byte, error)

	// Write stores data at key, creating it if absent and
	// overwriting it if present. A correct implementation never
	// leaves key holding partial data if Write fails partway
	// through or the process is interrupted.
	Write(key string, data []byte) error

	// Remove deletes key, or returns a NotFound error if absent.
	Remove(key string) error

	// Rename moves the data at oldKey to newKey. It fails with
	// AlreadyExists if newKey is already present, and NotFound if
	// oldKey is absent.
	Rename(oldKey, newKey string) error

	// Iter returns every key under the given prefix components
	// (joined with "/"; no components lists every key) in stable
	// lexicographic order. The result is a snapshot taken at call
	// time, not a live view.
	Iter(prefix ...string) ([]string, error)
}

// errNotFound is returned by implementations for absent keys, wrapped
// with the caller's Op and the key as ID.
var errNotFound = errors.Str("key not present")

// errExists is returned by implementations for an occupied destination.
var errExists = errors.Str("key already present")
