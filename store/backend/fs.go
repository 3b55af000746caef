// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package backend

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"imag.dev/imag/errors"
)

// FS is a Backend rooted at a directory on the local filesystem. Every
// write is atomic: data is written to a temporary file in the same
// directory as the destination, then renamed into place, so a reader
// never observes a partially written file and a crash mid-write never
// corrupts an existing one. This is the same tmp-file-then-rename
// idiom upspin.io/store/storecache uses for its on-disk log.
type FS struct {
	root string
}

// NewFS returns a Backend rooted at root. The directory is created if
// it does not already exist.
func NewFS(root string) (*FS, error) {
	const op errors.Op = "backend.NewFS"
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	return &FS{root: root}, nil
}

func (f *FS) path(key string) string {
	return filepath.Join(f.root, filepath.FromSlash(key))
}

// Exists implements Backend.
func (f *FS) Exists(key string) (bool, error) {
	const op errors.Op = "backend.FS.Exists"
	_, err := os.Stat(f.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.E(op, key, errors.IO, err)
}

// Read implements Backend.
func (f *FS) Read(key string) ([]byte, error) {
	const op errors.Op = "backend.FS.Read"
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.E(op, key, errors.NotFound, errNotFound)
		}
		return nil, errors.E(op, key, errors.IO, err)
	}
	return data, nil
}

// Write implements Backend, writing atomically via a same-directory
// temp file and rename.
func (f *FS) Write(key string, data []byte) error {
	const op errors.Op = "backend.FS.Write"
	dst := f.path(key)
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.E(op, key, errors.IO, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(dst)+"-*")
	if err != nil {
		return errors.E(op, key, errors.IO, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.E(op, key, errors.IO, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.E(op, key, errors.IO, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.E(op, key, errors.IO, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return errors.E(op, key, errors.IO, err)
	}
	return nil
}

// Remove implements Backend.
func (f *FS) Remove(key string) error {
	const op errors.Op = "backend.FS.Remove"
	if err := os.Remove(f.path(key)); err != nil {
		if os.IsNotExist(err) {
			return errors.E(op, key, errors.NotFound, errNotFound)
		}
		return errors.E(op, key, errors.IO, err)
	}
	return nil
}

// Rename implements Backend. It is atomic only when oldKey and newKey
// resolve to the same directory; os.Rename across directories is not
// guaranteed atomic by POSIX, and this implementation does not paper
// over that with a copy-then-delete fallback.
func (f *FS) Rename(oldKey, newKey string) error {
	const op errors.Op = "backend.FS.Rename"
	src, dst := f.path(oldKey), f.path(newKey)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return errors.E(op, oldKey, errors.NotFound, errNotFound)
		}
		return errors.E(op, oldKey, errors.IO, err)
	}
	if _, err := os.Stat(dst); err == nil {
		return errors.E(op, newKey, errors.AlreadyExists, errExists)
	} else if !os.IsNotExist(err) {
		return errors.E(op, newKey, errors.IO, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return errors.E(op, newKey, errors.IO, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return errors.E(op, oldKey, errors.IO, err)
	}
	return nil
}

// Iter implements Backend, walking the directory tree under prefix
// and returning every regular file's slash-separated key, relative to
// root, in lexicographic order.
func (f *FS) Iter(prefix ...string) ([]string, error) {
	const op errors.Op = "backend.FS.Iter"
	start := f.root
	if len(prefix) > 0 {
		start = filepath.Join(append([]string{f.root}, prefix...)...)
	}

	var keys []string
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == start {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		if strings.HasPrefix(filepath.Base(rel), ".tmp-") {
			return nil
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	sort.Strings(keys)
	return keys, nil
}
