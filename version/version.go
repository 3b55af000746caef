// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package version identifies the running store implementation's
// semantic version and checks entry header versions for compatibility
// with it, per the specification's imag.version field.
package version

import (
	"github.com/Masterminds/semver/v3"

	"imag.dev/imag/errors"
)

// Current is the semantic version of this store implementation,
// written into the imag.version field of every entry created by it.
const Current = "0.1.0"

// Parse parses s as a semantic version.
func Parse(s string) (*semver.Version, error) {
	const op errors.Op = "version.Parse"
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, errors.E(op, errors.Invalid, err)
	}
	return v, nil
}

// Compatible reports whether an entry stamped with entryVersion may be
// read by this running store. Compatibility follows caret-range
// semantics: entries are compatible if their version is no lower than
// this one and shares its major version, or, for a 0.x running
// version, its minor version too — matching semver's own convention that 0.x minor bumps may contain
// breaking changes. A malformed entryVersion is reported as an error,
// not silently treated as incompatible.
func Compatible(entryVersion string) (bool, error) {
	const op errors.Op = "version.Compatible"
	ev, err := Parse(entryVersion)
	if err != nil {
		return false, errors.E(op, err)
	}
	constraint, err := semver.NewConstraint("^" + Current)
	if err != nil {
		return false, errors.E(op, errors.Invalid, err)
	}
	return constraint.Check(ev), nil
}
