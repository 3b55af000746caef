// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"imag.dev/imag/id"
)

// parseArg parses a command-line path argument such as "notes/hello"
// into an Identifier, with no base set.
func parseArg(s string) (id.Identifier, error) {
	return id.Parse(s, "")
}
