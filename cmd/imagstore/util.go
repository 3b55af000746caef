// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"os"
)

// readAllStdin reads the whole of standard input, for subcommands that
// accept a new content body on stdin by default.
func readAllStdin() ([]byte, error) {
	return io.ReadAll(os.Stdin)
}
