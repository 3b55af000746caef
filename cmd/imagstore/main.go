// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Imagstore is a generic exerciser for the entry store: each
// subcommand maps one-to-one to a Store operation and nothing more.
// It carries no domain knowledge of any particular kind of entry.
package main

import (
	"fmt"
	"os"

	"imag.dev/imag/errors"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCode(err)
	}
	return 0
}

// exitCode maps an error's Kind to spec.md §6's exit-code table.
func exitCode(err error) int {
	switch errors.KindOf(err) {
	case errors.NotFound:
		return 2
	case errors.InUse:
		return 3
	case errors.HookAbort:
		return 4
	default:
		return 1
	}
}
