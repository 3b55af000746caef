// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"imag.dev/imag/entry"
	"imag.dev/imag/errors"
)

// verifyCmd acquires an entry through Store.Get and reports whether its
// header satisfies the required-fields and version-compatibility
// checks entry.Validate performs. It never mutates the entry, so the
// Handle is released clean.
var verifyCmd = &cobra.Command{
	Use:   "verify <id>",
	Short: "Check an entry's header against the required-fields rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		const op errors.Op = "verify"
		ident, err := parseArg(args[0])
		if err != nil {
			return err
		}
		h, found, err := theStore.Get(ident)
		if err != nil {
			return err
		}
		if !found {
			return errors.E(op, ident.String(), errors.NotFound)
		}
		defer h.Release()

		e := entry.New(ident, h.Header(), h.Content())
		if err := e.Validate(); err != nil {
			return err
		}
		fmt.Printf("%s: ok\n", ident)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
