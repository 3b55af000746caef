// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"imag.dev/imag/errors"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print an entry's content, if it exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		const op errors.Op = "get"
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
		fmt.Print(h.Content())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
