// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/spf13/cobra"

	"imag.dev/imag/store"
)

var linkCmd = &cobra.Command{
	Use:   "link <id> <id>",
	Short: "Add a symmetric internal link between two entries",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := parseArg(args[0])
		if err != nil {
			return err
		}
		b, err := parseArg(args[1])
		if err != nil {
			return err
		}
		return theStore.WithTwoMut(a, b, store.AddInternalLink)
	},
}

func init() {
	rootCmd.AddCommand(linkCmd)
}
