// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/spf13/cobra"

	"imag.dev/imag/store"
)

var unlinkCmd = &cobra.Command{
	Use:   "unlink <id> <id>",
	Short: "Remove a symmetric internal link between two entries",
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
		return theStore.WithTwoMut(a, b, store.RemoveInternalLink)
	},
}

func init() {
	rootCmd.AddCommand(unlinkCmd)
}
