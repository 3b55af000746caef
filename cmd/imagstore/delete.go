// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import "github.com/spf13/cobra"

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entry, repairing referential integrity first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ident, err := parseArg(args[0])
		if err != nil {
			return err
		}
		return theStore.Delete(ident)
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
