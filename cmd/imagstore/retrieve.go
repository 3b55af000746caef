// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <id>",
	Short: "Get an entry, creating it if absent and implicit-create is enabled",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ident, err := parseArg(args[0])
		if err != nil {
			return err
		}
		h, err := theStore.Retrieve(ident)
		if err != nil {
			return err
		}
		defer h.Release()
		fmt.Print(h.Content())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(retrieveCmd)
}
