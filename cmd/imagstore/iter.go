// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var iterCmd = &cobra.Command{
	Use:   "iter [collection]",
	Short: "List every identifier, or every identifier under a collection",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		it, err := theStore.Iter(args...)
		if err != nil {
			return err
		}
		for {
			ident, ok := it.Next()
			if !ok {
				return nil
			}
			fmt.Println(ident)
		}
	},
}

func init() {
	rootCmd.AddCommand(iterCmd)
}
