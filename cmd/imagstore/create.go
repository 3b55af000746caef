// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/spf13/cobra"
)

var createContentFile string

var createCmd = &cobra.Command{
	Use:   "create <id>",
	Short: "Create a new, empty entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ident, err := parseArg(args[0])
		if err != nil {
			return err
		}
		h, err := theStore.Create(ident)
		if err != nil {
			return err
		}
		if createContentFile != "" {
			data, err := os.ReadFile(createContentFile)
			if err != nil {
				_ = h.Release()
				return err
			}
			h.SetContent(string(data))
		}
		return h.Release()
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().StringVar(&createContentFile, "content", "", "file to read the entry's content body from")
}
