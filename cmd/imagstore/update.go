// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/spf13/cobra"
)

var updateContentFile string

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Replace an entry's content body",
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

		var data []byte
		if updateContentFile == "-" || updateContentFile == "" {
			data, err = readAllStdin()
		} else {
			data, err = os.ReadFile(updateContentFile)
		}
		if err != nil {
			return err
		}
		h.SetContent(string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().StringVar(&updateContentFile, "content", "-", "file to read the new content body from, \"-\" for standard input")
}
