// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"imag.dev/imag/errors"
	"imag.dev/imag/store"
)

var extlinkCmd = &cobra.Command{
	Use:   "extlink <id> <url>",
	Short: "Add an external URL link to an entry's imag.content.uri",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		const op errors.Op = "extlink"
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
		return store.AddExternalLink(h, args[1])
	},
}

var extunlinkCmd = &cobra.Command{
	Use:   "extunlink <id> <url>",
	Short: "Remove an external URL link from an entry's imag.content.uri",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		const op errors.Op = "extunlink"
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
		return store.RemoveExternalLink(h, args[1])
	},
}

var extlinksCmd = &cobra.Command{
	Use:   "extlinks <id>",
	Short: "List an entry's external URL links",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		const op errors.Op = "extlinks"
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
		urls, err := store.GetExternalLinks(h)
		if err != nil {
			return err
		}
		for _, u := range urls {
			fmt.Println(u)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extlinkCmd, extunlinkCmd, extlinksCmd)
}
