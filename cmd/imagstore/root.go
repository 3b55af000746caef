// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"imag.dev/imag/config"
	"imag.dev/imag/errors"
	"imag.dev/imag/log"
	"imag.dev/imag/store"
	"imag.dev/imag/store/backend"
	"imag.dev/imag/store/hook"
)

var (
	rtp     string
	debug   bool
	verbose bool

	theStore *store.Store
)

var rootCmd = &cobra.Command{
	Use:           "imagstore",
	Short:         "Exercise the imag entry store from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case debug:
			_ = log.SetLevel("debug")
		case verbose:
			_ = log.SetLevel("info")
		default:
			_ = log.SetLevel("error")
		}
		s, err := openStore(rtp)
		if err != nil {
			return err
		}
		theStore = s
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rtp, "rtp", os.Getenv("IMAG_RTP"), "root typed path: the store's base directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose (info-level) logging")
}

// openStore builds a Store rooted at root, loading root/store.toml if
// present and wiring its hook aspect ordering plus the built-in
// link-integrity hook (registered at post_retrieve under the "verify"
// aspect, if that aspect is declared).
func openStore(root string) (*store.Store, error) {
	const op errors.Op = "main.openStore"
	if root == "" {
		return nil, errors.E(op, errors.Config, errors.Str("--rtp (or $IMAG_RTP) must name the store's base directory"))
	}

	b, err := backend.NewFS(root)
	if err != nil {
		return nil, errors.E(op, err)
	}

	cfg := config.Default()
	cfgPath := filepath.Join(root, "store.toml")
	if data, rerr := os.ReadFile(cfgPath); rerr == nil {
		cfg, err = config.Parse(data)
		if err != nil {
			return nil, errors.E(op, cfgPath, err)
		}
	} else if !os.IsNotExist(rerr) {
		return nil, errors.E(op, cfgPath, errors.IO, rerr)
	}

	d := hook.NewDispatcher()
	for pos, names := range cfg.HookAspectOrder {
		d.SetAspectOrder(pos, names)
	}

	s := store.New(b, cfg, d)
	for _, aspect := range cfg.HookAspectOrder[hook.PostRetrieve] {
		if aspect == "verify" {
			if err := s.RegisterLinkVerify("verify"); err != nil {
				return nil, errors.E(op, err)
			}
		}
	}
	return s, nil
}
