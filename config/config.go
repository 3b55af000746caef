// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config parses a Store's store.toml configuration, the
// recognized keys described in spec.md §4.5: whether retrieve may
// implicitly create, a default header fragment merged into every new
// entry, and the hook aspect ordering and per-hook configuration
// fragments for each of the eight hook positions.
package config

import (
	"strings"

	"github.com/BurntSushi/toml"

	"imag.dev/imag/errors"
	"imag.dev/imag/header"
	"imag.dev/imag/store/hook"
)

// Config is the parsed contents of a store.toml file.
type Config struct {
	// ImplicitCreate, when true, makes retrieve on an absent
	// Identifier create it instead of failing.
	ImplicitCreate bool

	// DefaultFileHeader is merged into every newly created entry.
	DefaultFileHeader *header.Header

	// HookAspectOrder gives, per position, the ordered aspect
	// names declared by hooks.<position>.aspects.
	HookAspectOrder map[hook.Position][]string

	// HookAspectConfig gives, per position and aspect, the raw
	// per-hook configuration fragment from
	// hooks.<position>.<aspect>.<name>.
	HookAspectConfig map[hook.Position]map[string]map[string]interface{}
}

// Default returns a Config with every recognized key at its default.
func Default() *Config {
	return &Config{
		DefaultFileHeader: header.New(),
		HookAspectOrder:   make(map[hook.Position][]string),
		HookAspectConfig:  make(map[hook.Position]map[string]map[string]interface{}),
	}
}

type rawDoc struct {
	Store map[string]interface{} `toml:"store"`
}

// Parse decodes a store.toml document. Any key under the top-level
// [store] table other than the ones spec.md §4.5 names is an error,
// matching the teacher's own known-keys-or-error validation style
// (upspin.io/config's valsFromYAML, which rejected any key it didn't
// already have a slot for).
func Parse(data []byte) (*Config, error) {
	const op errors.Op = "config.Parse"

	var doc rawDoc
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, errors.E(op, errors.Config, err)
	}

	cfg := Default()
	for key, v := range doc.Store {
		switch key {
		case "implicit-create":
			b, ok := v.(bool)
			if !ok {
				return nil, errors.E(op, errors.Config,
					errors.Errorf("implicit-create: expected bool, got %T", v))
			}
			cfg.ImplicitCreate = b

		case "default-file-header":
			frag, ok := v.(map[string]interface{})
			if !ok {
				return nil, errors.E(op, errors.Config,
					errors.Errorf("default-file-header: expected table, got %T", v))
			}
			h, err := headerFromMap(frag)
			if err != nil {
				return nil, errors.E(op, err)
			}
			cfg.DefaultFileHeader = h

		case "hooks":
			hooksTable, ok := v.(map[string]interface{})
			if !ok {
				return nil, errors.E(op, errors.Config,
					errors.Errorf("hooks: expected table, got %T", v))
			}
			if err := parseHooks(cfg, hooksTable); err != nil {
				return nil, errors.E(op, err)
			}

		default:
			return nil, errors.E(op, errors.Config, errors.Errorf("unrecognized store key %q", key))
		}
	}
	return cfg, nil
}

func parseHooks(cfg *Config, hooksTable map[string]interface{}) error {
	const op errors.Op = "config.parseHooks"
	for posName, v := range hooksTable {
		pos, err := hook.ParsePosition(posName)
		if err != nil {
			return errors.E(op, err)
		}
		posTable, ok := v.(map[string]interface{})
		if !ok {
			return errors.E(op, errors.Config, errors.Errorf("hooks.%s: expected table, got %T", posName, v))
		}
		for key, val := range posTable {
			if key == "aspects" {
				names, err := stringList(val)
				if err != nil {
					return errors.E(op, errors.Config, errors.Errorf("hooks.%s.aspects: %v", posName, err))
				}
				cfg.HookAspectOrder[pos] = names
				continue
			}
			aspectTable, ok := val.(map[string]interface{})
			if !ok {
				return errors.E(op, errors.Config,
					errors.Errorf("hooks.%s.%s: expected table, got %T", posName, key, val))
			}
			if cfg.HookAspectConfig[pos] == nil {
				cfg.HookAspectConfig[pos] = make(map[string]map[string]interface{})
			}
			cfg.HookAspectConfig[pos][key] = aspectTable
		}
	}
	return nil
}

func stringList(v interface{}) ([]string, error) {
	arr, ok := v.([]interface{})
	if !ok {
		return nil, errors.Errorf("expected array, got %T", v)
	}
	out := make([]string, len(arr))
	for i, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, errors.Errorf("element %d: expected string, got %T", i, item)
		}
		out[i] = s
	}
	return out, nil
}

// headerFromMap converts a raw TOML table into a Header, reusing
// header.Unmarshal so default-file-header gets the same Node typing
// as an on-disk entry header rather than a second ad hoc conversion.
func headerFromMap(m map[string]interface{}) (*header.Header, error) {
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return nil, errors.E(errors.Config, err)
	}
	return header.Unmarshal([]byte(buf.String()))
}
