// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"testing"

	"imag.dev/imag/errors"
	"imag.dev/imag/header"
	"imag.dev/imag/store/hook"
)

func TestDefaultIsEmpty(t *testing.T) {
	cfg := Default()
	if cfg.ImplicitCreate {
		t.Error("ImplicitCreate should default to false")
	}
	if len(cfg.HookAspectOrder) != 0 {
		t.Error("HookAspectOrder should default to empty")
	}
}

func TestParseImplicitCreate(t *testing.T) {
	cfg, err := Parse([]byte("[store]\nimplicit-create = true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.ImplicitCreate {
		t.Error("expected ImplicitCreate = true")
	}
}

func TestParseDefaultFileHeader(t *testing.T) {
	data := []byte(`[store]
[store.default-file-header]
[store.default-file-header.meta]
tag = "inbox"
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	v, err := header.ReadTyped[string](cfg.DefaultFileHeader, "meta.tag")
	if err != nil || v != "inbox" {
		t.Errorf("default-file-header meta.tag = %q, %v", v, err)
	}
}

func TestParseHooksAspectsAndConfig(t *testing.T) {
	data := []byte(`[store]
[store.hooks.pre_create]
aspects = ["validation", "indexing"]
[store.hooks.pre_create.validation.requireTag]
strict = true
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	order, ok := cfg.HookAspectOrder[hook.PreCreate]
	if !ok || len(order) != 2 || order[0] != "validation" || order[1] != "indexing" {
		t.Errorf("HookAspectOrder[PreCreate] = %v", order)
	}
	frag, ok := cfg.HookAspectConfig[hook.PreCreate]["validation"]["requireTag"]
	if !ok {
		t.Fatal("expected a config fragment for hooks.pre_create.validation.requireTag")
	}
	table, ok := frag.(map[string]interface{})
	if !ok || table["strict"] != true {
		t.Errorf("requireTag fragment = %v", frag)
	}
}

func TestParseUnrecognizedKeyIsConfigError(t *testing.T) {
	_, err := Parse([]byte("[store]\nbogus = 1\n"))
	if !errors.Is(errors.Config, err) {
		t.Errorf("expected Config error, got %v", err)
	}
}

func TestParseUnknownHookPositionIsConfigError(t *testing.T) {
	data := []byte(`[store]
[store.hooks.not_a_position]
aspects = []
`)
	_, err := Parse(data)
	if !errors.Is(errors.Config, err) {
		t.Errorf("expected Config error for unknown hook position, got %v", err)
	}
}
