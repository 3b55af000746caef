// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hook implements the Store's pre/post interception pipeline:
// eight fixed positions around the CRUD operations, each with an
// ordered list of named aspects, each aspect an ordered list of Hooks
// run in registration order.
//
// There is no hook system in the teacher repo to adapt directly; the
// position/aspect/access-mode model here is grounded on the original
// Rust implementation's hook::position and hook::accessor modules,
// reframed from an enum-dispatched trait object into a Go interface
// plus a registration-time compatibility check.
package hook

import (
	"imag.dev/imag/entry"
	"imag.dev/imag/errors"
	"imag.dev/imag/id"
)

// Position names one of the eight fixed points in the Store's
// operation pipeline.
type Position uint8

const (
	PreCreate Position = iota
	PostCreate
	PreRetrieve
	PostRetrieve
	PreUpdate
	PostUpdate
	PreDelete
	PostDelete
)

var positionNames = map[Position]string{
	PreCreate:    "pre_create",
	PostCreate:   "post_create",
	PreRetrieve:  "pre_retrieve",
	PostRetrieve: "post_retrieve",
	PreUpdate:    "pre_update",
	PostUpdate:   "post_update",
	PreDelete:    "pre_delete",
	PostDelete:   "post_delete",
}

func (p Position) String() string {
	if s, ok := positionNames[p]; ok {
		return s
	}
	return "unknown position"
}

// ParsePosition looks up a Position by its configuration-file name
// (e.g. "pre_create").
func ParsePosition(name string) (Position, error) {
	const op errors.Op = "hook.ParsePosition"
	for p, s := range positionNames {
		if s == name {
			return p, nil
		}
	}
	return 0, errors.E(op, errors.Config, errors.Errorf("unknown hook position %q", name))
}

// isPre reports whether a failure at this position means the backend
// effect has not yet happened.
func (p Position) isPre() bool {
	switch p {
	case PreCreate, PreRetrieve, PreUpdate, PreDelete:
		return true
	}
	return false
}

// AccessMode is the view a Hook declares it needs of the Entry being
// processed.
type AccessMode uint8

const (
	// IDOnly hooks receive only the Identifier being processed.
	IDOnly AccessMode = iota
	// Read hooks receive a read-only view of the Entry.
	Read
	// Mutate hooks receive a mutable view; any change is folded
	// into the live Handle and marks it dirty.
	Mutate
)

// allowed reports whether mode may be registered at pos, per the
// specification's compatibility matrix.
func allowed(pos Position, mode AccessMode) bool {
	switch pos {
	case PreCreate, PreRetrieve, PreDelete, PostDelete:
		return mode == IDOnly
	case PostCreate, PostRetrieve, PreUpdate, PostUpdate:
		return mode == Read || mode == Mutate
	}
	return false
}

// Context is passed to a Hook's Run method. Entry is nil for an
// IDOnly hook.
type Context struct {
	Position Position
	ID       id.Identifier
	Entry    *entry.Entry
}

// Hook is one pipeline stage. Name identifies it for logging and
// config; Mode declares what view of the Entry it needs.
type Hook interface {
	Name() string
	Mode() AccessMode
	Run(ctx *Context) error
}

// Aspect is a named, ordered group of Hooks at a single Position.
type Aspect struct {
	Name  string
	hooks []Hook
}

// Dispatcher holds the eight positions' aspect orderings and
// registered hooks, and runs them in sequence.
type Dispatcher struct {
	aspects map[Position][]*Aspect
}

// NewDispatcher returns a Dispatcher with no aspects configured.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{aspects: make(map[Position][]*Aspect)}
}

// SetAspectOrder declares the ordered aspect names valid at pos, per
// config.hooks.<position>.aspects. It must be called before any
// Register at that position; calling it again replaces the order and
// discards any hooks already registered at pos.
func (d *Dispatcher) SetAspectOrder(pos Position, names []string) {
	list := make([]*Aspect, len(names))
	for i, name := range names {
		list[i] = &Aspect{Name: name}
	}
	d.aspects[pos] = list
}

// Register appends h to the named aspect at pos, in registration
// order. It fails with AccessViolation if h's Mode is not allowed at
// pos, and with Config if aspect was not declared via SetAspectOrder.
func (d *Dispatcher) Register(pos Position, aspect string, h Hook) error {
	const op errors.Op = "hook.Dispatcher.Register"
	if !allowed(pos, h.Mode()) {
		return errors.E(op, errors.AccessViolation,
			errors.Errorf("hook %q: access mode not allowed at %v", h.Name(), pos))
	}
	for _, a := range d.aspects[pos] {
		if a.Name == aspect {
			a.hooks = append(a.hooks, h)
			return nil
		}
	}
	return errors.E(op, errors.Config,
		errors.Errorf("aspect %q not declared for position %v", aspect, pos))
}

// Dispatch runs every hook registered at ctx.Position, in aspect then
// registration order. It reports whether any Mutate-mode hook ran
// (the caller should mark the Handle dirty if so), and the first
// error encountered: a pre-position failure is classified HookAbort
// (the backend effect has not happened), a post-position failure
// HookPostFail (it has).
func (d *Dispatcher) Dispatch(ctx *Context) (dirty bool, err error) {
	const op errors.Op = "hook.Dispatcher.Dispatch"
	pos := ctx.Position
	for _, aspect := range d.aspects[pos] {
		for _, h := range aspect.hooks {
			if h.Mode() == Mutate {
				dirty = true
			}
			if runErr := h.Run(ctx); runErr != nil {
				kind := errors.HookPostFail
				if pos.isPre() {
					kind = errors.HookAbort
				}
				return dirty, errors.E(op, ctx.ID.String(), kind,
					errors.Errorf("hook %q at %v: %v", h.Name(), pos, runErr))
			}
		}
	}
	return dirty, nil
}
