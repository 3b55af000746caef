// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors defines the error handling used throughout imag.
// It follows the shape of upspin.io/errors: a single Error type
// carrying an operation name, a coarse Kind, an optional Identifier
// string, and a wrapped cause, built with a variadic constructor so
// callers only set the fields that apply.
package errors

import (
	"bytes"
	"fmt"
	"runtime"
)

// Op describes an operation, usually the method receiving the error,
// such as "Store.Create" or "Header.Insert".
type Op string

// Kind classifies the error so callers (notably the CLI's exit-code
// mapping) can act on it without string-matching the message.
type Kind uint8

// Kinds of errors, matching the taxonomy in the specification.
const (
	Other         Kind = iota // Unclassified.
	IO                        // Backend I/O failure.
	NotFound                  // Entry absent where required.
	AlreadyExists             // Creation collision.
	InUse                     // Exclusivity violated.
	Parse                     // Malformed on-disk entry.
	HeaderType                // Typed read mismatch.
	HeaderMissing             // Required field absent.
	HookAbort                 // Pre-hook refused.
	HookPostFail              // Post-hook failed after effect.
	LinkIntegrity             // Symmetry or self-link violated.
	Config                    // Invalid or missing configuration key.
	Invalid                   // Invalid argument or operation.
	AccessViolation           // Hook registered with a disallowed access mode.
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case IO:
		return "I/O error"
	case NotFound:
		return "not found"
	case AlreadyExists:
		return "already exists"
	case InUse:
		return "in use"
	case Parse:
		return "parse error"
	case HeaderType:
		return "header type mismatch"
	case HeaderMissing:
		return "header field missing"
	case HookAbort:
		return "hook aborted operation"
	case HookPostFail:
		return "post-hook failed"
	case LinkIntegrity:
		return "link integrity violation"
	case Config:
		return "configuration error"
	case Invalid:
		return "invalid operation"
	case AccessViolation:
		return "hook access mode violation"
	}
	return "unknown error kind"
}

// Error is the type that implements the error interface.
// Any field may be left at its zero value.
type Error struct {
	// Op is the operation being performed, usually a method name.
	Op Op
	// ID is the base-relative identifier of the entry being accessed, if any.
	ID string
	// Kind classifies the error.
	Kind Kind
	// Err is the underlying error that triggered this one, if any.
	Err error
}

var _ error = (*Error)(nil)

// Separator joins nested errors on new, indented lines.
var Separator = ":\n\t"

// E builds an error value from its arguments. The type of each
// argument determines its meaning:
//
//	errors.Op     the operation being performed
//	string        the identifier of the entry being accessed (base-relative)
//	errors.Kind   the class of error
//	error         the underlying error that triggered this one
//
// If more than one argument of a given type is given, the last one
// wins. If the wrapped error is itself an *Error and this call did not
// specify a Kind, the inner Kind is promoted so the outermost error's
// Kind reflects the true classification.
func E(args ...interface{}) error {
	if len(args) == 0 {
		return nil
	}
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Op:
			e.Op = a
		case string:
			e.ID = a
		case Kind:
			e.Kind = a
		case *Error:
			cp := *a
			e.Err = &cp
		case error:
			e.Err = a
		default:
			_, file, line, _ := runtime.Caller(1)
			return Errorf("errors.E: bad call from %s:%d: unknown type %T, value %v", file, line, arg, arg)
		}
	}
	prev, ok := e.Err.(*Error)
	if !ok {
		return e
	}
	if prev.ID == e.ID {
		prev.ID = ""
	}
	if prev.Kind == e.Kind {
		prev.Kind = Other
	}
	if e.Kind == Other {
		e.Kind = prev.Kind
		prev.Kind = Other
	}
	return e
}

func pad(b *bytes.Buffer, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

func (e *Error) Error() string {
	b := new(bytes.Buffer)
	if e.Op != "" {
		b.WriteString(string(e.Op))
	}
	if e.ID != "" {
		pad(b, ": ")
		b.WriteString(e.ID)
	}
	if e.Kind != Other {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		if _, ok := e.Err.(*Error); ok {
			pad(b, Separator)
			b.WriteString(e.Err.Error())
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

// Unwrap allows errors.Is / errors.As from the standard library to see
// through an *Error to its cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether err is an *Error of the given Kind. Only the
// first *Error in the chain whose Kind is not Other is consulted.
func Is(kind Kind, err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	if e.Kind != Other {
		return e.Kind == kind
	}
	if e.Err != nil {
		return Is(kind, e.Err)
	}
	return false
}

// KindOf returns the Kind of the first *Error in err's chain whose
// Kind is not Other, or Other if none is set.
func KindOf(err error) Kind {
	e, ok := err.(*Error)
	if !ok {
		return Other
	}
	if e.Kind != Other {
		return e.Kind
	}
	if e.Err != nil {
		return KindOf(e.Err)
	}
	return Other
}

// Str returns an error that formats as the given text. It is intended
// to be used as the error-typed argument to E.
func Str(text string) error {
	return &errorString{text}
}

type errorString struct{ s string }

func (e *errorString) Error() string { return e.s }

// Errorf is equivalent to fmt.Errorf but returns a value suitable for
// passing to E, so that packages need only import errors for all
// error handling.
func Errorf(format string, args ...interface{}) error {
	return &errorString{fmt.Sprintf(format, args...)}
}

// Match reports whether want, as an *Error, matches got: every
// non-zero field of want must be present (and, for Err, recursively
// matching) in got. It is intended for use in tests.
func Match(want, got error) bool {
	we, ok := want.(*Error)
	if !ok {
		return want == got || (want != nil && got != nil && want.Error() == got.Error())
	}
	ge, ok := got.(*Error)
	if !ok {
		return false
	}
	if we.Op != "" && we.Op != ge.Op {
		return false
	}
	if we.ID != "" && we.ID != ge.ID {
		return false
	}
	if we.Kind != Other && we.Kind != ge.Kind {
		return false
	}
	if we.Err != nil {
		return Match(we.Err, ge.Err)
	}
	return true
}
