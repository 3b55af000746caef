// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package entry implements the on-disk document model: an Entry pairs
// an Identifier with a Header and a verbatim content body, framed by
// "---" delimiter lines, and knows how to parse and serialize itself.
package entry

import (
	"bytes"
	"strings"

	"imag.dev/imag/errors"
	"imag.dev/imag/header"
	"imag.dev/imag/id"
	"imag.dev/imag/log"
	"imag.dev/imag/version"
)

// delimiter is the exact line that frames the header section. The
// first line of a serialized Entry is always this, and exactly one
// further occurrence closes the header.
const delimiter = "---"

// Entry is a store document: an Identifier, a structured Header, and
// verbatim content.
type Entry struct {
	id      id.Identifier
	header  *header.Header
	content string
}

// New builds an Entry from its parts. h must not be nil.
func New(ident id.Identifier, h *header.Header, content string) *Entry {
	return &Entry{id: ident, header: h, content: content}
}

// Identifier returns the Entry's Identifier.
func (e *Entry) Identifier() id.Identifier { return e.id }

// Header returns the Entry's Header, for in-place reads and mutation.
func (e *Entry) Header() *header.Header { return e.header }

// Content returns the Entry's verbatim content body.
func (e *Entry) Content() string { return e.content }

// SetContent replaces the Entry's content body.
func (e *Entry) SetContent(content string) { e.content = content }

// Parse splits data on its framing delimiter lines, TOML-parses the
// header section, and treats the remainder as content verbatim. The
// first line of data must be exactly the delimiter.
func Parse(ident id.Identifier, data []byte) (*Entry, error) {
	const op errors.Op = "entry.Parse"

	lines := strings.SplitAfter(string(data), "\n")
	if len(lines) == 0 || chomp(lines[0]) != delimiter {
		return nil, errors.E(op, ident.String(), errors.Parse,
			errors.Str("line 1: missing opening \"---\" delimiter"))
	}

	closing := -1
	for i := 1; i < len(lines); i++ {
		if chomp(lines[i]) == delimiter {
			closing = i
			break
		}
	}
	if closing < 0 {
		return nil, errors.E(op, ident.String(), errors.Parse,
			errors.Str("missing closing \"---\" delimiter"))
	}

	headerText := strings.Join(lines[1:closing], "")
	h, err := header.Unmarshal([]byte(headerText))
	if err != nil {
		return nil, errors.E(op, ident.String(), errors.Parse,
			errors.Errorf("line %d: %v", closing, err))
	}

	content := strings.Join(lines[closing+1:], "")
	return &Entry{id: ident, header: h, content: content}, nil
}

// chomp strips at most one trailing "\n" (and a preceding "\r", for
// CRLF-terminated files) from a line produced by strings.SplitAfter.
func chomp(line string) string {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line
}

// Serialize renders e as delimiter, canonical TOML header, delimiter,
// content. The result ends with exactly one trailing newline if
// content is non-empty, and with none otherwise: any run of trailing
// newlines in the content is collapsed to one, and content with no
// trailing newline gains one. Parse(Serialize(e)) therefore reproduces
// e exactly when the content is empty or ends in exactly one newline;
// other content comes back with its trailing newlines normalized.
func (e *Entry) Serialize() ([]byte, error) {
	const op errors.Op = "entry.Serialize"

	headerBytes, err := e.header.Marshal()
	if err != nil {
		return nil, errors.E(op, e.id.String(), err)
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter)
	buf.WriteByte('\n')
	buf.Write(bytes.TrimRight(headerBytes, "\n"))
	buf.WriteByte('\n')
	buf.WriteString(delimiter)
	buf.WriteByte('\n')
	if e.content != "" {
		buf.WriteString(strings.TrimRight(e.content, "\n"))
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// ReplaceFromBuffer parses data and overwrites e's Header and content
// in place, preserving e's Identifier.
func (e *Entry) ReplaceFromBuffer(data []byte) error {
	const op errors.Op = "entry.ReplaceFromBuffer"
	parsed, err := Parse(e.id, data)
	if err != nil {
		return errors.E(op, err)
	}
	e.header = parsed.header
	e.content = parsed.content
	return nil
}

// EnsureDefaults inserts imag.version (set to the running store's
// version) and imag.links (an empty array) wherever they are absent.
// It is called on create, per the specification's auto-insert rule.
func (e *Entry) EnsureDefaults() {
	if _, ok := e.header.Read("imag.version"); !ok {
		e.header.Insert("imag.version", header.NewString(version.Current))
	}
	if _, ok := e.header.Read("imag.links"); !ok {
		e.header.Insert("imag.links", header.NewArray())
	}
}

// Validate checks that the Header carries the two fields every Entry
// is required to have: imag.version (a string, checked for semver
// compatibility with the running store) and imag.links (an array). A
// version mismatch is logged as a warning and does not fail
// validation; a missing field does.
func (e *Entry) Validate() error {
	const op errors.Op = "entry.Validate"

	v, err := header.ReadTyped[string](e.header, "imag.version")
	if err != nil {
		return errors.E(op, e.id.String(), errors.KindOf(err), err)
	}
	if _, ok := e.header.Read("imag.links"); !ok {
		return errors.E(op, e.id.String(), errors.HeaderMissing,
			errors.Str("imag.links"))
	}
	if n, _ := e.header.Read("imag.links"); n.Kind() != header.Array {
		return errors.E(op, e.id.String(), errors.HeaderType,
			errors.Str("imag.links"))
	}

	compatible, err := version.Compatible(v)
	if err != nil {
		log.Error.Printf("%s: imag.version %q: %v", e.id, v, err)
		return nil
	}
	if !compatible {
		log.Error.Printf("%s: imag.version %q is not compatible with running version %q",
			e.id, v, version.Current)
	}
	return nil
}
