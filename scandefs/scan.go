// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package scandefs scans function definitions in C-like source.
//
// A unit is a sequence of definitions separated by whitespace:
//
//	ReturnType Name(Type1 a, Type2 b) { ... }
//
// It is not aware of comments, string literals nor preprocessor
// directives. A brace in them will desynchronize brace counting.
package scandefs

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"go.chromium.org/infra/build/fnbuild/fndef"
)

// Scan scans function definitions in buf of the unit name.
// It returns *ParseError on malformed input, and no definitions.
func Scan(ctx context.Context, name string, buf []byte) ([]fndef.Definition, error) {
	started := time.Now()
	s := &scanner{unit: name, buf: buf}
	var defs []fndef.Definition
	for {
		s.skipSpaces()
		if s.eof() {
			break
		}
		def, err := s.definition()
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	log.Debugf("scan %s: %d definitions in %s", name, len(defs), time.Since(started))
	return defs, nil
}

type scanner struct {
	unit string
	buf  []byte
	pos  int
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.buf)
}

func (s *scanner) skipSpaces() {
	s.pos += skipBytesAny(s.buf[s.pos:], whitespaceChar)
}

// word consumes an identifier at pos.
func (s *scanner) word() string {
	n := skipBytesAny(s.buf[s.pos:], identChar)
	w := string(s.buf[s.pos : s.pos+n])
	s.pos += n
	return w
}

// words consumes identifiers separated by whitespace.
func (s *scanner) words() []string {
	var ws []string
	for {
		w := s.word()
		if w == "" {
			return ws
		}
		ws = append(ws, w)
		s.skipSpaces()
	}
}

func (s *scanner) definition() (fndef.Definition, error) {
	def := fndef.Definition{
		Unit: s.unit,
		Span: fndef.Span{Start: s.pos},
	}
	ws := s.words()
	if s.eof() {
		return def, s.unexpectedEOF("'('")
	}
	if s.buf[s.pos] != '(' {
		return def, s.errorf("unexpected %q: want '('", s.buf[s.pos])
	}
	if len(ws) < 2 {
		return def, s.errorf("want return type and name before '('")
	}
	def.ReturnType = strings.Join(ws[:len(ws)-1], " ")
	def.Name = ws[len(ws)-1]
	s.pos++

	params, err := s.params()
	if err != nil {
		return def, err
	}
	def.Params = params

	s.skipSpaces()
	if s.eof() {
		return def, s.unexpectedEOF("'{'")
	}
	if s.buf[s.pos] != '{' {
		return def, s.errorf("unexpected %q: want '{'", s.buf[s.pos])
	}
	def.BodyStart = s.pos
	end, err := s.body()
	if err != nil {
		return def, err
	}
	def.Span.End = end
	return def, nil
}

// params consumes a parameter list after '(' through ')'.
func (s *scanner) params() ([]string, error) {
	s.skipSpaces()
	if !s.eof() && s.buf[s.pos] == ')' {
		s.pos++
		return nil, nil
	}
	var params []string
	for {
		s.skipSpaces()
		ws := s.words()
		if s.eof() {
			return nil, s.unexpectedEOF("')'")
		}
		if len(ws) == 0 {
			return nil, s.errorf("unexpected %q: want parameter type", s.buf[s.pos])
		}
		if len(ws) > 1 {
			// last word is the parameter name.
			ws = ws[:len(ws)-1]
		}
		params = append(params, strings.Join(ws, " "))
		switch s.buf[s.pos] {
		case ',':
			s.pos++
		case ')':
			s.pos++
			return params, nil
		default:
			return nil, s.errorf("unexpected %q in parameter list: want ',' or ')'", s.buf[s.pos])
		}
	}
}

// body consumes a body from '{' through the matching '}' and
// returns the offset of the '}'.
func (s *scanner) body() (int, error) {
	level := 1
	s.pos++
	for ; s.pos < len(s.buf); s.pos++ {
		switch s.buf[s.pos] {
		case '{':
			level++
		case '}':
			level--
			if level == 0 {
				end := s.pos
				s.pos++
				return end, nil
			}
		}
	}
	return 0, s.unexpectedEOF("'}'")
}
