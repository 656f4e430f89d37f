// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandefs

import (
	"fmt"
	"io"
)

// ParseError is an error of malformed definitions in a source unit.
type ParseError struct {
	Unit   string
	Offset int
	Msg    string

	// Err is io.ErrUnexpectedEOF when the unit ended mid-definition.
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Unit, e.Offset, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// LineCol returns 1-based line and column of the error offset in buf.
func (e *ParseError) LineCol(buf []byte) (int, int) {
	line, col := 1, 1
	for i := 0; i < e.Offset && i < len(buf); i++ {
		if buf[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

func (s *scanner) errorf(format string, args ...any) error {
	return &ParseError{
		Unit:   s.unit,
		Offset: s.pos,
		Msg:    fmt.Sprintf(format, args...),
	}
}

func (s *scanner) unexpectedEOF(what string) error {
	return &ParseError{
		Unit:   s.unit,
		Offset: len(s.buf),
		Msg:    "unexpected end of input: want " + what,
		Err:    io.ErrUnexpectedEOF,
	}
}
