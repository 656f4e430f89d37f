// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package fndef

import (
	"fmt"
	"strings"
)

// Span is a byte range in a source unit. End is inclusive.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start + 1
}

// Bytes returns the bytes of buf covered by the span.
func (s Span) Bytes(buf []byte) []byte {
	return buf[s.Start : s.End+1]
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d]", s.Start, s.End)
}

// Definition is a function definition found in a source unit.
type Definition struct {
	// Unit is the name of the source unit.
	Unit string

	ReturnType string
	Name       string
	Params     []string

	// Span covers from the start of the return type through the
	// matching closing brace.
	Span Span

	// BodyStart is the offset of the opening brace of the body.
	BodyStart int
}

// Key returns the overload key of the definition.
func (d Definition) Key() Key {
	return Key{Name: d.Name, Params: d.Params}
}

// Prototype returns the canonical prototype "Ret Name(T1, T2);".
func (d Definition) Prototype() string {
	var sb strings.Builder
	sb.WriteString(d.ReturnType)
	sb.WriteByte(' ')
	sb.WriteString(d.Name)
	sb.WriteByte('(')
	sb.WriteString(strings.Join(d.Params, ", "))
	sb.WriteString(");")
	return sb.String()
}

func (d Definition) String() string {
	return fmt.Sprintf("%s:%s %s", d.Unit, d.Span, d.Prototype())
}
