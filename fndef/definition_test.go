// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package fndef

import "testing"

func TestPrototype(t *testing.T) {
	d := Definition{
		Unit:       "math.cc",
		ReturnType: "int",
		Name:       "add",
		Params:     []string{"int", "int"},
		Span:       Span{Start: 0, End: 38},
		BodyStart:  22,
	}
	if got, want := d.Prototype(), "int add(int, int);"; got != want {
		t.Errorf("Prototype()=%q; want %q", got, want)
	}
	if got, want := d.Key().String(), "add(int,int)"; got != want {
		t.Errorf("Key()=%q; want %q", got, want)
	}
	if got, want := d.String(), "math.cc:[0,38] int add(int, int);"; got != want {
		t.Errorf("String()=%q; want %q", got, want)
	}
	noargs := Definition{ReturnType: "void", Name: "run"}
	if got, want := noargs.Prototype(), "void run();"; got != want {
		t.Errorf("Prototype()=%q; want %q", got, want)
	}
}

func TestSpanBytes(t *testing.T) {
	buf := []byte("  int f() {}  ")
	s := Span{Start: 2, End: 11}
	if got, want := string(s.Bytes(buf)), "int f() {}"; got != want {
		t.Errorf("Bytes()=%q; want %q", got, want)
	}
	if got, want := s.Len(), 10; got != want {
		t.Errorf("Len()=%d; want %d", got, want)
	}
}
