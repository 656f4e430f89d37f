// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package fndef provides the data model of function definitions.
package fndef

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Key identifies one overload of a function: its name and the literal
// text of its parameter types, in order.
type Key struct {
	Name   string
	Params []string
}

// String returns "name(T1,T2)", the canonical form of the key.
func (k Key) String() string {
	var sb strings.Builder
	sb.WriteString(k.Name)
	sb.WriteByte('(')
	for i, p := range k.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p)
	}
	sb.WriteByte(')')
	return sb.String()
}

// Equal reports whether k and o name the same overload.
func (k Key) Equal(o Key) bool {
	return k.Name == o.Name && slices.Equal(k.Params, o.Params)
}

// Compare orders keys by name, then by parameter types.
func Compare(a, b Key) int {
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return slices.Compare(a.Params, b.Params)
}

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(b []byte) error {
	key, err := ParseKey(string(b))
	if err != nil {
		return err
	}
	*k = key
	return nil
}

// ParseKey parses "name(T1,T2)" form of the key.
func ParseKey(s string) (Key, error) {
	name, rest, ok := strings.Cut(s, "(")
	if !ok || name == "" || !strings.HasSuffix(rest, ")") {
		return Key{}, fmt.Errorf("bad key %q: want name(T1,T2)", s)
	}
	if strings.TrimSpace(name) != name {
		return Key{}, fmt.Errorf("bad key %q: space in name", s)
	}
	rest = strings.TrimSuffix(rest, ")")
	if rest == "" {
		return Key{Name: name}, nil
	}
	params := strings.Split(rest, ",")
	for i, p := range params {
		params[i] = strings.TrimSpace(p)
		if params[i] == "" {
			return Key{}, fmt.Errorf("bad key %q: empty parameter type at %d", s, i)
		}
	}
	return Key{Name: name, Params: params}, nil
}

// SortKeys sorts keys in canonical order.
func SortKeys(keys []Key) {
	slices.SortFunc(keys, Compare)
}
