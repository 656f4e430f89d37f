// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package source

import (
	"context"
	"io/fs"
	"maps"
	"slices"
)

// Map is an in-memory source, keyed by unit name.
type Map map[string][]byte

// List returns the unit names in sorted order.
func (m Map) List(ctx context.Context) ([]string, error) {
	return slices.Sorted(maps.Keys(m)), nil
}

// Read returns a unit holding a copy of the content.
func (m Map) Read(ctx context.Context, name string) (*Unit, error) {
	b, ok := m[name]
	if !ok {
		return nil, &ReadError{Name: name, Err: fs.ErrNotExist}
	}
	buf := &Buffer{}
	buf.Write(b)
	return &Unit{Name: name, Buf: buf}, nil
}
