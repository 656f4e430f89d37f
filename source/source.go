// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package source provides source units to scan.
package source

import (
	"context"
	"fmt"
)

// Unit is a source unit: a name and its bytes.
type Unit struct {
	// Name is slash separated path relative to the source root.
	Name string
	Buf  *Buffer
}

// Bytes returns the content of the unit.
func (u *Unit) Bytes() []byte {
	if u == nil || u.Buf == nil {
		return nil
	}
	return u.Buf.Bytes()
}

// Source supplies source units.
type Source interface {
	// List returns names of the units, in sorted order.
	List(ctx context.Context) ([]string, error)

	// Read reads the unit of the name.
	Read(ctx context.Context, name string) (*Unit, error)
}

// ReadError is an error to read a source unit.
type ReadError struct {
	Name string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Name, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
