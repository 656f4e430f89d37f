// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package fpstore

import (
	"slices"

	"go.chromium.org/infra/build/fnbuild/digest"
	"go.chromium.org/infra/build/fnbuild/fndef"
)

// Record is a fingerprint of a definition.
type Record struct {
	Key fndef.Key `json:"key"`

	// ContentHash is a digest of the bytes of the definition span.
	ContentHash digest.Digest `json:"content_hash"`

	// PrototypeHash is a digest of the canonical prototype.
	PrototypeHash digest.Digest `json:"prototype_hash"`

	// Deps are keys of definitions used by the definition,
	// sorted and unique.
	Deps []fndef.Key `json:"deps,omitempty"`

	// Clean is true if the definition was built successfully
	// with this fingerprint.
	Clean bool `json:"clean"`
}

// Equal reports whether r and o are the same fingerprint.
func (r Record) Equal(o Record) bool {
	return r.Key.Equal(o.Key) &&
		r.ContentHash == o.ContentHash &&
		r.PrototypeHash == o.PrototypeHash &&
		r.Clean == o.Clean &&
		slices.EqualFunc(r.Deps, o.Deps, fndef.Key.Equal)
}

// HasDep reports whether r depends on key.
func (r Record) HasDep(key fndef.Key) bool {
	_, found := slices.BinarySearchFunc(r.Deps, key, fndef.Compare)
	return found
}
