// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package digest handles sha256 content digests of definitions.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// Size is the size of a raw sha256 hash in bytes.
const Size = sha256.Size

// Digest is a content digest: the lower hex sha256 of the content and its
// size in bytes.
type Digest struct {
	Hash      string `json:"hash,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
}

// FromBytes computes the digest of b.
func FromBytes(b []byte) Digest {
	sum := sha256.Sum256(b)
	return Digest{
		Hash:      hex.EncodeToString(sum[:]),
		SizeBytes: int64(len(b)),
	}
}

// FromString computes the digest of s.
func FromString(s string) Digest {
	return FromBytes([]byte(s))
}

// FromRaw creates a digest from a raw sha256 sum and size.
func FromRaw(sum [Size]byte, size int64) Digest {
	return Digest{
		Hash:      hex.EncodeToString(sum[:]),
		SizeBytes: size,
	}
}

// Raw returns the raw sha256 sum of the digest.
func (d Digest) Raw() ([Size]byte, error) {
	var sum [Size]byte
	if d.IsZero() {
		return sum, errors.New("zero digest")
	}
	b, err := hex.DecodeString(d.Hash)
	if err != nil {
		return sum, fmt.Errorf("bad digest hash %q: %w", d.Hash, err)
	}
	if len(b) != Size {
		return sum, fmt.Errorf("bad digest hash %q: %d bytes", d.Hash, len(b))
	}
	copy(sum[:], b)
	return sum, nil
}

// IsZero returns true when the Digest is zero value struct.
func (d Digest) IsZero() bool {
	return d.Hash == ""
}

// String returns "hash/size" form of the digest.
func (d Digest) String() string {
	return fmt.Sprintf("%s/%d", d.Hash, d.SizeBytes)
}
