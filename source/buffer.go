// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package source

import (
	"errors"
	"io"
)

const minRead = 512

// Buffer is a growable byte buffer owned by one source unit.
// Capacity grows by doubling.
type Buffer struct {
	buf []byte
}

// NewBuffer returns a buffer holding b. The buffer takes ownership of b.
func NewBuffer(b []byte) *Buffer {
	return &Buffer{buf: b}
}

// Bytes returns the content of the buffer.
// It is valid until the next modification of the buffer.
func (b *Buffer) Bytes() []byte { return b.buf }

// Len returns the number of bytes in the buffer.
func (b *Buffer) Len() int { return len(b.buf) }

// Cap returns the capacity of the buffer.
func (b *Buffer) Cap() int { return cap(b.buf) }

// Reset empties the buffer, keeping its capacity.
func (b *Buffer) Reset() { b.buf = b.buf[:0] }

// Reserve makes room for at least n more bytes without another
// allocation. The capacity is doubled until it fits.
func (b *Buffer) Reserve(n int) {
	if n < 0 {
		panic("source.Buffer.Reserve: negative count")
	}
	need := len(b.buf) + n
	if need <= cap(b.buf) {
		return
	}
	c := max(cap(b.buf), minRead)
	for c < need {
		c *= 2
	}
	nb := make([]byte, len(b.buf), c)
	copy(nb, b.buf)
	b.buf = nb
}

// Write appends p to the buffer.
func (b *Buffer) Write(p []byte) (int, error) {
	b.Reserve(len(p))
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// ReadFrom reads r until EOF, appending to the buffer.
func (b *Buffer) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	for {
		if len(b.buf) == cap(b.buf) {
			b.Reserve(minRead)
		}
		n, err := r.Read(b.buf[len(b.buf):cap(b.buf)])
		if n < 0 {
			return total, errors.New("source.Buffer: reader returned negative count")
		}
		b.buf = b.buf[:len(b.buf)+n]
		total += int64(n)
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}
