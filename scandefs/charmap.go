// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandefs

type charmap [8]uint32

func (m *charmap) set(ch byte) {
	(*m)[ch>>5] |= 1 << uint(ch&31)
}

func (m *charmap) contains(ch byte) bool {
	return (*m)[ch>>5]&(1<<uint(ch&31)) != 0
}

// [a-zA-Z0-9_]
var identChar charmap

var whitespaceChar charmap

func init() {
	for ch := byte('a'); ch <= 'z'; ch++ {
		identChar.set(ch)
	}
	for ch := byte('A'); ch <= 'Z'; ch++ {
		identChar.set(ch)
	}
	for ch := byte('0'); ch <= '9'; ch++ {
		identChar.set(ch)
	}
	identChar.set('_')

	for _, ch := range []byte(" \n\t\r") {
		whitespaceChar.set(ch)
	}
}

// skipBytesAny returns offset in buf where the byte is not in charmap.
func skipBytesAny(buf []byte, cm charmap) int {
	for i := range buf {
		if !cm.contains(buf[i]) {
			return i
		}
	}
	return len(buf)
}
