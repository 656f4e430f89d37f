// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandefs

// Call is a call-shaped use of an identifier: the identifier followed by
// an argument list.
type Call struct {
	Name string
	// Args is the number of top level arguments.
	Args int
	// Offset is the offset of the identifier in the scanned bytes.
	Offset int
}

// Calls returns call-shaped identifiers in buf, in order of appearance.
// Arguments are counted by top level commas, so a call with nested
// calls such as "f(g(a, b), c)" has 2 arguments.
func Calls(buf []byte) []Call {
	var calls []Call
	for i := 0; i < len(buf); {
		if !identChar.contains(buf[i]) {
			i++
			continue
		}
		start := i
		i += skipBytesAny(buf[i:], identChar)
		name := buf[start:i]
		if name[0] >= '0' && name[0] <= '9' {
			// number literal.
			continue
		}
		j := i + skipBytesAny(buf[i:], whitespaceChar)
		if j >= len(buf) || buf[j] != '(' {
			continue
		}
		calls = append(calls, Call{
			Name:   string(name),
			Args:   countArgs(buf[j:]),
			Offset: start,
		})
	}
	return calls
}

// countArgs counts top level arguments in buf starting with '('.
func countArgs(buf []byte) int {
	level := 0
	args := 0
	seen := false
	for _, ch := range buf {
		switch ch {
		case '(', '[', '{':
			level++
			if level == 1 {
				continue
			}
		case ')', ']', '}':
			level--
			if level == 0 {
				if seen {
					args++
				}
				return args
			}
		case ',':
			if level == 1 {
				args++
				continue
			}
		}
		if level >= 1 && !whitespaceChar.contains(ch) {
			seen = true
		}
	}
	if seen {
		args++
	}
	return args
}
