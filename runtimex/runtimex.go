// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package runtimex provides CPU counts used to size worker pools.
package runtimex

import "runtime"

var ncpu int

func init() {
	ncpu = getproccount()
	if ncpu <= 0 {
		ncpu = runtime.NumCPU()
	}
}

// NumCPU returns the number of logical CPUs usable by the current process.
// On Windows, runtime.NumCPU() only sees a single processor group (up to 64),
// so GetActiveProcessorCount is asked for all groups instead.
func NumCPU() int {
	return ncpu
}

// Jobs returns n if it is positive, or the number of usable CPUs otherwise.
// It is used to resolve "-j" style flags where a non-positive value means
// "pick a default".
func Jobs(n int) int {
	if n > 0 {
		return n
	}
	return ncpu
}
