// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build !windows

package ui

// Init initializes the stdout settings, and returns a func to restore them.
// Terminals on unix handle SGR sequences as is.
func Init() (restore func()) {
	return func() {}
}
