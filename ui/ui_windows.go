// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ui

import (
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/windows"
)

// Init enables virtual terminal processing on the stdout console so that
// spinners and SGR colors render, and returns a func to restore the
// console mode.
func Init() (restore func()) {
	h := windows.Handle(os.Stdout.Fd())
	var orig uint32
	err := windows.GetConsoleMode(h, &orig)
	if err != nil {
		log.Debugf("stdout is not a console: %v", err)
		return func() {}
	}
	if orig&windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING != 0 {
		return func() {}
	}
	err = windows.SetConsoleMode(h, orig|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING)
	if err != nil {
		log.Warnf("failed to enable virtual terminal processing: %v", err)
		return func() {}
	}
	return func() {
		err := windows.SetConsoleMode(h, orig)
		if err != nil {
			log.Errorf("failed to restore console mode 0x%x: %v", orig, err)
		}
	}
}
