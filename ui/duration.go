// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ui

import (
	"fmt"
	"time"
)

// FormatDuration formats duration in "X.XXs", "XmXX.XXs" or "XhXmXX.XXs".
func FormatDuration(d time.Duration) string {
	d = d.Round(10 * time.Millisecond)
	h := int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	secs := d.Seconds()
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%dm%05.2fs", h, m, secs)
	case m > 0:
		return fmt.Sprintf("%dm%05.2fs", m, secs)
	}
	return fmt.Sprintf("%.2fs", secs)
}
