// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ui_test

import (
	"testing"

	"go.chromium.org/infra/build/fnbuild/ui"
)

func TestStripANSIEscapeCodes(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want string
	}{
		{
			in:   "foo\033",
			want: "foo",
		},
		{
			in:   "foo\033[",
			want: "foo",
		},
		{
			in:   "\033[1maffixmgr.cxx:286:15: \033[0m\033[0;1;35mwarning: \033[0m\033[1musing the result... [-Wparentheses]\033[0m",
			want: "affixmgr.cxx:286:15: warning: using the result... [-Wparentheses]",
		},
	} {
		got := ui.StripANSIEscapeCodes(tc.in)
		if got != tc.want {
			t.Errorf("ui.StripANSIEscapeCodes(%q)=%q; want=%q", tc.in, got, tc.want)
		}
	}
}

func TestSGR(t *testing.T) {
	got := ui.SGR(ui.Red, "failed")
	if want := "\033[31;1mfailed\033[0m"; got != want {
		t.Errorf("ui.SGR(ui.Red, %q)=%q; want=%q", "failed", got, want)
	}
	if got := ui.StripANSIEscapeCodes(got); got != "failed" {
		t.Errorf("ui.StripANSIEscapeCodes(ui.SGR(...))=%q; want=%q", got, "failed")
	}
}

func TestHighlightNotTerminal(t *testing.T) {
	if ui.IsTerminal() {
		t.Skip("stdout is a terminal")
	}
	if got := ui.Highlight(ui.Green, "ok"); got != "ok" {
		t.Errorf("ui.Highlight(ui.Green, %q)=%q; want=%q", "ok", got, "ok")
	}
}
