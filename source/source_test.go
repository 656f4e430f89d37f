// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package source

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func setupFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for k, v := range files {
		fname := filepath.Join(dir, filepath.FromSlash(k))
		err := os.MkdirAll(filepath.Dir(fname), 0755)
		if err != nil {
			t.Fatal(err)
		}
		err = os.WriteFile(fname, []byte(v), 0644)
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	setupFiles(t, dir, map[string]string{
		"math.cc":           "int add(int a, int b) { return a + b; }\n",
		"util/str.cc":       "int len(int s) { return s; }\n",
		"util/str.h":        "int len(int s);\n",
		"third_party/x.cc":  "int x() { return 0; }\n",
		".git/objects/a.cc": "garbage",
		"gen/b.cpp":         "int b() { return 1; }\n",
	})

	for _, tc := range []struct {
		name string
		opt  DirOption
		want []string
	}{
		{
			name: "default",
			want: []string{"math.cc", "third_party/x.cc", "util/str.cc"},
		},
		{
			name: "exclude",
			opt: DirOption{
				Exclude: []string{"third_party/"},
			},
			want: []string{"math.cc", "util/str.cc"},
		},
		{
			name: "suffixes",
			opt: DirOption{
				Suffixes: []string{".cc", ".cpp"},
				Exclude:  []string{"util"},
			},
			want: []string{"gen/b.cpp", "math.cc", "third_party/x.cc"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDir(dir, tc.opt)
			got, err := d.List(ctx)
			if err != nil {
				t.Fatalf("List(ctx)=_, %v; want nil error", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("List(ctx) diff -want +got:\n%s", diff)
			}
		})
	}

	d := NewDir(dir, DirOption{})
	u, err := d.Read(ctx, "util/str.cc")
	if err != nil {
		t.Fatalf("Read(ctx, %q)=_, %v; want nil error", "util/str.cc", err)
	}
	if got, want := string(u.Bytes()), "int len(int s) { return s; }\n"; got != want {
		t.Errorf("Read(ctx, %q)=%q; want %q", "util/str.cc", got, want)
	}

	_, err = d.Read(ctx, "missing.cc")
	var rerr *ReadError
	if !errors.As(err, &rerr) || rerr.Name != "missing.cc" || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Read(ctx, %q)=_, %v; want ReadError with fs.ErrNotExist", "missing.cc", err)
	}
}

func TestDirListMissingRoot(t *testing.T) {
	d := NewDir(filepath.Join(t.TempDir(), "nonexistent"), DirOption{})
	_, err := d.List(context.Background())
	var rerr *ReadError
	if !errors.As(err, &rerr) {
		t.Errorf("List(ctx)=_, %v; want ReadError", err)
	}
}

func TestMap(t *testing.T) {
	ctx := context.Background()
	m := Map{
		"b.cc": []byte("int b() {}"),
		"a.cc": []byte("int a() {}"),
	}
	names, err := m.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a.cc", "b.cc"}, names); diff != "" {
		t.Errorf("List(ctx) diff -want +got:\n%s", diff)
	}
	u, err := m.Read(ctx, "a.cc")
	if err != nil {
		t.Fatal(err)
	}
	u.Bytes()[0] = 'X'
	if got, want := string(m["a.cc"]), "int a() {}"; got != want {
		t.Errorf("Map content modified via unit: %q; want %q", got, want)
	}
	if _, err := m.Read(ctx, "c.cc"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Read(ctx, %q)=_, %v; want fs.ErrNotExist", "c.cc", err)
	}
}
