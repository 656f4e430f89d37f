// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package source

import (
	"context"
	"flag"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"go.chromium.org/infra/build/fnbuild/runtimex"
	"go.chromium.org/infra/build/fnbuild/sync/semaphore"
)

// ReadSemaphore limits concurrent file reads.
var ReadSemaphore = semaphore.New("source-read", runtimex.NumCPU()*2)

// DefaultSuffixes are suffixes of source units selected by default.
var DefaultSuffixes = []string{".cc"}

// DirOption is an option for Dir.
type DirOption struct {
	// Suffixes selects files by name suffix.
	Suffixes []string

	// Exclude lists slash separated path prefixes, relative to the root,
	// that are not scanned.
	Exclude []string
}

// RegisterFlags registers flags for the option.
func (o *DirOption) RegisterFlags(flagSet *flag.FlagSet) {
	flagSet.Func("suffix", "source file suffix to scan. can be repeated (default .cc)", func(s string) error {
		o.Suffixes = append(o.Suffixes, s)
		return nil
	})
	flagSet.Func("exclude", "path prefix relative to the root to skip. can be repeated", func(s string) error {
		o.Exclude = append(o.Exclude, filepath.ToSlash(s))
		return nil
	})
}

// Dir is a source in a directory tree on local disk.
type Dir struct {
	root     string
	suffixes []string
	exclude  []string
}

// NewDir creates a source of files under root.
func NewDir(root string, opt DirOption) *Dir {
	suffixes := opt.Suffixes
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes
	}
	return &Dir{
		root:     root,
		suffixes: slices.Clone(suffixes),
		exclude:  slices.Clone(opt.Exclude),
	}
}

func (d *Dir) excluded(rel string) bool {
	for _, e := range d.exclude {
		e = strings.TrimSuffix(e, "/")
		if rel == e || strings.HasPrefix(rel, e+"/") {
			return true
		}
	}
	return false
}

func (d *Dir) selected(rel string) bool {
	for _, s := range d.suffixes {
		if strings.HasSuffix(rel, s) {
			return true
		}
	}
	return false
}

// List walks the root and returns the names of the matching files.
func (d *Dir) List(ctx context.Context) ([]string, error) {
	var names []string
	err := filepath.WalkDir(d.root, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if de.IsDir() {
			if strings.HasPrefix(de.Name(), ".") || d.excluded(rel) {
				log.Debugf("skip dir %s", rel)
				return filepath.SkipDir
			}
			return nil
		}
		if !de.Type().IsRegular() || d.excluded(rel) || !d.selected(rel) {
			return nil
		}
		names = append(names, rel)
		return nil
	})
	if err != nil {
		return nil, &ReadError{Name: d.root, Err: err}
	}
	slices.Sort(names)
	return names, nil
}

// Read reads the file of the name.
func (d *Dir) Read(ctx context.Context, name string) (*Unit, error) {
	u := &Unit{Name: name, Buf: &Buffer{}}
	err := ReadSemaphore.Do(ctx, func(ctx context.Context) error {
		f, err := os.Open(filepath.Join(d.root, filepath.FromSlash(name)))
		if err != nil {
			return err
		}
		defer f.Close()
		fi, err := f.Stat()
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return fs.ErrInvalid
		}
		u.Buf.Reserve(int(fi.Size()))
		_, err = u.Buf.ReadFrom(f)
		return err
	})
	if err != nil {
		return nil, &ReadError{Name: name, Err: err}
	}
	return u, nil
}
