// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package buildconfig

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// repoLoader is a Starlark module loader.
// A module is a slash separated path relative to the loading module,
// or to the config directory with `//` prefix.
type repoLoader struct {
	dir         string
	predeclared starlark.StringDict

	cache map[string]starlark.StringDict
}

// Load loads a Starlark module.
func (r *repoLoader) Load(thread *starlark.Thread, module string) (starlark.StringDict, error) {
	curname, _ := thread.Local("modulename").(string)
	log.Debugf("load %s from %s", module, curname)
	var fname string
	switch {
	case strings.HasPrefix(module, "//"):
		fname = strings.TrimPrefix(module, "//")
	default:
		fname = path.Join(path.Dir(curname), module)
	}
	fname = path.Clean(fname)
	if fname == ".." || strings.HasPrefix(fname, "../") || path.IsAbs(fname) {
		return nil, fmt.Errorf("module %q is out of config dir", module)
	}
	if g, ok := r.cache[fname]; ok {
		if g == nil {
			return nil, fmt.Errorf("cycle in load graph: %s", fname)
		}
		return g, nil
	}
	if r.cache == nil {
		r.cache = make(map[string]starlark.StringDict)
	}
	buf, err := os.ReadFile(filepath.Join(r.dir, filepath.FromSlash(fname)))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", fname, err)
	}
	r.cache[fname] = nil
	t := &starlark.Thread{
		Name: "module " + fname,
		Print: func(thread *starlark.Thread, msg string) {
			log.Infof("thread:%s %s", thread.Name, msg)
		},
		Load: r.Load,
	}
	t.SetLocal("modulename", fname)
	g, err := starlark.ExecFileOptions(&syntax.FileOptions{Recursion: true}, t, fname, buf, r.predeclared)
	if err != nil {
		delete(r.cache, fname)
		return nil, err
	}
	r.cache[fname] = g
	return g, nil
}
