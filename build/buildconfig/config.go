// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package buildconfig provides build config for `fnbuild` in Starlark.
//
// The config file defines `init(ctx)`, which returns a module:
//
//	def init(ctx):
//	    return module(
//	        "config",
//	        suffixes = [".cc", ".cpp"],
//	        exclude = ["third_party"],
//	        store = ".fnbuild_fingerprints",
//	        compress = False,
//	        jobs = ctx.runtime.num_cpu,
//	    )
//
// ctx.flags is a dict of flags given by `-config_flag key=value`, and
// ctx.runtime provides num_cpu, os and arch.
package buildconfig

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// DefaultFile is the default config filename in the root.
const DefaultFile = "fnbuild.star"

const configEntryPoint = "init"

// Config is a build config.
// Zero values mean unset.
type Config struct {
	Suffixes []string
	Exclude  []string
	Store    string
	Compress *bool
	Jobs     int
}

// InitError is an error of running init.
type InitError struct {
	fn  starlark.Value
	err *starlark.EvalError
}

func (e InitError) Error() string {
	if fn, ok := e.fn.(*starlark.Function); ok {
		return fmt.Sprintf("failed to run %s[%s:%s]: %v", configEntryPoint, fn.Position(), fn.Name(), e.err)
	}
	return fmt.Sprintf("failed to run %s[%s]: %v", configEntryPoint, e.fn, e.err)
}

// Backtrace returns Starlark backtrace of the error.
func (e InitError) Backtrace() string {
	return e.err.CallStack.String()
}

func (e InitError) Unwrap() error {
	return e.err
}

// Load loads the config file and runs its init with flags.
// It returns an error wrapping fs.ErrNotExist if the file doesn't exist.
func Load(ctx context.Context, fname string, flags map[string]string) (*Config, error) {
	if _, err := os.Stat(fname); err != nil {
		return nil, err
	}
	loader := &repoLoader{
		dir:         filepath.Dir(fname),
		predeclared: builtinModule(),
	}
	thread := &starlark.Thread{
		Name: "load",
		Print: func(thread *starlark.Thread, msg string) {
			log.Infof("thread:%s %s", thread.Name, msg)
		},
		Load: loader.Load,
	}
	name := filepath.Base(fname)
	thread.SetLocal("modulename", name)
	globals, err := loader.Load(thread, name)
	if err != nil {
		log.Warnf("thread:%s failed to exec file %s: %v", thread.Name, fname, err)
		var eerr *starlark.EvalError
		if errors.As(err, &eerr) {
			log.Warnf("stacktrace:\n%s", eerr.Backtrace())
		}
		return nil, err
	}
	fun, ok := globals[configEntryPoint]
	if !ok {
		return nil, fmt.Errorf("%s is not defined in %s", configEntryPoint, fname)
	}
	if _, ok := fun.(starlark.Callable); !ok {
		return nil, fmt.Errorf("%s %s is not callable in %s", configEntryPoint, fun.Type(), fname)
	}

	thread = &starlark.Thread{
		Name: configEntryPoint,
		Print: func(thread *starlark.Thread, msg string) {
			log.Infof("thread:%s %s", thread.Name, msg)
		},
		Load: func(*starlark.Thread, string) (starlark.StringDict, error) {
			return nil, fmt.Errorf("load is not allowed in init")
		},
	}
	hctx := starlarkstruct.FromStringDict(starlark.String("ctx"), map[string]starlark.Value{
		"flags":   starFlags(flags),
		"runtime": runtimeModule(),
	})
	ret, err := starlark.Call(thread, fun, []starlark.Value{hctx}, nil)
	if err != nil {
		log.Warnf("thread:%s failed to run %s: %v", thread.Name, configEntryPoint, err)
		var eerr *starlark.EvalError
		if errors.As(err, &eerr) {
			log.Warnf("stacktrace:\n%s", eerr.Backtrace())
			return nil, InitError{fn: fun, err: eerr}
		}
		return nil, fmt.Errorf("failed to run %s: %w", configEntryPoint, err)
	}
	m, ok := ret.(*starlarkstruct.Module)
	if !ok {
		return nil, fmt.Errorf("%s returned %s, want module", configEntryPoint, ret.Type())
	}
	cfg, err := fromModule(m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	log.Infof("config %s: %+v", fname, cfg)
	return cfg, nil
}

func fromModule(m *starlarkstruct.Module) (*Config, error) {
	cfg := &Config{}
	for name, v := range m.Members {
		var err error
		switch name {
		case "suffixes":
			cfg.Suffixes, err = unpackList(v)
		case "exclude":
			cfg.Exclude, err = unpackList(v)
		case "store":
			s, ok := starlark.AsString(v)
			if !ok {
				err = fmt.Errorf("got %s; want string", v.Type())
			}
			cfg.Store = s
		case "compress":
			b, ok := v.(starlark.Bool)
			if !ok {
				err = fmt.Errorf("got %s; want bool", v.Type())
			}
			compress := bool(b)
			cfg.Compress = &compress
		case "jobs":
			cfg.Jobs, err = starlark.AsInt32(v)
		default:
			log.Warnf("unknown config %s=%s. ignored", name, v)
		}
		if err != nil {
			return nil, fmt.Errorf("bad %s: %w", name, err)
		}
	}
	return cfg, nil
}
