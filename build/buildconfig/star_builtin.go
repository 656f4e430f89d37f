// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package buildconfig

import (
	"runtime"

	starjson "go.starlark.net/lib/json"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"go.chromium.org/infra/build/fnbuild/runtimex"
)

func runtimeModule() *starlarkstruct.Module {
	m := &starlarkstruct.Module{
		Name: "runtime",
		Members: map[string]starlark.Value{
			"num_cpu": starlark.MakeInt(runtimex.NumCPU()),
			"os":      starlark.String(runtime.GOOS),
			"arch":    starlark.String(runtime.GOARCH),
		},
	}
	m.Freeze()
	return m
}

func builtinModule() map[string]starlark.Value {
	return map[string]starlark.Value{
		"json":   starjson.Module,
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
		"module": starlark.NewBuiltin("module", starlarkstruct.MakeModule),
	}
}
