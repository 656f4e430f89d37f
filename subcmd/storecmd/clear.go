// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package storecmd

import (
	"fmt"
	"os"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"

	"go.chromium.org/infra/build/fnbuild/fpstore"
)

func cmdClear() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "clear",
		ShortDesc: "clear fingerprints",
		LongDesc:  "remove the fingerprint store. the next build rebuilds all definitions.",
		CommandRun: func() subcommands.CommandRun {
			c := &clearRun{}
			c.init()
			return c
		},
	}
}

type clearRun struct {
	subcommands.CommandRunBase
	dir  string
	file string
}

func (c *clearRun) init() {
	c.Flags.StringVar(&c.dir, "C", ".", "root directory")
	c.Flags.StringVar(&c.file, "store", fpstore.DefaultFile, "fingerprint store filename, relative to the root")
}

func (c *clearRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	err := os.Chdir(c.dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to chdir %s: %v\n", c.dir, err)
		return 1
	}
	err = fpstore.Clear(ctx, fpstore.Option{File: c.file})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
