// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package storecmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"

	"go.chromium.org/infra/build/fnbuild/fpstore"
)

func cmdExport() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "export",
		ShortDesc: "export fingerprints",
		LongDesc:  "export fingerprint records in JSON to stdout.",
		CommandRun: func() subcommands.CommandRun {
			c := &exportRun{}
			c.init()
			return c
		},
	}
}

type exportRun struct {
	subcommands.CommandRunBase
	dir string
	opt fpstore.Option
}

func (c *exportRun) init() {
	c.Flags.StringVar(&c.dir, "C", ".", "root directory")
	c.opt.RegisterFlags(&c.Flags)
}

func (c *exportRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	err := os.Chdir(c.dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to chdir %s: %v\n", c.dir, err)
		return 1
	}
	err = export(ctx, os.Stdout, c.opt)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func export(ctx context.Context, w io.Writer, opt fpstore.Option) error {
	st := fpstore.Load(ctx, opt)
	if err := st.LoadErr(); err != nil {
		return fmt.Errorf("failed to load %s: %w", opt.File, err)
	}
	records := st.Records()
	if records == nil {
		records = []fpstore.Record{}
	}
	buf, err := json.MarshalIndent(records, "", " ")
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	_, err = w.Write(append(buf, '\n'))
	return err
}
