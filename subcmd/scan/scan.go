// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package scan provides scan subcommand to debug the definition scanner.
package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"

	"go.chromium.org/infra/build/fnbuild/fndef"
	"go.chromium.org/infra/build/fnbuild/scandefs"
	"go.chromium.org/infra/build/fnbuild/source"
)

const usage = `scan function definitions in files.

 $ fnbuild scan [-calls] [-json] <files>...

Prints each definition's unit, inclusive byte span and prototype.
`

// Cmd returns the Command for the `scan` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "scan <files>...",
		ShortDesc: "scan function definitions in files",
		LongDesc:  usage,
		Advanced:  true,
		CommandRun: func() subcommands.CommandRun {
			c := &run{}
			c.init()
			return c
		},
	}
}

type run struct {
	subcommands.CommandRunBase
	calls   bool
	jsonOut bool
}

func (c *run) init() {
	c.Flags.BoolVar(&c.calls, "calls", false, "print calls found in each body")
	c.Flags.BoolVar(&c.jsonOut, "json", false, "print definitions in JSON")
}

func (c *run) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "%s: no files\n", a.GetName())
		return 2
	}
	err := c.run(ctx, os.Stdout, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func (c *run) run(ctx context.Context, w io.Writer, fnames []string) error {
	var all []fndef.Definition
	for _, fname := range fnames {
		buf, err := readFile(fname)
		if err != nil {
			return err
		}
		defs, err := scandefs.Scan(ctx, fname, buf)
		if err != nil {
			var perr *scandefs.ParseError
			if errors.As(err, &perr) {
				line, col := perr.LineCol(buf)
				return fmt.Errorf("%s:%d:%d: %s", perr.Unit, line, col, perr.Msg)
			}
			return err
		}
		if c.jsonOut {
			all = append(all, defs...)
			continue
		}
		for _, d := range defs {
			fmt.Fprintln(w, d)
			if !c.calls {
				continue
			}
			for _, call := range scandefs.Calls(buf[d.BodyStart : d.Span.End+1]) {
				fmt.Fprintf(w, "\tcalls %s/%d\n", call.Name, call.Args)
			}
		}
	}
	if !c.jsonOut {
		return nil
	}
	if all == nil {
		all = []fndef.Definition{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	return enc.Encode(all)
}

func readFile(fname string) ([]byte, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var b source.Buffer
	_, err = b.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fname, err)
	}
	return b.Bytes(), nil
}
