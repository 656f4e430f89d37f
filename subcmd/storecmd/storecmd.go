// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package storecmd provides store subcommand.
package storecmd

import (
	"os"

	"github.com/maruel/subcommands"
)

// Cmd returns the Command for the `store` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "store <subcommand>",
		ShortDesc: "access fnbuild fingerprint store",
		LongDesc:  "access fnbuild fingerprint store.",
		Advanced:  true,
		CommandRun: func() subcommands.CommandRun {
			c := &storeRun{
				app: &subcommands.DefaultApplication{
					Name:  "fnbuild store",
					Title: "tool to access fnbuild fingerprint store",
					Commands: []*subcommands.Command{
						cmdExport(),
						cmdClear(),
						subcommands.CmdHelp,
					},
				},
			}
			c.Flags.Usage = func() {
				subcommands.Usage(os.Stderr, c.app, true)
			}
			return c
		},
	}
}

type storeRun struct {
	subcommands.CommandRunBase
	app *subcommands.DefaultApplication
}

func (c *storeRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	return subcommands.Run(c.app, args)
}
