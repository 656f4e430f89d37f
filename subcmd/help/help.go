// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package help provides help subcommand.
package help

import (
	"flag"
	"fmt"
	"io"

	"github.com/maruel/subcommands"

	"go.chromium.org/infra/build/fnbuild/build/buildconfig"
	"go.chromium.org/infra/build/fnbuild/fpstore"
	"go.chromium.org/infra/build/fnbuild/subcmd/buildcmd"
)

// Cmd returns the Command for the `help` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "help [<command>|-advanced]",
		ShortDesc: "prints help about a command",
		LongDesc:  "Prints commands and globally-available flags or help about a specific command.\nUse -advanced to display all commands.",
		CommandRun: func() subcommands.CommandRun {
			ret := &helpCmdRun{}
			ret.Flags.BoolVar(&ret.advanced, "advanced", false, "show advanced commands")
			return ret
		},
	}
}

type helpCmdRun struct {
	subcommands.CommandRunBase
	advanced bool
}

func (h *helpCmdRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if len(args) == 0 {
		subcommands.Usage(a.GetOut(), a, h.advanced)
		fmt.Fprintln(a.GetOut(), "Common flags accepted by all commands:")
		flag.CommandLine.SetOutput(a.GetOut())
		flag.PrintDefaults()
		printFiles(a.GetOut())
		return 0
	}
	helpInit := subcommands.CmdHelp.CommandRun()
	return helpInit.Run(a, args, env)
}

// printFiles prints files fnbuild reads and writes in the root.
func printFiles(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Files in the root directory (-C):")
	fmt.Fprintf(w, "  %-24s optional starlark config; init(ctx) returns module(\"config\", ...)\n", buildconfig.DefaultFile)
	fmt.Fprintf(w, "  %-24s fingerprints committed by build\n", fpstore.DefaultFile)
	fmt.Fprintf(w, "  %-24s lock held while committing fingerprints\n", fpstore.DefaultFile+".lock")
	fmt.Fprintf(w, "  %-24s metrics of the last build\n", buildcmd.DefaultMetricsFile)
}
