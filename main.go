// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// fnbuild rebuilds only the function definitions whose fingerprints changed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"

	"go.chromium.org/infra/build/fnbuild/subcmd/buildcmd"
	"go.chromium.org/infra/build/fnbuild/subcmd/help"
	"go.chromium.org/infra/build/fnbuild/subcmd/scan"
	"go.chromium.org/infra/build/fnbuild/subcmd/storecmd"
	"go.chromium.org/infra/build/fnbuild/subcmd/version"
	"go.chromium.org/infra/build/fnbuild/ui"
)

const versionID = "v0.1.0"

var (
	verbose = flag.Bool("v", false, "verbose logging")
	logFile = flag.String("log_file", "", "write logs to the file instead of stderr")
)

func getApplication() *cli.Application {
	return &cli.Application{
		Name:  "fnbuild",
		Title: "Selective rebuild of function definitions",
		Context: func(ctx context.Context) context.Context {
			return ctx
		},
		Commands: []*subcommands.Command{
			buildcmd.CmdBuild(),
			buildcmd.CmdPlan(),
			scan.Cmd(),
			storecmd.Cmd(),

			help.Cmd(),
			version.Cmd(fmt.Sprintf("fnbuild %s", versionID)),
		},
	}
}

func main() {
	os.Exit(fnbuildMain())
}

func fnbuildMain() int {
	flag.Parse()
	defer ui.Init()()

	closeLog, err := setupLog(*verbose, *logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up log: %v\n", err)
		return 1
	}
	defer closeLog()

	// Print a stack trace when a panic occurs.
	defer func() {
		if r := recover(); r != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			log.Fatalf("panic: %v\n%s", r, buf)
		}
	}()

	// Print build information to the log.
	buildinfo, ok := debug.ReadBuildInfo()
	if ok {
		log.Infof("main module: %s %s", moduleInfo(&buildinfo.Main), vcsInfo(buildinfo))
		for _, m := range buildinfo.Deps {
			log.Debugf("deps module: %s", moduleInfo(m))
		}
	}
	return subcommands.Run(getApplication(), flag.Args())
}

func setupLog(verbose bool, fname string) (func(), error) {
	log.SetReportTimestamp(true)
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
	if fname == "" {
		return func() {}, nil
	}
	f, err := os.OpenFile(fname, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}

func moduleInfo(m *debug.Module) string {
	if m == nil {
		return "<nil>"
	}
	return fmt.Sprintf("path:%s version:%s sum:%s replace:%s", m.Path, m.Version, m.Sum, moduleInfo(m.Replace))
}

func vcsInfo(buildinfo *debug.BuildInfo) string {
	m := make(map[string]string)
	for _, bs := range buildinfo.Settings {
		if strings.HasPrefix(bs.Key, "vcs.") {
			m[bs.Key] = bs.Value
		}
	}
	return fmt.Sprintf("vcs[revision=%s time=%s modified=%s]", m["vcs.revision"], m["vcs.time"], m["vcs.modified"])
}
