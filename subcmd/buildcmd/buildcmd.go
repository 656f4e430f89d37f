// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package buildcmd implements the subcommands `plan` and `build` which
// scan source units, plan the dirty definitions and drive the rebuild.
package buildcmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/cpuid/v2"
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/system/signals"

	"go.chromium.org/infra/build/fnbuild/build"
	"go.chromium.org/infra/build/fnbuild/build/buildconfig"
	"go.chromium.org/infra/build/fnbuild/fpstore"
	"go.chromium.org/infra/build/fnbuild/source"
	"go.chromium.org/infra/build/fnbuild/ui"
)

const buildUsage = `rebuild function definitions that changed since the last build.

 $ fnbuild build [-C <dir>] [options]

Definitions are scanned from source units under the directory, compared
with the fingerprint store, and the dirty ones are handed to a driver.
With -results <file>, the driver reads per-key outcomes from a JSON file
mapping "name(T1,T2)" to "ok" or an error message. Without it, every
dirty definition is reported as built.
`

const planUsage = `print function definitions that need to be rebuilt.

 $ fnbuild plan [-C <dir>] [-json] [options]

The fingerprint store is not modified.
`

// DefaultMetricsFile is the default filename of run metrics.
const DefaultMetricsFile = ".fnbuild_metrics.json"

type mode int

const (
	modePlan mode = iota
	modeBuild
)

// CmdBuild returns the Command for the `build` subcommand.
func CmdBuild() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "build [-C <dir>] [options]",
		ShortDesc: "rebuild changed function definitions",
		LongDesc:  buildUsage,
		CommandRun: func() subcommands.CommandRun {
			r := &run{mode: modeBuild}
			r.init()
			return r
		},
	}
}

// CmdPlan returns the Command for the `plan` subcommand.
func CmdPlan() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "plan [-C <dir>] [options]",
		ShortDesc: "print function definitions to rebuild",
		LongDesc:  planUsage,
		CommandRun: func() subcommands.CommandRun {
			r := &run{mode: modePlan}
			r.init()
			return r
		},
	}
}

type run struct {
	subcommands.CommandRunBase
	mode    mode
	started time.Time

	// flag values
	dir         string
	configFile  string
	configFlags keyValueFlags
	jobs        int

	jsonOut bool

	dryRun      bool
	resultsFile string
	planOut     string
	prune       bool
	metricsFile string

	srcOpt   source.DirOption
	storeOpt fpstore.Option
}

func (c *run) init() {
	c.Flags.StringVar(&c.dir, "C", ".", "root directory of source units. other filenames are relative to it")
	c.Flags.StringVar(&c.configFile, "config", buildconfig.DefaultFile, "starlark config file. ignored if the default doesn't exist")
	c.configFlags = make(keyValueFlags)
	c.Flags.Var(c.configFlags, "config_flag", "key=value passed to config as ctx.flags. can be repeated")
	c.Flags.IntVar(&c.jobs, "j", 0, "number of source units scanned in parallel. 0 means number of CPUs")
	c.srcOpt.RegisterFlags(&c.Flags)
	c.storeOpt.RegisterFlags(&c.Flags)
	switch c.mode {
	case modePlan:
		c.Flags.BoolVar(&c.jsonOut, "json", false, "print the plan in JSON")
	case modeBuild:
		c.Flags.BoolVar(&c.dryRun, "n", false, "dry run. plan only, don't drive nor commit")
		c.Flags.StringVar(&c.resultsFile, "results", "", "JSON file of build results per key. all dirty keys succeed if empty")
		c.Flags.StringVar(&c.planOut, "plan_out", "", "write the plan in JSON to the file")
		c.Flags.BoolVar(&c.prune, "prune", false, "delete fingerprints of definitions no longer in the sources")
		c.Flags.StringVar(&c.metricsFile, "metrics", DefaultMetricsFile, "write run metrics in JSON to the file. disabled if empty")
	}
}

type flagError struct {
	err error
}

func (f flagError) Error() string {
	return f.err.Error()
}

func (f flagError) Unwrap() error {
	return f.err
}

type errInterrupted struct{}

func (errInterrupted) Error() string        { return "interrupt by signal" }
func (errInterrupted) Is(target error) bool { return target == context.Canceled }

// Run runs the `plan` or `build` subcommand.
func (c *run) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	c.started = time.Now()
	ctx := cli.GetContext(a, c, env)
	if len(args) != 0 {
		fmt.Fprintf(os.Stderr, "%s: position arguments not expected\n", a.GetName())
		return 2
	}
	plan, stats, err := c.run(ctx)
	dur := ui.Highlight(ui.Bold, ui.FormatDuration(time.Since(c.started)))
	if err != nil {
		var errFlag flagError
		var errBuild build.BuildError
		var errDup build.DuplicateDefinitionError
		switch {
		case errors.As(err, &errFlag):
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 2
		case errors.As(err, &errBuild):
			fmt.Fprintf(os.Stderr, "\n%6s %s: %d done %d failed\n", dur, ui.Highlight(ui.Red, "Build Failure"), stats.Done, stats.Fail)
			for _, r := range errBuild.Failed {
				ui.Default.Warningf("%s: %v", r.Key, r.Err)
			}
		case errors.As(err, &errDup):
			fmt.Fprintf(os.Stderr, "\n%6s %s: %v\n", dur, ui.Highlight(ui.Red, "Plan Failure"), errDup)
		default:
			fmt.Fprintf(os.Stderr, "\n%6s %s: %v\n", dur, ui.Highlight(ui.Red, "Error"), err)
		}
		return 1
	}
	switch {
	case c.mode == modePlan:
		fmt.Fprintf(os.Stderr, "%6s Planned: %d of %d definitions dirty, %d stale\n", dur, stats.Dirty, stats.Definitions, stats.Stale)
	case len(plan.Entries) == 0:
		fmt.Fprintf(os.Stderr, "%6s %s Nothing to do.\n", dur, ui.Highlight(ui.Green, "Everything is up-to-date"))
	case c.dryRun:
		fmt.Fprintf(os.Stderr, "%6s Dry run: %d of %d definitions dirty\n", dur, stats.Dirty, stats.Definitions)
	default:
		fmt.Fprintf(os.Stderr, "%6s %s: %d of %d definitions rebuilt\n", dur, ui.Highlight(ui.Green, "Build Succeeded"), stats.Done, stats.Definitions)
	}
	return 0
}

func (c *run) run(ctx context.Context) (*build.Plan, build.Stats, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer signals.HandleInterrupt(func() {
		cancel(errInterrupted{})
	})()

	err := os.Chdir(c.dir)
	if err != nil {
		return nil, build.Stats{}, flagError{err: fmt.Errorf("failed to chdir %s: %w", c.dir, err)}
	}
	err = c.applyConfig(ctx)
	if err != nil {
		return nil, build.Stats{}, err
	}
	log.Infof("%s", cpuinfo())

	started := time.Now()
	spin := ui.Default.NewSpinner()
	spin.Start("loading fingerprints %s", c.storeOpt.File)
	store := fpstore.Load(ctx, c.storeOpt)
	if store.LoadErr() != nil {
		spin.Done("no fingerprints. cold start")
	} else {
		spin.Done("loaded %d fingerprints from %s", store.Len(), store.Filename())
	}
	loadTime := time.Since(started)

	var driver build.Driver
	if c.resultsFile != "" {
		driver = build.ResultsDriver{File: c.resultsFile}
	}
	b, err := build.New(ctx, build.Options{
		Source: source.NewDir(".", c.srcOpt),
		Store:  store,
		Driver: driver,
		Jobs:   c.jobs,
		DryRun: c.dryRun || c.mode == modePlan,
		Prune:  c.prune,
	})
	if err != nil {
		return nil, build.Stats{}, err
	}
	b.SetLoadTime(loadTime)
	log.Infof("build id: %q", b.ID())
	defer func() {
		if c.metricsFile == "" {
			return
		}
		merr := b.Metrics().WriteFile(c.metricsFile)
		if merr != nil {
			log.Warnf("failed to write metrics %s: %v", c.metricsFile, merr)
		}
	}()

	spin = ui.Default.NewSpinner()
	var plan *build.Plan
	if c.mode == modePlan {
		spin.Start("planning")
		plan, err = b.Plan(ctx)
	} else {
		spin.Start("building")
		plan, err = b.Run(ctx)
	}
	stats := b.Stats()
	if err != nil {
		spin.Stop(err)
	} else {
		spin.Done("%d of %d definitions dirty", stats.Dirty, stats.Definitions)
	}
	if plan != nil {
		werr := c.writePlan(plan)
		if err == nil {
			err = werr
		}
	}
	return plan, stats, err
}

func (c *run) writePlan(plan *build.Plan) error {
	switch {
	case c.mode == modePlan && c.jsonOut:
		return plan.WriteJSON(os.Stdout)
	case c.mode == modePlan:
		for _, e := range plan.Entries {
			fmt.Printf("%s\t%s:%s\t%s\n", e.Prototype, e.Unit, e.Span, e.Reason)
		}
		for _, k := range plan.Stale {
			fmt.Printf("%s\tstale\n", k)
		}
		return nil
	case c.planOut != "":
		f, err := os.Create(c.planOut)
		if err != nil {
			return err
		}
		err = plan.WriteJSON(f)
		cerr := f.Close()
		if err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("failed to write plan %s: %w", c.planOut, err)
		}
	}
	return nil
}

func cpuinfo() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "cpu family=%d model=%d stepping=%d ", cpuid.CPU.Family, cpuid.CPU.Model, cpuid.CPU.Stepping)
	fmt.Fprintf(&sb, "brand=%q vendor=%q ", cpuid.CPU.BrandName, cpuid.CPU.VendorString)
	fmt.Fprintf(&sb, "physicalCores=%d threadsPerCore=%d logicalCores=%d ", cpuid.CPU.PhysicalCores, cpuid.CPU.ThreadsPerCore, cpuid.CPU.LogicalCores)
	fmt.Fprintf(&sb, "vm=%t features=%s", cpuid.CPU.VM(), cpuid.CPU.FeatureSet())
	return sb.String()
}
