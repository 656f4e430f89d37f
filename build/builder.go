// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package build plans and drives selective rebuild of function definitions.
package build

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"go.chromium.org/infra/build/fnbuild/fndef"
	"go.chromium.org/infra/build/fnbuild/fpstore"
	"go.chromium.org/infra/build/fnbuild/runtimex"
	"go.chromium.org/infra/build/fnbuild/scandefs"
	"go.chromium.org/infra/build/fnbuild/source"
)

// Options is builder options.
type Options struct {
	// ID is a build id. If empty, a new uuid is used.
	ID string

	Source source.Source
	Store  *fpstore.Store

	// Driver builds plan entries. TrustDriver is used if nil.
	Driver Driver

	// Jobs is the number of source units scanned in parallel.
	// If it is not positive, number of CPUs is used.
	Jobs int

	// DryRun plans only. The driver is not called, and the store is
	// not committed.
	DryRun bool

	// Prune deletes keys no longer defined from the store.
	Prune bool
}

// Builder plans a build, drives it and commits fingerprints.
type Builder struct {
	id     string
	src    source.Source
	store  *fpstore.Store
	driver Driver
	jobs   int
	dryRun bool
	prune  bool

	stats   stats
	metrics Metrics
}

// New creates a new builder.
func New(ctx context.Context, opts Options) (*Builder, error) {
	if opts.Source == nil {
		return nil, errors.New("no source")
	}
	if opts.Store == nil {
		return nil, errors.New("no fingerprint store")
	}
	if opts.ID == "" {
		opts.ID = uuid.New().String()
	}
	if opts.Driver == nil {
		opts.Driver = TrustDriver{}
	}
	b := &Builder{
		id:     opts.ID,
		src:    opts.Source,
		store:  opts.Store,
		driver: opts.Driver,
		jobs:   runtimex.Jobs(opts.Jobs),
		dryRun: opts.DryRun,
		prune:  opts.Prune,
	}
	b.metrics.BuildID = b.id
	b.metrics.ColdStart = opts.Store.LoadErr() != nil
	b.metrics.DryRun = opts.DryRun
	return b, nil
}

// ID returns the build id.
func (b *Builder) ID() string { return b.id }

// Stats returns stats of the run.
func (b *Builder) Stats() Stats { return b.stats.stats() }

// Metrics returns metrics of the run.
func (b *Builder) Metrics() Metrics {
	m := b.metrics
	m.Stats = b.stats.stats()
	return m
}

// Scan reads and scans all source units in parallel.
// It fails if any unit fails to read or scan.
func (b *Builder) Scan(ctx context.Context) ([]UnitDefs, error) {
	started := time.Now()
	defer func() {
		b.metrics.Scan = IntervalMetric(time.Since(started))
	}()
	names, err := b.src.List(ctx)
	if err != nil {
		return nil, err
	}
	log.Infof("scan %d units with jobs=%d", len(names), b.jobs)
	sampler := newSemaphoreSampler(source.ReadSemaphore)
	defer func() {
		m := sampler.metric()
		log.Infof("%s: %d requests, max servs %d/%d, max waits %d", m.Name, m.Requests, m.MaxServs, m.Capacity, m.MaxWaits)
		b.metrics.SourceRead = m
	}()
	units := make([]UnitDefs, len(names))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(b.jobs)
	for i, name := range names {
		eg.Go(func() error {
			sampler.sample()
			u, err := b.src.Read(ctx, name)
			if err != nil {
				return err
			}
			defs, err := scandefs.Scan(ctx, name, u.Bytes())
			if err != nil {
				return err
			}
			units[i] = UnitDefs{Unit: u, Defs: defs}
			b.stats.scanned(len(defs))
			return nil
		})
	}
	err = eg.Wait()
	if err != nil {
		return nil, err
	}
	err = checkDuplicates(units)
	if err != nil {
		return nil, err
	}
	return units, nil
}

func checkDuplicates(units []UnitDefs) error {
	seen := make(map[string]fndef.Definition)
	for _, u := range units {
		for _, d := range u.Defs {
			k := d.Key()
			if first, ok := seen[k.String()]; ok {
				return DuplicateDefinitionError{Key: k, First: first, Second: d}
			}
			seen[k.String()] = d
		}
	}
	return nil
}

// Plan scans source units and computes a build plan.
// Fresh records of dirty keys are staged in the store.
func (b *Builder) Plan(ctx context.Context) (*Plan, error) {
	units, err := b.Scan(ctx)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	var p Planner
	plan := p.Plan(ctx, units, b.store)
	b.metrics.Plan = IntervalMetric(time.Since(started))
	b.stats.planned(plan)
	return plan, nil
}

// Build plans, drives the dirty definitions and commits the store.
// Keys the driver reports as failed are committed as not clean, so they
// will be dirty in the next run. It returns BuildError if any key failed.
func (b *Builder) Build(ctx context.Context, plan *Plan) error {
	if b.dryRun {
		log.Infof("dry run: %d dirty definitions", len(plan.Entries))
		return nil
	}
	if b.prune {
		for _, k := range plan.Stale {
			b.store.Forget(k)
		}
	}
	var failed []Result
	if len(plan.Entries) > 0 {
		started := time.Now()
		results, err := b.driver.Build(ctx, plan.Entries)
		b.metrics.Drive = IntervalMetric(time.Since(started))
		if err != nil {
			return fmt.Errorf("driver: %w", err)
		}
		results = complete(plan, results)
		b.stats.built(results)
		for _, r := range results {
			if r.Err == nil {
				continue
			}
			log.Warnf("%s failed: %v", r.Key, r.Err)
			failed = append(failed, r)
			rec, ok := plan.Fresh(r.Key)
			if !ok {
				continue
			}
			rec.Clean = false
			b.store.Stage(rec)
		}
	}
	started := time.Now()
	err := b.store.Commit(ctx)
	b.metrics.Commit = IntervalMetric(time.Since(started))
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		return BuildError{Failed: failed}
	}
	return nil
}

// complete returns results for all plan entries. An entry without
// result is reported as ErrNoResult. Results for keys not in the plan
// are dropped.
func complete(plan *Plan, results []Result) []Result {
	m := make(map[string]Result, len(results))
	for _, r := range results {
		m[r.Key.String()] = r
	}
	out := make([]Result, 0, len(plan.Entries))
	for _, e := range plan.Entries {
		r, ok := m[e.Key.String()]
		if !ok {
			r = Result{Key: e.Key, Err: ErrNoResult}
		}
		out = append(out, r)
	}
	return out
}

// Run plans and builds, recording metrics of the whole run.
func (b *Builder) Run(ctx context.Context) (*Plan, error) {
	b.metrics.Start = time.Now()
	defer func() {
		b.metrics.Duration = IntervalMetric(time.Since(b.metrics.Start))
	}()
	plan, err := b.Plan(ctx)
	if err != nil {
		b.metrics.Err = err.Error()
		return nil, err
	}
	err = b.Build(ctx, plan)
	if err != nil {
		b.metrics.Err = err.Error()
	}
	return plan, err
}

// SetLoadTime records the time to load the store.
func (b *Builder) SetLoadTime(d time.Duration) {
	b.metrics.Load = IntervalMetric(d)
}
