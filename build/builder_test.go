// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.chromium.org/infra/build/fnbuild/fpstore"
	"go.chromium.org/infra/build/fnbuild/scandefs"
	"go.chromium.org/infra/build/fnbuild/source"
)

type testEnv struct {
	t     *testing.T
	dir   string
	store string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	return &testEnv{
		t:     t,
		dir:   dir,
		store: filepath.Join(dir, fpstore.DefaultFile),
	}
}

// run runs a build over src, and returns dirty keys.
func (e *testEnv) run(ctx context.Context, src source.Source, opts Options) ([]string, error) {
	e.t.Helper()
	opts.Source = src
	opts.Store = fpstore.Load(ctx, fpstore.Option{File: e.store})
	b, err := New(ctx, opts)
	if err != nil {
		e.t.Fatalf("New=%v", err)
	}
	plan, err := b.Run(ctx)
	if plan == nil {
		return nil, err
	}
	return keyStrings(plan.Keys()), err
}

func (e *testEnv) mustRun(ctx context.Context, src source.Source, opts Options) []string {
	e.t.Helper()
	keys, err := e.run(ctx, src, opts)
	if err != nil {
		e.t.Fatalf("run=%v; want nil error", err)
	}
	return keys
}

func TestBuild_SecondRunClean(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	src := source.Map{"math.cc": []byte(addSrc + subSrc)}

	got := env.mustRun(ctx, src, Options{})
	if diff := cmp.Diff([]string{"add(int,int)", "sub(int,int)"}, got); diff != "" {
		t.Errorf("first run diff -want +got:\n%s", diff)
	}
	got = env.mustRun(ctx, src, Options{})
	if len(got) != 0 {
		t.Errorf("second run=%q; want empty", got)
	}
}

func TestBuild_ChangedBody(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.mustRun(ctx, source.Map{"math.cc": []byte(addSrc + subSrc)}, Options{})

	got := env.mustRun(ctx, source.Map{"math.cc": []byte(addSrcV2 + subSrc)}, Options{})
	if diff := cmp.Diff([]string{"add(int,int)"}, got); diff != "" {
		t.Errorf("run diff -want +got:\n%s", diff)
	}
}

func TestBuild_DependentRebuilt(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.mustRun(ctx, source.Map{
		"math.cc":    []byte(addSrc + subSrc),
		"compute.cc": []byte(computeSrc),
	}, Options{})

	got := env.mustRun(ctx, source.Map{
		"math.cc":    []byte(addSrcV2 + subSrc),
		"compute.cc": []byte(computeSrc),
	}, Options{})
	if diff := cmp.Diff([]string{"add(int,int)", "compute(int,int)"}, got); diff != "" {
		t.Errorf("run diff -want +got:\n%s", diff)
	}
}

func TestBuild_SingleCharChange(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.mustRun(ctx, source.Map{"math.cc": []byte(addSrc + subSrc + computeSrc)}, Options{})

	store := fpstore.Load(ctx, fpstore.Option{File: env.store})
	before := store.Records()

	// "a - b" -> "a - c"
	got := env.mustRun(ctx, source.Map{
		"math.cc": []byte(addSrc + "int sub(int a, int b) { return a - c; }\n" + computeSrc),
	}, Options{})
	if diff := cmp.Diff([]string{"sub(int,int)"}, got); diff != "" {
		t.Errorf("run diff -want +got:\n%s", diff)
	}
	store = fpstore.Load(ctx, fpstore.Option{File: env.store})
	after := store.Records()
	for i := range before {
		changed := before[i].ContentHash != after[i].ContentHash
		if want := before[i].Key.String() == "sub(int,int)"; changed != want {
			t.Errorf("%s content hash changed=%t; want %t", before[i].Key, changed, want)
		}
	}
}

func TestBuild_DryRunWithoutStore(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	src := source.Map{"math.cc": []byte(addSrc + subSrc)}
	first := env.mustRun(ctx, src, Options{DryRun: true})
	second := env.mustRun(ctx, src, Options{DryRun: true})
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("dry runs differ -first +second:\n%s", diff)
	}
	if len(first) != 2 {
		t.Errorf("dry run=%q; want 2 keys", first)
	}
	if _, err := os.Stat(env.store); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("store committed in dry run: %v", err)
	}
}

func TestBuild_ParseError(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.mustRun(ctx, source.Map{"math.cc": []byte(addSrc)}, Options{})
	stored, err := os.ReadFile(env.store)
	if err != nil {
		t.Fatal(err)
	}

	keys, err := env.run(ctx, source.Map{
		"math.cc": []byte(addSrcV2),
		"f.cc":    []byte("int f(int a { return a; }"),
	}, Options{})
	var perr *scandefs.ParseError
	if !errors.As(err, &perr) || perr.Unit != "f.cc" || perr.Offset != 12 {
		t.Fatalf("run=%q, %v; want ParseError at f.cc:12", keys, err)
	}
	if keys != nil {
		t.Errorf("run=%q; want no plan", keys)
	}
	got, err := os.ReadFile(env.store)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(stored) {
		t.Errorf("store modified by failed run")
	}
}

func TestBuild_ReadError(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.run(ctx, source.NewDir(filepath.Join(env.dir, "missing"), source.DirOption{}), Options{})
	var rerr *source.ReadError
	if !errors.As(err, &rerr) {
		t.Errorf("run=%v; want ReadError", err)
	}
}

func TestBuild_DuplicateDefinition(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.run(ctx, source.Map{
		"a.cc": []byte(addSrc),
		"b.cc": []byte(subSrc + addSrcV2),
	}, Options{})
	var derr DuplicateDefinitionError
	if !errors.As(err, &derr) || !errors.Is(err, ErrDuplicateDefinition) {
		t.Fatalf("run=%v; want DuplicateDefinitionError", err)
	}
	if derr.Key.String() != "add(int,int)" || derr.First.Unit != "a.cc" || derr.Second.Unit != "b.cc" {
		t.Errorf("err=%v; want add(int,int) in a.cc and b.cc", err)
	}
}

func writeResults(t *testing.T, fname string, results map[string]string) {
	t.Helper()
	b, err := json.Marshal(results)
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(fname, b, 0644)
	if err != nil {
		t.Fatal(err)
	}
}

func TestBuild_Failure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	src := source.Map{"math.cc": []byte(addSrc + subSrc + computeSrc)}
	results := filepath.Join(env.dir, "results.json")
	writeResults(t, results, map[string]string{
		"add(int, int)": "ok",
		"sub(int,int)":  "error: expected ';'",
	})

	keys, err := env.run(ctx, src, Options{Driver: ResultsDriver{File: results}})
	var berr BuildError
	if !errors.As(err, &berr) {
		t.Fatalf("run=%q, %v; want BuildError", keys, err)
	}
	var failed []string
	for _, r := range berr.Failed {
		failed = append(failed, r.Key.String())
	}
	if diff := cmp.Diff([]string{"compute(int,int)", "sub(int,int)"}, failed); diff != "" {
		t.Errorf("failed diff -want +got:\n%s", diff)
	}
	if !errors.Is(err, ErrNoResult) {
		t.Errorf("errors.Is(%v, ErrNoResult)=false; want true", err)
	}

	// failed keys are committed as not clean.
	store := fpstore.Load(ctx, fpstore.Option{File: env.store})
	for _, r := range store.Records() {
		want := r.Key.String() == "add(int,int)"
		if r.Clean != want {
			t.Errorf("%s clean=%t; want %t", r.Key, r.Clean, want)
		}
	}

	// unchanged sources, failed keys are still dirty.
	got := env.mustRun(ctx, src, Options{})
	if diff := cmp.Diff([]string{"compute(int,int)", "sub(int,int)"}, got); diff != "" {
		t.Errorf("retry run diff -want +got:\n%s", diff)
	}
	got = env.mustRun(ctx, src, Options{})
	if len(got) != 0 {
		t.Errorf("run after success=%q; want empty", got)
	}
}

func TestBuild_DriverError(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	src := source.Map{"math.cc": []byte(addSrc)}
	_, err := env.run(ctx, src, Options{Driver: ResultsDriver{File: filepath.Join(env.dir, "missing.json")}})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("run=%v; want os.ErrNotExist", err)
	}
	if _, err := os.Stat(env.store); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("store committed after driver error: %v", err)
	}
}

func TestBuild_Prune(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.mustRun(ctx, source.Map{"math.cc": []byte(addSrc + subSrc)}, Options{})

	src := source.Map{"math.cc": []byte(addSrc)}
	env.mustRun(ctx, src, Options{})
	store := fpstore.Load(ctx, fpstore.Option{File: env.store})
	if got := store.Len(); got != 2 {
		t.Errorf("without prune: Len()=%d; want 2", got)
	}

	env.mustRun(ctx, src, Options{Prune: true})
	store = fpstore.Load(ctx, fpstore.Option{File: env.store})
	var got []string
	for _, r := range store.Records() {
		got = append(got, r.Key.String())
	}
	if diff := cmp.Diff([]string{"add(int,int)"}, got); diff != "" {
		t.Errorf("with prune: records diff -want +got:\n%s", diff)
	}
}

func TestBuild_Dir(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	root := filepath.Join(env.dir, "src")
	for name, content := range map[string]string{
		"math.cc":          addSrc + subSrc,
		"app/compute.cc":   computeSrc,
		"app/compute.h":    "int compute(int a, int b);\n",
		"out/generated.cc": "this is not scanned",
	} {
		fname := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(fname), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(fname, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	src := source.NewDir(root, source.DirOption{Exclude: []string{"out"}})
	got := env.mustRun(ctx, src, Options{Jobs: 2})
	want := []string{"add(int,int)", "compute(int,int)", "sub(int,int)"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("first run diff -want +got:\n%s", diff)
	}
	got = env.mustRun(ctx, src, Options{Jobs: 2})
	if len(got) != 0 {
		t.Errorf("second run=%q; want empty", got)
	}
}

func TestBuilderMetrics(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	store := fpstore.Load(ctx, fpstore.Option{File: env.store})
	b, err := New(ctx, Options{
		Source: source.Map{"math.cc": []byte(addSrc + subSrc + computeSrc)},
		Store:  store,
	})
	if err != nil {
		t.Fatal(err)
	}
	if b.ID() == "" {
		t.Errorf("ID()=%q; want uuid", b.ID())
	}
	if _, err := b.Run(ctx); err != nil {
		t.Fatal(err)
	}
	m := b.Metrics()
	if !m.ColdStart || m.BuildID != b.ID() {
		t.Errorf("Metrics()=%#v; want cold start with build id %s", m, b.ID())
	}
	want := Stats{Units: 1, Definitions: 3, Dirty: 3, New: 3, Done: 3}
	if diff := cmp.Diff(want, m.Stats); diff != "" {
		t.Errorf("Stats diff -want +got:\n%s", diff)
	}
	fname := filepath.Join(env.dir, "metrics.json")
	if err := m.WriteFile(fname); err != nil {
		t.Fatal(err)
	}
	buf, err := os.ReadFile(fname)
	if err != nil {
		t.Fatal(err)
	}
	var loaded Metrics
	if err := json.Unmarshal(buf, &loaded); err != nil {
		t.Fatalf("json.Unmarshal(%s)=%v", buf, err)
	}
	if loaded.BuildID != m.BuildID || loaded.Stats != m.Stats {
		t.Errorf("loaded metrics=%#v; want %#v", loaded, m)
	}
}

func TestBuilderSourceReadMetrics(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	root := filepath.Join(env.dir, "src")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range map[string]string{
		"a.cc": addSrc,
		"b.cc": subSrc,
		"c.h":  "int add(int a, int b);\n",
	} {
		fname := filepath.Join(root, name)
		if err := os.WriteFile(fname, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	b, err := New(ctx, Options{
		Source: source.NewDir(root, source.DirOption{}),
		Store:  fpstore.Load(ctx, fpstore.Option{File: env.store}),
		Jobs:   1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Scan(ctx); err != nil {
		t.Fatal(err)
	}
	got := b.Metrics().SourceRead
	want := SemaphoreMetric{
		Name:     "source-read",
		Capacity: source.ReadSemaphore.Capacity(),
		Requests: 2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SourceRead diff -want +got:\n%s", diff)
	}
}
