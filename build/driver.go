// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"go.chromium.org/infra/build/fnbuild/fndef"
)

// Result is a build result of a key.
type Result struct {
	Key fndef.Key
	// Err is nil if the key was built successfully.
	Err error
}

// Driver builds plan entries, and reports results per key.
// It returns an error if it couldn't determine results.
type Driver interface {
	Build(ctx context.Context, entries []PlanEntry) ([]Result, error)
}

// TrustDriver reports success for all entries.
// It is used when the caller vouches that the entries were built.
type TrustDriver struct{}

// Build implements Driver.
func (TrustDriver) Build(ctx context.Context, entries []PlanEntry) ([]Result, error) {
	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		results = append(results, Result{Key: e.Key})
	}
	return results, nil
}

// ResultsDriver reads results produced by an external compile driver
// from a JSON file.
//
//	{
//	  "add(int,int)": "ok",
//	  "sub(int,int)": "error message"
//	}
//
// An entry missing in the file is reported as ErrNoResult.
type ResultsDriver struct {
	File string
}

// resultOK is a value for a successful key.
const resultOK = "ok"

// Build implements Driver.
func (d ResultsDriver) Build(ctx context.Context, entries []PlanEntry) ([]Result, error) {
	b, err := os.ReadFile(d.File)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	var raw map[string]string
	err = json.Unmarshal(b, &raw)
	if err != nil {
		return nil, fmt.Errorf("parse results %s: %w", d.File, err)
	}
	m := make(map[string]string, len(raw))
	for k, v := range raw {
		key, err := fndef.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("parse results %s: %w", d.File, err)
		}
		m[key.String()] = v
	}
	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		ks := e.Key.String()
		v, ok := m[ks]
		delete(m, ks)
		switch {
		case !ok:
			results = append(results, Result{Key: e.Key, Err: ErrNoResult})
		case v == resultOK:
			results = append(results, Result{Key: e.Key})
		default:
			results = append(results, Result{Key: e.Key, Err: errors.New(v)})
		}
	}
	for k := range m {
		log.Warnf("result for %s not in plan. ignored", k)
	}
	return results, nil
}
