// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"encoding/json"
	"io"

	"go.chromium.org/infra/build/fnbuild/fndef"
	"go.chromium.org/infra/build/fnbuild/fpstore"
)

// Reasons of dirty keys.
const (
	// ReasonNew is for a key absent in the store.
	ReasonNew = "new"
	// ReasonChanged is for a key whose content hash differs.
	ReasonChanged = "changed"
	// ReasonFailed is for a key that failed to build last time.
	ReasonFailed = "failed"
	// ReasonDependsOn is a prefix for a key that depends on a dirty key.
	ReasonDependsOn = "depends on "
)

// PlanEntry is a definition to build.
type PlanEntry struct {
	Key       fndef.Key  `json:"key"`
	Prototype string     `json:"prototype"`
	Unit      string     `json:"unit"`
	Span      fndef.Span `json:"span"`
	Reason    string     `json:"reason"`
}

// Plan is a build plan.
type Plan struct {
	// Entries are dirty definitions, sorted by key.
	Entries []PlanEntry `json:"entries"`

	// Stale are keys in the store not defined in the sources.
	Stale []fndef.Key `json:"stale,omitempty"`

	fresh map[string]fpstore.Record
}

// Keys returns dirty keys.
func (p *Plan) Keys() []fndef.Key {
	keys := make([]fndef.Key, 0, len(p.Entries))
	for _, e := range p.Entries {
		keys = append(keys, e.Key)
	}
	return keys
}

// Definitions returns number of definitions planned.
func (p *Plan) Definitions() int {
	return len(p.fresh)
}

// Fresh returns the fingerprint computed for the key.
func (p *Plan) Fresh(key fndef.Key) (fpstore.Record, bool) {
	r, ok := p.fresh[key.String()]
	return r, ok
}

// WriteJSON writes the plan in JSON.
func (p *Plan) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	entries := p.Entries
	if entries == nil {
		entries = []PlanEntry{}
	}
	return enc.Encode(struct {
		Entries []PlanEntry `json:"entries"`
		Stale   []fndef.Key `json:"stale,omitempty"`
	}{
		Entries: entries,
		Stale:   p.Stale,
	})
}
