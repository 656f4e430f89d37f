// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"context"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"go.chromium.org/infra/build/fnbuild/digest"
	"go.chromium.org/infra/build/fnbuild/fndef"
	"go.chromium.org/infra/build/fnbuild/fpstore"
	"go.chromium.org/infra/build/fnbuild/scandefs"
	"go.chromium.org/infra/build/fnbuild/source"
)

// UnitDefs is definitions scanned in a source unit.
type UnitDefs struct {
	Unit *source.Unit
	Defs []fndef.Definition
}

// Planner computes a build plan from definitions and a fingerprint store.
type Planner struct{}

// node is a definition with its fresh fingerprint.
type node struct {
	def *fndef.Definition
	rec fpstore.Record

	dirty  bool
	reason string
}

// Plan computes fingerprints of defs, determines dirty keys, and stages
// fresh records of the dirty keys in store. It doesn't commit the store.
//
// Keys of defs must be unique. If not, the first definition is used.
func (p *Planner) Plan(ctx context.Context, defs []UnitDefs, store *fpstore.Store) *Plan {
	started := time.Now()
	nodes := make(map[string]*node)
	var order []string
	byName := make(map[string][]fndef.Key)
	for _, ud := range defs {
		buf := ud.Unit.Bytes()
		for i := range ud.Defs {
			d := &ud.Defs[i]
			k := d.Key()
			ks := k.String()
			if _, ok := nodes[ks]; ok {
				log.Warnf("duplicate definition %s in %s. ignored", ks, d.Unit)
				continue
			}
			nodes[ks] = &node{
				def: d,
				rec: fpstore.Record{
					Key:           k,
					ContentHash:   digest.FromBytes(d.Span.Bytes(buf)),
					PrototypeHash: digest.FromString(d.Prototype()),
					Clean:         true,
				},
			}
			order = append(order, ks)
			byName[d.Name] = append(byName[d.Name], k)
		}
	}
	slices.Sort(order)

	for _, ud := range defs {
		buf := ud.Unit.Bytes()
		for i := range ud.Defs {
			d := &ud.Defs[i]
			n := nodes[d.Key().String()]
			if n.def != d {
				continue
			}
			n.rec.Deps = dependencies(d, buf[d.BodyStart:d.Span.End+1], byName)
		}
	}

	// directly dirty.
	for _, ks := range order {
		n := nodes[ks]
		old, ok := store.Lookup(n.rec.Key)
		switch {
		case !ok:
			n.dirty, n.reason = true, ReasonNew
		case old.ContentHash != n.rec.ContentHash:
			n.dirty, n.reason = true, ReasonChanged
		case !old.Clean:
			n.dirty, n.reason = true, ReasonFailed
		default:
			// a dependency that is no longer defined has changed too.
			for _, dep := range old.Deps {
				if _, ok := nodes[dep.String()]; !ok {
					n.dirty, n.reason = true, ReasonDependsOn+dep.String()
					break
				}
			}
		}
	}

	// propagate until no key becomes dirty in a pass.
	passes := 0
	for changed := true; changed; {
		changed = false
		passes++
		for _, ks := range order {
			n := nodes[ks]
			if n.dirty {
				continue
			}
			for _, dep := range n.rec.Deps {
				if nodes[dep.String()].dirty {
					n.dirty = true
					n.reason = ReasonDependsOn + dep.String()
					changed = true
					break
				}
			}
		}
	}

	plan := &Plan{
		fresh: make(map[string]fpstore.Record, len(nodes)),
	}
	for _, ks := range order {
		n := nodes[ks]
		plan.fresh[ks] = n.rec
		if !n.dirty {
			continue
		}
		plan.Entries = append(plan.Entries, PlanEntry{
			Key:       n.rec.Key,
			Prototype: n.def.Prototype(),
			Unit:      n.def.Unit,
			Span:      n.def.Span,
			Reason:    n.reason,
		})
		store.Stage(n.rec)
	}
	for _, r := range store.Records() {
		if _, ok := nodes[r.Key.String()]; !ok {
			plan.Stale = append(plan.Stale, r.Key)
		}
	}
	log.Infof("plan: %d definitions, %d dirty, %d stale in %d passes %s", len(nodes), len(plan.Entries), len(plan.Stale), passes, time.Since(started))
	return plan
}

// dependencies returns keys used by call-shaped identifiers in body.
// Overloads are selected by the number of arguments. If no overload has
// the same arity, all overloads of the name are used.
func dependencies(d *fndef.Definition, body []byte, byName map[string][]fndef.Key) []fndef.Key {
	self := d.Key()
	var deps []fndef.Key
	for _, c := range scandefs.Calls(body) {
		cands := byName[c.Name]
		if len(cands) == 0 {
			continue
		}
		var matched []fndef.Key
		for _, k := range cands {
			if len(k.Params) == c.Args {
				matched = append(matched, k)
			}
		}
		if len(matched) == 0 {
			matched = cands
		}
		for _, k := range matched {
			if k.Equal(self) {
				continue
			}
			deps = append(deps, k)
		}
	}
	fndef.SortKeys(deps)
	return slices.CompactFunc(deps, fndef.Key.Equal)
}
