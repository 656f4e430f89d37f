// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"sync"
)

type stats struct {
	mu sync.Mutex
	s  Stats
}

func (s *stats) scanned(ndefs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s.Units++
	s.s.Definitions += ndefs
}

func (s *stats) planned(p *Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s.Dirty = len(p.Entries)
	s.s.Stale = len(p.Stale)
	s.s.New, s.s.Changed, s.s.Retry, s.s.Propagated = 0, 0, 0, 0
	for _, e := range p.Entries {
		switch e.Reason {
		case ReasonNew:
			s.s.New++
		case ReasonChanged:
			s.s.Changed++
		case ReasonFailed:
			s.s.Retry++
		default:
			s.s.Propagated++
		}
	}
}

func (s *stats) built(results []Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range results {
		if r.Err != nil {
			s.s.Fail++
			continue
		}
		s.s.Done++
	}
}

// Stats keeps statistics about the run.
type Stats struct {
	Units       int // scanned source units
	Definitions int // scanned definitions
	Dirty       int // definitions to build
	New         int // dirty definitions absent in the store
	Changed     int // dirty definitions whose content changed
	Retry       int // dirty definitions that failed last time
	Propagated  int // dirty definitions that depend on dirty definitions
	Stale       int // keys in the store no longer defined
	Done        int // definitions built successfully
	Fail        int // definitions failed to build
}

func (s *stats) stats() Stats {
	if s == nil {
		return Stats{}
	}
	s.mu.Lock()
	stats := s.s
	s.mu.Unlock()
	return stats
}
