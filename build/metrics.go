// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"go.chromium.org/infra/build/fnbuild/sync/semaphore"
)

// IntervalMetric is a time duration, but serialized as seconds in JSON.
type IntervalMetric time.Duration

// MarshalJSON marshals the IntervalMetric as float64 of seconds.
func (i IntervalMetric) MarshalJSON() ([]byte, error) {
	d := time.Duration(i)
	secs := d.Seconds()
	return json.Marshal(secs)
}

// UnmarshalJSON unmarshals float64 of seconds as an IntervalMetric.
func (i *IntervalMetric) UnmarshalJSON(b []byte) error {
	var secs float64
	err := json.Unmarshal(b, &secs)
	if err != nil {
		return err
	}
	*i = IntervalMetric(time.Duration(int64(secs * 1e9)))
	return nil
}

// Metrics contains metrics about a run.
type Metrics struct {
	BuildID string    `json:"build_id"`
	Start   time.Time `json:"start"`

	// ColdStart is true when the fingerprint store was not loaded.
	ColdStart bool `json:"cold_start,omitempty"`
	DryRun    bool `json:"dry_run,omitempty"`

	// Load is the time to load the fingerprint store.
	Load IntervalMetric `json:"load"`
	// Scan is the time to list, read and scan source units.
	Scan IntervalMetric `json:"scan"`
	// Plan is the time to fingerprint and plan.
	Plan IntervalMetric `json:"plan"`
	// Drive is the time the driver took to report results.
	Drive IntervalMetric `json:"drive,omitempty"`
	// Commit is the time to commit the fingerprint store.
	Commit IntervalMetric `json:"commit,omitempty"`
	// Duration is the time of the whole run.
	Duration IntervalMetric `json:"duration"`

	Stats Stats `json:"stats"`

	// SourceRead is usage of the semaphore bounding source reads.
	SourceRead SemaphoreMetric `json:"source_read"`

	Err string `json:"err,omitempty"`
}

// WriteFile writes the metrics in JSON to fname.
func (m Metrics) WriteFile(fname string) error {
	b, err := json.MarshalIndent(m, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(fname, append(b, '\n'), 0644)
}

// SemaphoreMetric is usage of a semaphore during a run.
type SemaphoreMetric struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	// Requests is the number of slots acquired during the run.
	Requests int `json:"requests"`
	// MaxServs and MaxWaits are the peaks of held slots and waiters
	// observed when units were read.
	MaxServs int `json:"max_servs"`
	MaxWaits int `json:"max_waits"`
}

type semaphoreSampler struct {
	sema *semaphore.Semaphore
	reqs int

	mu sync.Mutex
	m  SemaphoreMetric
}

func newSemaphoreSampler(sema *semaphore.Semaphore) *semaphoreSampler {
	return &semaphoreSampler{
		sema: sema,
		reqs: sema.NumRequests(),
		m: SemaphoreMetric{
			Name:     sema.Name(),
			Capacity: sema.Capacity(),
		},
	}
}

func (s *semaphoreSampler) sample() {
	servs, waits := s.sema.NumServs(), s.sema.NumWaits()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.MaxServs = max(s.m.MaxServs, servs)
	s.m.MaxWaits = max(s.m.MaxWaits, waits)
}

func (s *semaphoreSampler) metric() SemaphoreMetric {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.m
	m.Requests = s.sema.NumRequests() - s.reqs
	return m
}
