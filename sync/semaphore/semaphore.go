// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package semaphore provides named counting semaphores with usage counters.
package semaphore

import (
	"context"
	"sync"
	"sync/atomic"
)

// Semaphore is a named counting semaphore.
type Semaphore struct {
	name string
	ch   chan int

	waits atomic.Int64
	reqs  atomic.Int64
}

// New creates a new semaphore with name and capacity n.
func New(name string, n int) *Semaphore {
	if n <= 0 {
		n = 1
	}
	ch := make(chan int, n)
	for i := 0; i < n; i++ {
		ch <- i + 1 // slot id
	}
	return &Semaphore{
		name: name,
		ch:   ch,
	}
}

// WaitAcquire blocks until a slot is available or ctx is done.
// The returned func releases the slot; it is a no-op when err != nil.
func (s *Semaphore) WaitAcquire(ctx context.Context) (func(), error) {
	s.waits.Add(1)
	defer s.waits.Add(-1)
	select {
	case slot := <-s.ch:
		s.reqs.Add(1)
		var once sync.Once
		return func() {
			once.Do(func() { s.ch <- slot })
		}, nil
	case <-ctx.Done():
		return func() {}, context.Cause(ctx)
	}
}

// Do runs f while holding a slot.
func (s *Semaphore) Do(ctx context.Context, f func(ctx context.Context) error) error {
	done, err := s.WaitAcquire(ctx)
	if err != nil {
		return err
	}
	defer done()
	return f(ctx)
}

// Name returns name of the semaphore.
func (s *Semaphore) Name() string {
	return s.name
}

// Capacity returns capacity of the semaphore.
func (s *Semaphore) Capacity() int {
	if s == nil {
		return 0
	}
	return cap(s.ch)
}

// NumServs returns number of slots currently held.
func (s *Semaphore) NumServs() int {
	return cap(s.ch) - len(s.ch)
}

// NumWaits returns number of waiters.
func (s *Semaphore) NumWaits() int {
	return int(s.waits.Load())
}

// NumRequests returns total number of acquired slots so far.
func (s *Semaphore) NumRequests() int {
	return int(s.reqs.Load())
}
