// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package semaphore_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.chromium.org/infra/build/fnbuild/sync/semaphore"
)

func TestNew(t *testing.T) {
	sema := semaphore.New(t.Name(), 3)
	if name := sema.Name(); name != t.Name() {
		t.Errorf("Name=%q; want %q", name, t.Name())
	}
	if n := sema.Capacity(); n != 3 {
		t.Errorf("Capacity=%d; want %d", n, 3)
	}
	if n := semaphore.New(t.Name(), 0).Capacity(); n != 1 {
		t.Errorf("New(%q, 0).Capacity=%d; want 1", t.Name(), n)
	}
}

func TestWaitAcquire(t *testing.T) {
	ctx := context.Background()
	sema := semaphore.New(t.Name(), 2)

	var dones []func()
	for i := 0; i < 2; i++ {
		done, err := sema.WaitAcquire(ctx)
		if err != nil {
			t.Fatalf("WaitAcquire %d: %v", i, err)
		}
		dones = append(dones, done)
		if n := sema.NumServs(); n != i+1 {
			t.Errorf("NumServs=%d; want %d", n, i+1)
		}
	}

	cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err := sema.WaitAcquire(cctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitAcquire on full semaphore=%v; want %v", err, context.DeadlineExceeded)
	}
	if n := sema.NumWaits(); n != 0 {
		t.Errorf("NumWaits=%d; want 0", n)
	}

	for _, done := range dones {
		done()
		// releasing twice must not free an extra slot.
		done()
	}
	if n := sema.NumServs(); n != 0 {
		t.Errorf("NumServs=%d; want 0", n)
	}
	if n := sema.NumRequests(); n != 2 {
		t.Errorf("NumRequests=%d; want 2", n)
	}
}

func TestDo(t *testing.T) {
	ctx := context.Background()
	sema := semaphore.New(t.Name(), 2)

	var running, maxRunning atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := sema.Do(ctx, func(ctx context.Context) error {
				n := running.Add(1)
				defer running.Add(-1)
				for {
					m := maxRunning.Load()
					if n <= m || maxRunning.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				return nil
			})
			if err != nil {
				t.Errorf("Do=%v; want nil", err)
			}
		}()
	}
	wg.Wait()
	if got := maxRunning.Load(); got > 2 {
		t.Errorf("max concurrent=%d; want <=2", got)
	}
	if n := sema.NumRequests(); n != 10 {
		t.Errorf("NumRequests=%d; want 10", n)
	}
}
