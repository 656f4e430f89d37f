// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package fpstore

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
)

// lockRetryInterval is an interval to retry a lock held by another process.
var lockRetryInterval = 100 * time.Millisecond

// lock takes an exclusive lock of fname, waiting until it is released
// by another process or ctx is done.
func lock(ctx context.Context, fname string) (func(), error) {
	lf, err := newLockFile(fname)
	if errors.Is(err, errors.ErrUnsupported) {
		log.Warnf("lock %s: %v. commit without lock", fname, err)
		return func() {}, nil
	}
	if err != nil {
		return nil, err
	}
	logged := false
	for {
		err = lf.Lock()
		if err == nil {
			break
		}
		if !errors.Is(err, errLocked) {
			lf.Close()
			return nil, err
		}
		if !logged {
			log.Infof("waiting for lock: %v", err)
			logged = true
		}
		select {
		case <-ctx.Done():
			lf.Close()
			return nil, context.Cause(ctx)
		case <-time.After(lockRetryInterval):
		}
	}
	return func() {
		err := lf.Unlock()
		if err != nil {
			log.Warnf("unlock %s: %v", fname, err)
		}
		err = lf.Close()
		if err != nil {
			log.Warnf("close %s: %v", fname, err)
		}
	}, nil
}
