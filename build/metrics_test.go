// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"encoding/json"
	"testing"
	"time"
)

func TestIntervalMetricJSON(t *testing.T) {
	for _, tc := range []struct {
		d    time.Duration
		want string
	}{
		{d: 0, want: "0"},
		{d: 1500 * time.Millisecond, want: "1.5"},
		{d: 2 * time.Minute, want: "120"},
	} {
		b, err := json.Marshal(IntervalMetric(tc.d))
		if err != nil {
			t.Errorf("json.Marshal(%v)=%v", tc.d, err)
			continue
		}
		if got := string(b); got != tc.want {
			t.Errorf("json.Marshal(%v)=%s; want %s", tc.d, got, tc.want)
		}
		var got IntervalMetric
		err = json.Unmarshal(b, &got)
		if err != nil || time.Duration(got) != tc.d {
			t.Errorf("json.Unmarshal(%s)=%v, %v; want %v", b, time.Duration(got), err, tc.d)
		}
	}
}
