// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package ui

import (
	"fmt"
	"os"
	"time"
)

// DurationThreshold is a threshold to report the duration of a spinner.
const DurationThreshold = 100 * time.Millisecond

type termSpinner struct {
	quit, done chan struct{}
	started    time.Time
	n          int
	msg        string
}

// Start starts the spinner.
func (s *termSpinner) Start(format string, args ...any) {
	s.started = time.Now()
	s.msg = fmt.Sprintf(format, args...)
	fmt.Printf("%s... ", s.msg)
	s.quit = make(chan struct{})
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-s.quit:
				return
			case <-ticker.C:
				const chars = `/-\|`
				fmt.Printf("\b%c", chars[s.n])
				s.n = (s.n + 1) % len(chars)
			}
		}
	}()
}

func (s *termSpinner) stop() time.Duration {
	close(s.quit)
	<-s.done
	return time.Since(s.started)
}

// Stop stops the spinner.
func (s *termSpinner) Stop(err error) {
	d := s.stop()
	if err != nil {
		fmt.Printf("\r\033[K%6s %s %s %v\n", FormatDuration(d), s.msg, SGR(Red, "failed"), err)
		return
	}
	if d < DurationThreshold {
		fmt.Printf("\r\033[K")
		return
	}
	fmt.Printf("\r\033[K%6s %s\n", FormatDuration(d), s.msg)
}

// Done finishes the spinner with message.
func (s *termSpinner) Done(format string, args ...any) {
	d := s.stop()
	fmt.Printf("\r\033[K%6s %s %s\n", FormatDuration(d), s.msg, fmt.Sprintf(format, args...))
}

// TermUI is a terminal-based UI.
type TermUI struct{}

// NewSpinner returns a terminal-based spinner.
func (*TermUI) NewSpinner() Spinner {
	return &termSpinner{}
}

// Infof prints a message to stdout.
func (*TermUI) Infof(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}

// Warningf prints a warning to stderr.
func (*TermUI) Warningf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, SGR(Yellow, "warning: ")+format+"\n", args...)
}

// Errorf prints an error to stderr.
func (*TermUI) Errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, SGR(Red, "error: ")+format+"\n", args...)
}
