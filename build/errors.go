// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"errors"
	"fmt"

	"go.chromium.org/infra/build/fnbuild/fndef"
)

var (
	// ErrNoResult is an error when the driver reports no result for a key.
	ErrNoResult = errors.New("no build result")

	// ErrDuplicateDefinition is an error when a key is defined twice.
	ErrDuplicateDefinition = errors.New("duplicate definition")
)

// DuplicateDefinitionError is an error of a key defined more than once.
type DuplicateDefinitionError struct {
	Key    fndef.Key
	First  fndef.Definition
	Second fndef.Definition
}

func (e DuplicateDefinitionError) Error() string {
	return fmt.Sprintf("duplicate definition %s: %s:%d and %s:%d", e.Key, e.First.Unit, e.First.Span.Start, e.Second.Unit, e.Second.Span.Start)
}

func (e DuplicateDefinitionError) Unwrap() error {
	return ErrDuplicateDefinition
}

// BuildError is an error of definitions that failed to build.
type BuildError struct {
	Failed []Result
}

func (e BuildError) Error() string {
	if len(e.Failed) == 1 {
		return fmt.Sprintf("failed to build %s: %v", e.Failed[0].Key, e.Failed[0].Err)
	}
	return fmt.Sprintf("failed to build %d definitions: first %s: %v", len(e.Failed), e.Failed[0].Key, e.Failed[0].Err)
}

func (e BuildError) Unwrap() []error {
	var errs []error
	for _, r := range e.Failed {
		errs = append(errs, r.Err)
	}
	return errs
}
