// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package buildcmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"go.chromium.org/infra/build/fnbuild/build/buildconfig"
)

// keyValueFlags is a repeated key=value flag.
type keyValueFlags map[string]string

func (f keyValueFlags) String() string {
	var sb strings.Builder
	for _, k := range slices.Sorted(maps.Keys(f)) {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%s=%s", k, f[k])
	}
	return sb.String()
}

func (f keyValueFlags) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("want key=value, got %q", s)
	}
	f[k] = v
	return nil
}

// applyConfig loads the starlark config and applies its values to
// the options not set by flags.
func (c *run) applyConfig(ctx context.Context) error {
	set := make(map[string]bool)
	c.Flags.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	cfg, err := buildconfig.Load(ctx, c.configFile, c.configFlags)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !set["config"]:
		log.Debugf("no config %s", c.configFile)
		return nil
	case err != nil:
		return fmt.Errorf("config %s: %w", c.configFile, err)
	}
	if len(cfg.Suffixes) > 0 && !set["suffix"] {
		c.srcOpt.Suffixes = cfg.Suffixes
	}
	if len(cfg.Exclude) > 0 && !set["exclude"] {
		c.srcOpt.Exclude = cfg.Exclude
	}
	if cfg.Store != "" && !set["store"] {
		c.storeOpt.File = cfg.Store
	}
	if cfg.Compress != nil && !set["store_zstd"] {
		c.storeOpt.CompressZstd = *cfg.Compress
	}
	if cfg.Jobs > 0 && !set["j"] {
		c.jobs = cfg.Jobs
	}
	return nil
}
