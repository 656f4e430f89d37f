// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package fpstore provides the fingerprint store, persisted across runs.
//
// Updates are staged during a run and written by Commit, which atomically
// replaces the store file.
package fpstore

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"go.chromium.org/infra/build/fnbuild/fndef"
)

// DefaultFile is the default filename of the store.
const DefaultFile = ".fnbuild_fingerprints"

// Option is an option for the store.
type Option struct {
	// File is a filename of the store.
	File string

	// CompressZstd compresses the store file with zstd on commit.
	// Compressed and uncompressed files are both accepted on load.
	CompressZstd bool

	// CompressLevel is a zstd compression level.
	CompressLevel int
}

// RegisterFlags registers flags for the option.
func (o *Option) RegisterFlags(flagSet *flag.FlagSet) {
	flagSet.StringVar(&o.File, "store", DefaultFile, "fingerprint store filename, relative to the root")
	flagSet.BoolVar(&o.CompressZstd, "store_zstd", false, "compress fingerprint store with zstd")
	flagSet.IntVar(&o.CompressLevel, "store_zstd_level", 3, "zstd compression level of fingerprint store")
}

// Store is a fingerprint store.
type Store struct {
	opt     Option
	loadErr error

	commitMu sync.Mutex

	mu      sync.Mutex
	records map[string]Record
	staged  map[string]Record
	deleted map[string]fndef.Key
}

// New creates an empty store for the option.
func New(opt Option) *Store {
	return &Store{
		opt:     opt,
		records: make(map[string]Record),
		staged:  make(map[string]Record),
		deleted: make(map[string]fndef.Key),
	}
}

// Load loads the store from opt.File.
// It never fails. If the file doesn't exist or can't be recognized,
// it returns an empty store, and LoadErr reports the cause.
func Load(ctx context.Context, opt Option) *Store {
	started := time.Now()
	s := New(opt)
	records, err := readFile(opt.File)
	if err != nil {
		s.loadErr = err
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Infof("fingerprint store %s doesn't exist. cold start", opt.File)
		default:
			log.Infof("fingerprint store %s: %v. cold start", opt.File, err)
		}
		return s
	}
	for _, r := range records {
		s.records[r.Key.String()] = r
	}
	log.Infof("fingerprint store %s: %d records in %s", opt.File, len(records), time.Since(started))
	return s
}

func readFile(fname string) ([]Record, error) {
	b, err := os.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	return decode(b)
}

// LoadErr returns an error of loading, or nil for warm start.
func (s *Store) LoadErr() error {
	return s.loadErr
}

// Filename returns the filename of the store.
func (s *Store) Filename() string {
	return s.opt.File
}

// Len returns the number of committed records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Lookup returns the committed record of the key.
func (s *Store) Lookup(key fndef.Key) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[key.String()]
	return r, ok
}

// Stage stages an update of the record, which will be written by Commit.
// A later Stage for the same key replaces the earlier one.
func (s *Store) Stage(rec Record) {
	rec.Deps = slices.Clone(rec.Deps)
	fndef.SortKeys(rec.Deps)
	rec.Deps = slices.CompactFunc(rec.Deps, fndef.Key.Equal)
	k := rec.Key.String()
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deleted, k)
	s.staged[k] = rec
}

// Forget stages a deletion of the key.
func (s *Store) Forget(key fndef.Key) {
	k := key.String()
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.staged, k)
	s.deleted[k] = key
}

// Staged returns staged updates, sorted by key.
func (s *Store) Staged() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedRecords(s.staged)
}

// Forgotten returns keys staged for deletion, sorted.
func (s *Store) Forgotten() []fndef.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := slices.Collect(maps.Values(s.deleted))
	fndef.SortKeys(keys)
	return keys
}

// Records returns committed records, sorted by key.
func (s *Store) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedRecords(s.records)
}

func sortedRecords(m map[string]Record) []Record {
	records := slices.Collect(maps.Values(m))
	slices.SortFunc(records, func(a, b Record) int {
		return fndef.Compare(a.Key, b.Key)
	})
	return records
}

// Commit merges staged updates into the store and atomically replaces
// the store file.
// Records on disk committed by another process since Load are kept,
// unless they are updated or deleted by this store.
func (s *Store) Commit(ctx context.Context) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	started := time.Now()

	unlock, err := lock(ctx, s.opt.File+".lock")
	if err != nil {
		return fmt.Errorf("fpstore: commit %s: %w", s.opt.File, err)
	}
	defer unlock()

	s.mu.Lock()
	staged := maps.Clone(s.staged)
	deleted := maps.Clone(s.deleted)
	merged := maps.Clone(s.records)
	s.mu.Unlock()

	if records, err := readFile(s.opt.File); err == nil {
		merged = make(map[string]Record, len(records)+len(staged))
		for _, r := range records {
			merged[r.Key.String()] = r
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		log.Warnf("fingerprint store %s: %v. overwrite", s.opt.File, err)
	}
	for k := range deleted {
		delete(merged, k)
	}
	maps.Copy(merged, staged)

	records := sortedRecords(merged)
	data, err := encode(records)
	if err != nil {
		return fmt.Errorf("fpstore: commit %s: %w", s.opt.File, err)
	}
	if s.opt.CompressZstd {
		data, err = compress(data, s.opt.CompressLevel)
		if err != nil {
			return fmt.Errorf("fpstore: commit %s: %w", s.opt.File, err)
		}
	}
	err = writeFileAtomic(s.opt.File, data)
	if err != nil {
		return fmt.Errorf("fpstore: commit %s: %w", s.opt.File, err)
	}

	s.mu.Lock()
	s.records = merged
	for k, r := range staged {
		if cur, ok := s.staged[k]; ok && cur.Equal(r) {
			delete(s.staged, k)
		}
	}
	for k := range deleted {
		delete(s.deleted, k)
	}
	s.mu.Unlock()
	log.Infof("fingerprint store %s: committed %d records (%d updated, %d deleted) in %s", s.opt.File, len(records), len(staged), len(deleted), time.Since(started))
	return nil
}

// writeFileAtomic writes data to a temporary file in the same directory,
// syncs it and renames it to fname.
func writeFileAtomic(fname string, data []byte) error {
	dir := filepath.Dir(fname)
	f, err := os.CreateTemp(dir, filepath.Base(fname)+".tmp*")
	if err != nil {
		return err
	}
	tmpname := f.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpname)
		}
	}()
	_, err = f.Write(data)
	if err != nil {
		f.Close()
		return err
	}
	err = f.Sync()
	if err != nil {
		f.Close()
		return err
	}
	err = f.Close()
	if err != nil {
		return err
	}
	err = os.Rename(tmpname, fname)
	if err != nil {
		return err
	}
	syncDir(dir)
	return nil
}

// Clear removes the store file.
func Clear(ctx context.Context, opt Option) error {
	unlock, err := lock(ctx, opt.File+".lock")
	if err != nil {
		return fmt.Errorf("fpstore: clear %s: %w", opt.File, err)
	}
	defer unlock()
	err = os.Remove(opt.File)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("fpstore: clear %s: %w", opt.File, err)
	}
	return nil
}
