// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package distro

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/sys/unix"
)

const (
	recordSuffix = ".toml"
	lockSuffix   = ".lock"

	dirMode  = 0o700
	fileMode = 0o600
)

// Store persists one [Record] per guest installation in a directory,
// keyed by name.
type Store struct {
	dir string
}

// NewStore returns a [Store] using the given directory. The directory is
// created on first use.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) recordPath(name string) string {
	return filepath.Join(s.dir, name+recordSuffix)
}

func (s *Store) lockPath(name string) string {
	return filepath.Join(s.dir, name+lockSuffix)
}

// Load reads the record for the given name.
//
// It returns [ErrNotFound] if no record exists and [ErrCorruptRecord] if
// the persisted representation cannot be parsed.
func (s *Store) Load(name string) (*Record, error) {
	data, err := os.ReadFile(s.recordPath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}

		return nil, fmt.Errorf("read record %s: %w", name, err)
	}

	var record Record

	err = toml.Unmarshal(data, &record)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, name, err)
	}

	return &record, nil
}

// Save writes the record atomically, replacing any previous version.
func (s *Store) Save(record *Record) error {
	err := os.MkdirAll(s.dir, dirMode)
	if err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	path := s.recordPath(record.Name)

	var buf strings.Builder

	err = toml.NewEncoder(&buf).Encode(record)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", record.Name, err)
	}

	// Write to a temporary file first so readers never observe a partially
	// written record.
	tmpPath := path + ".tmp"

	err = os.WriteFile(tmpPath, []byte(buf.String()), fileMode)
	if err != nil {
		return fmt.Errorf("write record %s: %w", record.Name, err)
	}

	err = os.Rename(tmpPath, path)
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace record %s: %w", record.Name, err)
	}

	return nil
}

// WithLock runs fn while holding an exclusive lock on the record with the
// given name. The lock is held via flock(2) on a separate lock file, so it
// serializes invocations across independent processes, not just within one.
func (s *Store) WithLock(name string, fn func() error) error {
	err := os.MkdirAll(s.dir, dirMode)
	if err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	file, err := os.OpenFile(s.lockPath(name), os.O_CREATE|os.O_RDWR, fileMode)
	if err != nil {
		return fmt.Errorf("open lock %s: %w", name, err)
	}
	defer file.Close()

	err = unix.Flock(int(file.Fd()), unix.LOCK_EX)
	if err != nil {
		return fmt.Errorf("lock %s: %w", name, err)
	}
	defer func() {
		_ = unix.Flock(int(file.Fd()), unix.LOCK_UN)
	}()

	return fn()
}

// List returns all persisted records.
func (s *Store) List() ([]*Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read state dir: %w", err)
	}

	var records []*Record

	for _, entry := range entries {
		name, found := strings.CutSuffix(entry.Name(), recordSuffix)
		if !found || strings.HasSuffix(name, ".tmp") {
			continue
		}

		record, err := s.Load(name)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, nil
}

// LoadByRootPath returns the record whose root path matches the given
// directory, or [ErrNotFound].
func (s *Store) LoadByRootPath(dir string) (*Record, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	records, err := s.List()
	if err != nil {
		return nil, err
	}

	for _, record := range records {
		if record.RootPath == abs {
			return record, nil
		}
	}

	return nil, fmt.Errorf("%w: root path %s", ErrNotFound, abs)
}

// LoadRunning returns the record of the currently running guest, or
// [ErrNoRunningDistro].
func (s *Store) LoadRunning() (*Record, error) {
	records, err := s.List()
	if err != nil {
		return nil, err
	}

	for _, record := range records {
		if record.State == StateRunning {
			return record, nil
		}
	}

	return nil, ErrNoRunningDistro
}
