// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package distro_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/initns/internal/distro"
)

func newRecord(name, rootPath string) *distro.Record {
	return &distro.Record{
		Name:      name,
		RootPath:  rootPath,
		State:     distro.StateCreated,
		CreatedAt: time.Now(),
	}
}

func TestStoreSaveLoad(t *testing.T) {
	store := distro.NewStore(t.TempDir())

	record := newRecord("ubuntu", "/var/lib/initns/ubuntu")
	require.NoError(t, store.Save(record))

	loaded, err := store.Load("ubuntu")
	require.NoError(t, err)

	assert.Equal(t, "ubuntu", loaded.Name)
	assert.Equal(t, "/var/lib/initns/ubuntu", loaded.RootPath)
	assert.Equal(t, distro.StateCreated, loaded.State)
}

func TestStoreSaveOverwrites(t *testing.T) {
	store := distro.NewStore(t.TempDir())

	record := newRecord("ubuntu", "/rootfs")
	require.NoError(t, store.Save(record))

	record.SetStarted(4242)
	require.NoError(t, store.Save(record))

	loaded, err := store.Load("ubuntu")
	require.NoError(t, err)

	assert.Equal(t, distro.StateStarting, loaded.State)
	assert.Equal(t, 4242, loaded.InitPID)
	assert.Equal(t, "/proc/4242/ns/pid", loaded.Namespace.PID)
	assert.Equal(t, "/proc/4242/root", loaded.Namespace.ProcRoot)
}

func TestStoreLoadNotFound(t *testing.T) {
	store := distro.NewStore(t.TempDir())

	_, err := store.Load("missing")
	require.ErrorIs(t, err, distro.ErrNotFound)
}

func TestStoreLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	store := distro.NewStore(dir)

	path := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("name = [not toml"), 0o600))

	_, err := store.Load("broken")
	require.ErrorIs(t, err, distro.ErrCorruptRecord)
}

func TestStoreWithLockSerializes(t *testing.T) {
	store := distro.NewStore(t.TempDir())

	var (
		inCritical bool
		wg         sync.WaitGroup
	)

	for range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := store.WithLock("ubuntu", func() error {
				require.False(t, inCritical)
				inCritical = true

				time.Sleep(10 * time.Millisecond)

				inCritical = false

				return nil
			})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()
}

func TestStoreLoadByRootPath(t *testing.T) {
	store := distro.NewStore(t.TempDir())

	require.NoError(t, store.Save(newRecord("ubuntu", "/roots/ubuntu")))
	require.NoError(t, store.Save(newRecord("arch", "/roots/arch")))

	record, err := store.LoadByRootPath("/roots/arch")
	require.NoError(t, err)
	assert.Equal(t, "arch", record.Name)

	_, err = store.LoadByRootPath("/roots/missing")
	require.ErrorIs(t, err, distro.ErrNotFound)
}

func TestStoreLoadRunning(t *testing.T) {
	store := distro.NewStore(t.TempDir())

	_, err := store.LoadRunning()
	require.ErrorIs(t, err, distro.ErrNoRunningDistro)

	stopped := newRecord("ubuntu", "/roots/ubuntu")
	stopped.State = distro.StateStopped
	require.NoError(t, store.Save(stopped))

	running := newRecord("arch", "/roots/arch")
	running.SetStarted(99)
	running.State = distro.StateRunning
	require.NoError(t, store.Save(running))

	record, err := store.LoadRunning()
	require.NoError(t, err)
	assert.Equal(t, "arch", record.Name)
}

func TestRecordLifecycle(t *testing.T) {
	tests := []struct {
		name     string
		state    distro.State
		canStart bool
	}{
		{name: "created", state: distro.StateCreated, canStart: true},
		{name: "stopped", state: distro.StateStopped, canStart: true},
		{name: "failed", state: distro.StateFailed, canStart: false},
		{name: "starting", state: distro.StateStarting, canStart: false},
		{name: "running", state: distro.StateRunning, canStart: false},
		{name: "stopping", state: distro.StateStopping, canStart: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := newRecord("ubuntu", "/rootfs")
			record.State = tt.state

			assert.Equal(t, tt.canStart, record.CanStart())
		})
	}
}

func TestRecordSetStoppedClearsPair(t *testing.T) {
	record := newRecord("ubuntu", "/rootfs")
	record.SetStarted(123)
	record.BridgePID = 456

	require.True(t, record.IsLive())

	record.SetStopped(distro.StateStopped)

	assert.Equal(t, 0, record.InitPID)
	assert.Equal(t, 0, record.BridgePID)
	assert.Equal(t, distro.Namespace{}, record.Namespace)
	assert.False(t, record.IsLive())
}
