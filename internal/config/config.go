// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment variables recognized by all commands.
const (
	// EnvConfigFile overrides the path of the configuration file.
	EnvConfigFile = "INITNS_CONFIG"

	// EnvStateDir overrides the directory the distro records are kept in.
	EnvStateDir = "INITNS_STATE_DIR"

	// EnvInstallDir is the default guest root file system location used by
	// start and exec if no explicit directory is given.
	EnvInstallDir = "INITNS_INSTALL_DIR"
)

// DefaultFile is the configuration file read if [EnvConfigFile] is unset.
const DefaultFile = "/etc/initns/config.toml"

// Config carries all tunable settings.
//
// All fields have working defaults, so an empty or absent configuration
// file is valid.
type Config struct {
	// StateDir is the directory distro records are persisted in.
	StateDir string `toml:"state_dir"`

	// LogDir is the directory the detached guest init and bridge processes
	// write their output to.
	LogDir string `toml:"log_dir"`

	// InstallDir is the default guest root file system directory.
	InstallDir string `toml:"install_dir"`

	// InitPath is the path of the init program inside the guest root.
	InitPath string `toml:"init_path"`

	// BindMounts are host paths bind-mounted into the guest so host
	// facilities, like the interop socket directory, stay reachable.
	// Missing paths are skipped.
	BindMounts []string `toml:"bind_mounts"`

	// StopGracePeriod is how long stop waits for the guest init to
	// terminate before the remaining processes are killed.
	StopGracePeriod Duration `toml:"stop_grace_period"`

	Readiness Readiness `toml:"readiness"`
	Interop   Interop   `toml:"interop"`
}

// Readiness controls the init readiness polling.
type Readiness struct {
	// Attempts is the maximum number of status queries before the guest is
	// considered failed.
	Attempts int `toml:"attempts"`

	// Interval is the fixed delay between two status queries.
	Interval Duration `toml:"interval"`
}

// Interop controls the host environment bridge.
type Interop struct {
	// Vars are the names of the host environment variables mirrored into
	// the guest.
	Vars []string `toml:"vars"`

	// Interval is the delay between two synchronization runs.
	Interval Duration `toml:"interval"`

	// RunDir is the host directory containing the interop sockets.
	RunDir string `toml:"run_dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		StateDir:        "/var/lib/initns",
		LogDir:          "/var/log/initns",
		InitPath:        "/sbin/init",
		BindMounts:      []string{"/run/WSL", "/mnt/wsl", "/tmp/.X11-unix"},
		StopGracePeriod: Duration(10 * time.Second),
		Readiness: Readiness{
			Attempts: 30,
			Interval: Duration(2 * time.Second),
		},
		Interop: Interop{
			Vars: []string{
				"WSL_INTEROP",
				"WSL_DISTRO_NAME",
				"WSLENV",
				"DISPLAY",
				"WAYLAND_DISPLAY",
				"PULSE_SERVER",
			},
			Interval: Duration(10 * time.Second),
			RunDir:   "/run/WSL",
		},
	}
}

// Load reads the configuration file at path on top of [Default] and applies
// the environment variable overrides.
//
// A missing file is not an error unless its path was set explicitly via
// [EnvConfigFile].
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := false
	if env := os.Getenv(EnvConfigFile); env != "" {
		path = env
		explicit = true
	}

	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if env := os.Getenv(EnvStateDir); env != "" {
		cfg.StateDir = env
	}

	if env := os.Getenv(EnvInstallDir); env != "" {
		cfg.InstallDir = env
	}

	return cfg, nil
}
