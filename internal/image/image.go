// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package image defines the interface to the distribution image pipeline.
//
// Discovering, downloading and caching root file system images happens
// outside of this module. Create only ever consumes a local archive path,
// no matter how it was obtained.
package image

import "context"

// ProgressFunc is invoked with transfer progress updates while an image is
// downloaded. Total is negative if the size is unknown.
type ProgressFunc func(transferred, total int64)

// Image is a fetched distribution image.
type Image struct {
	// Name identifies the distribution, like "ubuntu".
	Name string

	// Path is the local path of the root file system archive.
	Path string
}

// Fetcher obtains a single named distribution image.
type Fetcher interface {
	// Name returns the distribution name the fetcher provides.
	Name() string

	// Fetch makes the image available locally and returns it. The progress
	// function may be nil.
	Fetch(ctx context.Context, progress ProgressFunc) (*Image, error)
}

// List enumerates the available fetchers. Default names the fetcher used
// if the operator does not choose one.
type List struct {
	Fetchers []Fetcher
	Default  string
}
