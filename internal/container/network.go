// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package container

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

// EnsureLoopbackUp brings the loopback link up if it is down.
//
// The guest inherits the host session's network namespace, and those
// sessions sometimes start with lo down. An init that finds the loopback
// interface dead fails units that bind to localhost.
func EnsureLoopbackUp() error {
	link, err := netlink.LinkByName("lo")
	if err != nil {
		return fmt.Errorf("find loopback link: %w", err)
	}

	if link.Attrs().Flags&net.FlagUp != 0 {
		return nil
	}

	err = netlink.LinkSetUp(link)
	if err != nil {
		return fmt.Errorf("bring loopback up: %w", err)
	}

	return nil
}
