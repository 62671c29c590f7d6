// SPDX-FileCopyrightText: 2020 Alvar Penning
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package discovery announces this node's LLCP link endpoints through UDP
// multicast and reports the endpoints announced by other nodes.
package discovery

const (
	// address4 is the default multicast IPv4 address used for discovery.
	address4 = "224.23.23.42"

	// address6 is the default multicast IPv6 address used for discovery.
	address6 = "ff02::23:42"

	// port is the default multicast UDP port used for discovery.
	port = 35042
)
