// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package wsl carries LLCP frames as binary WebSocket messages, one frame per
// message. This allows links through HTTP proxies, e.g., to a browser based
// peer.
package wsl
