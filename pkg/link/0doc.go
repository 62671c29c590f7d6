// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package link provides the LLCP link layer consumed by the transport: a Link
// carries exactly one outgoing and one incoming PDU at a time and knows the
// parameters both peers announced on activation.
//
// Concrete carriers only need to exchange whole frames. They implement the
// FrameConn interface and are turned into a Link by Activate, which performs
// the PAX parameter exchange. The subpackages provide FrameConns over TCP,
// QUIC, WebSockets and a LoRa modem; Pipe connects two FrameConns in memory.
//
// A Manager supervises Activators, which dial or accept new links, and
// reports links going up or down on its channel.
package link
