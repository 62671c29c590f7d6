// SPDX-FileCopyrightText: 2022 Markus Sommer
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package quicl carries LLCP frames over a single QUIC stream.
//
// The dialer opens the stream, the listener accepts it. Frames are framed as
// CBOR byte strings, identical to the mtcp package.
package quicl
