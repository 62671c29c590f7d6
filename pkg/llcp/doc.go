// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package llcp implements the LLCP transport: a socket layer multiplexing
// connection-oriented and connectionless logical links over one activated
// link.Link.
//
// A Transport owns a fixed-size socket table, allocates service access
// points, resolves service names by the service discovery protocol and
// serializes all outgoing PDUs, since a link carries only one frame at a time.
//
// Protocol logic runs on one goroutine per Transport, fed by the link's
// completions. API methods might be called from any goroutine. Asynchronous
// operations return nil when they were accepted and report their result
// through a callback. Callbacks are always invoked from the Transport's
// goroutine without holding any lock, so they are free to call back into the
// Transport. A Shutdown from within a callback does not wait for the
// goroutine to stop.
package llcp
