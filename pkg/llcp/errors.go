// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package llcp

import "errors"

var (
	// ErrInvalidParameter is returned for invalid arguments, e.g., a stale
	// Handle or a service name which is already bound.
	ErrInvalidParameter = errors.New("llcp: invalid parameter")

	// ErrInvalidState is returned if an operation is not allowed in the
	// socket's current state.
	ErrInvalidState = errors.New("llcp: invalid state")

	// ErrInsufficientResources is returned if no socket slot or SAP is free.
	ErrInsufficientResources = errors.New("llcp: insufficient resources")

	// ErrNotEnoughMemory is returned if requested buffers exceed the limits.
	ErrNotEnoughMemory = errors.New("llcp: not enough memory")

	// ErrBusy is returned if the link is already sending a frame.
	ErrBusy = errors.New("llcp: link busy")

	// ErrRejected is returned if an operation is still outstanding on the
	// socket, or if the peer or the link refused it.
	ErrRejected = errors.New("llcp: rejected")

	// ErrLinkError is reported after the link failed.
	ErrLinkError = errors.New("llcp: link error")

	// ErrDisconnected is reported if the peer disconnected.
	ErrDisconnected = errors.New("llcp: disconnected")

	// ErrSocketClosed is reported for operations aborted by closing a socket.
	ErrSocketClosed = errors.New("llcp: socket closed")

	// ErrTransportClosed is returned without an attached link.
	ErrTransportClosed = errors.New("llcp: transport closed")
)
