// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build !windows
// +build !windows

package mtcp

import (
	"net"
	"time"

	"github.com/felixge/tcpkeepalive"
)

// setKeepAlive configures aggressive keepalives and disables Nagle's
// algorithm, as LLCP frames are small and latency bound.
func setKeepAlive(conn net.Conn) error {
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			return err
		}
	}
	return tcpkeepalive.SetKeepAlive(conn, time.Second, 1, 500*time.Millisecond)
}
