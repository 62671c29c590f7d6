// SPDX-FileCopyrightText: 2021 Alvar Penning
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build !linux
// +build !linux

package mtcp

import (
	"net"
	"time"

	log "github.com/sirupsen/logrus"
)

// dial a new TCP connection. Without access to the Linux socket options, the
// same keepalive as for accepted connections is used.
func dial(address string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: time.Second}
	conn, err := dialer.Dial("tcp", address)
	if err != nil {
		return nil, err
	}

	if kaErr := setKeepAlive(conn); kaErr != nil {
		log.WithFields(log.Fields{
			"address": address,
			"error":   kaErr,
		}).Warn("MTCP dialer failed to set keepalive")
	}
	return conn, nil
}
