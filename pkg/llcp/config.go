// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package llcp

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

// Config of a Transport.
type Config struct {
	// MaxSockets is the size of the socket table.
	MaxSockets int

	// NameCacheSize is the amount of service names cached from inbound SDP
	// lookups.
	NameCacheSize int

	// SDPResponseMax caps the SDP responses collected from one SNL PDU.
	SDPResponseMax int

	// DatagramQueueLen is the amount of datagrams queued per connectionless
	// socket without a pending RecvFrom.
	DatagramQueueLen int

	// DefaultOptions are used for sockets created with zero SocketOptions.
	DefaultOptions SocketOptions

	// MaxBufferSize bounds the receive buffer of a single socket, MIU times
	// RW for connection-oriented sockets.
	MaxBufferSize int

	// ConnectionOriented creates the engine for connection-oriented sockets.
	// If nil, the default implementation is used.
	ConnectionOriented func(*Transport) ConnectionOrientedEngine

	// Connectionless creates the engine for connectionless sockets. If nil,
	// the default implementation is used.
	Connectionless func(*Transport) ConnectionlessEngine
}

// DefaultConfig returns a Config suitable for most links.
func DefaultConfig() Config {
	return Config{
		MaxSockets:       32,
		NameCacheSize:    16,
		SDPResponseMax:   16,
		DatagramQueueLen: 8,
		DefaultOptions: SocketOptions{
			MIU: pdu.DefaultMIU,
			RW:  pdu.DefaultRW,
		},
		MaxBufferSize: 64 * 1024,
	}
}

// Validate checks all values and reports every violation.
func (c Config) Validate() (err error) {
	if c.MaxSockets < 1 || c.MaxSockets > 0xFF {
		err = multierror.Append(err, fmt.Errorf("MaxSockets %d not within [1, 255]", c.MaxSockets))
	}
	if c.NameCacheSize < 0 {
		err = multierror.Append(err, fmt.Errorf("NameCacheSize %d is negative", c.NameCacheSize))
	}
	if c.SDPResponseMax < 1 {
		err = multierror.Append(err, fmt.Errorf("SDPResponseMax %d must be positive", c.SDPResponseMax))
	}
	if c.DatagramQueueLen < 1 {
		err = multierror.Append(err, fmt.Errorf("DatagramQueueLen %d must be positive", c.DatagramQueueLen))
	}
	if optErr := c.DefaultOptions.validate(); optErr != nil {
		err = multierror.Append(err, fmt.Errorf("DefaultOptions: %w", optErr))
	}
	if c.MaxBufferSize < c.DefaultOptions.MIU*int(c.DefaultOptions.RW) {
		err = multierror.Append(err, fmt.Errorf("MaxBufferSize %d cannot hold DefaultOptions %v", c.MaxBufferSize, c.DefaultOptions))
	}
	return
}
