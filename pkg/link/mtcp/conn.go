// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package mtcp

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/dtn7/cboring"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

// maxFrameLen bounds an incoming frame: header, sequence and a maximum MIU.
const maxFrameLen = pdu.HeaderLen + 1 + pdu.MaxMIU

// keepaliveInterval is the period between two empty byte strings.
const keepaliveInterval = 5 * time.Second

// Conn is a link.FrameConn on a TCP connection.
type Conn struct {
	conn   net.Conn
	reader *bufio.Reader

	writeMutex sync.Mutex

	stopSyn   chan struct{}
	closeOnce sync.Once
}

// NewConn wraps a net.Conn and starts sending keepalives.
func NewConn(conn net.Conn) *Conn {
	c := &Conn{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		stopSyn: make(chan struct{}),
	}

	go c.keepalive()

	return c
}

func (c *Conn) keepalive() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopSyn:
			return

		case <-ticker.C:
			c.writeMutex.Lock()
			err := cboring.WriteByteStringLen(0, c.conn)
			c.writeMutex.Unlock()

			if err != nil {
				log.WithFields(log.Fields{
					"conn":  c,
					"error": err,
				}).Warn("MTCP keepalive errored")

				_ = c.Close()
				return
			}
		}
	}
}

// ReadFrame blocks until the next non-empty byte string arrives.
func (c *Conn) ReadFrame() ([]byte, error) {
	for {
		n, err := cboring.ReadByteStringLen(c.reader)
		if err != nil {
			return nil, err
		} else if n == 0 {
			continue
		} else if n > maxFrameLen {
			return nil, fmt.Errorf("mtcp: frame of %d octets exceeds %d", n, maxFrameLen)
		}

		frame := make([]byte, n)
		if _, err := io.ReadFull(c.reader, frame); err != nil {
			return nil, err
		}
		return frame, nil
	}
}

func (c *Conn) WriteFrame(frame []byte) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()

	connWriter := bufio.NewWriter(c.conn)
	if err := cboring.WriteByteStringLen(uint64(len(frame)), connWriter); err != nil {
		return err
	}
	if _, err := connWriter.Write(frame); err != nil {
		return err
	}
	return connWriter.Flush()
}

func (c *Conn) Close() (err error) {
	c.closeOnce.Do(func() {
		close(c.stopSyn)
		err = c.conn.Close()
	})
	return
}

func (c *Conn) String() string {
	return fmt.Sprintf("mtcp://%v", c.conn.RemoteAddr())
}
