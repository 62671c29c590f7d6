// SPDX-FileCopyrightText: 2020 Alvar Penning
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package wsl

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

const maxFrameLen = pdu.HeaderLen + 1 + pdu.MaxMIU

// Conn is a link.FrameConn on a WebSocket connection.
type Conn struct {
	conn *websocket.Conn

	writeMutex sync.Mutex
	closeOnce  sync.Once
}

func newConn(conn *websocket.Conn) *Conn {
	conn.SetReadLimit(maxFrameLen)
	return &Conn{conn: conn}
}

func (c *Conn) ReadFrame() ([]byte, error) {
	messageType, reader, err := c.conn.NextReader()
	if err != nil {
		return nil, err
	} else if messageType != websocket.BinaryMessage {
		return nil, fmt.Errorf("wsl: message type %d is not binary", messageType)
	}
	return io.ReadAll(reader)
}

func (c *Conn) WriteFrame(frame []byte) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()

	wc, err := c.conn.NextWriter(websocket.BinaryMessage)
	if err != nil {
		return err
	}
	if _, err := wc.Write(frame); err != nil {
		return err
	}
	return wc.Close()
}

func (c *Conn) Close() (err error) {
	c.closeOnce.Do(func() {
		c.writeMutex.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "link deactivated"),
			time.Now().Add(time.Second))
		c.writeMutex.Unlock()

		err = c.conn.Close()
	})
	return
}

func (c *Conn) String() string {
	return fmt.Sprintf("ws://%v", c.conn.RemoteAddr())
}
