// SPDX-FileCopyrightText: 2022 Markus Sommer
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package quicl

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/dtn7/cboring"
	"github.com/quic-go/quic-go"

	"github.com/dtn7/llcp-go/pkg/link/quicl/internal"
	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

const maxFrameLen = pdu.HeaderLen + 1 + pdu.MaxMIU

// StreamConn is a link.FrameConn on one QUIC stream.
type StreamConn struct {
	connection *quic.Conn
	stream     *quic.Stream
	reader     *bufio.Reader

	writeMutex sync.Mutex
	closeOnce  sync.Once
}

func newStreamConn(connection *quic.Conn, stream *quic.Stream) *StreamConn {
	return &StreamConn{
		connection: connection,
		stream:     stream,
		reader:     bufio.NewReader(stream),
	}
}

func (sc *StreamConn) ReadFrame() ([]byte, error) {
	n, err := cboring.ReadByteStringLen(sc.reader)
	if err != nil {
		return nil, err
	} else if n > maxFrameLen {
		return nil, fmt.Errorf("quicl: frame of %d octets exceeds %d", n, maxFrameLen)
	}

	frame := make([]byte, n)
	if _, err := io.ReadFull(sc.reader, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

func (sc *StreamConn) WriteFrame(frame []byte) error {
	sc.writeMutex.Lock()
	defer sc.writeMutex.Unlock()

	writer := bufio.NewWriter(sc.stream)
	if err := cboring.WriteByteStringLen(uint64(len(frame)), writer); err != nil {
		return err
	}
	if _, err := writer.Write(frame); err != nil {
		return err
	}
	return writer.Flush()
}

func (sc *StreamConn) Close() (err error) {
	sc.closeOnce.Do(func() {
		sc.stream.CancelRead(0)
		_ = sc.stream.Close()
		err = sc.connection.CloseWithError(internal.LinkShutdown, "link deactivated")
	})
	return
}

func (sc *StreamConn) String() string {
	return fmt.Sprintf("quicl://%v", sc.connection.RemoteAddr())
}
