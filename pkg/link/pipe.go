// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package link

import (
	"io"
	"sync"
)

// pipeEnd is one side of an in-memory FrameConn pair.
type pipeEnd struct {
	in  <-chan []byte
	out chan<- []byte

	closed    chan struct{}
	closeOnce *sync.Once
}

// Pipe creates two connected FrameConns. Each direction buffers up to
// capacity frames; closing either end closes both.
func Pipe(capacity int) (FrameConn, FrameConn) {
	var (
		aToB   = make(chan []byte, capacity)
		bToA   = make(chan []byte, capacity)
		closed = make(chan struct{})
		once   = new(sync.Once)
	)

	a := &pipeEnd{in: bToA, out: aToB, closed: closed, closeOnce: once}
	b := &pipeEnd{in: aToB, out: bToA, closed: closed, closeOnce: once}
	return a, b
}

func (p *pipeEnd) ReadFrame() ([]byte, error) {
	select {
	case frame := <-p.in:
		return frame, nil
	case <-p.closed:
		return nil, io.EOF
	}
}

func (p *pipeEnd) WriteFrame(frame []byte) error {
	buf := make([]byte, len(frame))
	copy(buf, frame)

	select {
	case <-p.closed:
		return ErrClosed
	default:
	}

	select {
	case p.out <- buf:
		return nil
	case <-p.closed:
		return ErrClosed
	}
}

func (p *pipeEnd) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}
