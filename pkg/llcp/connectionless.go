// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package llcp

import (
	"errors"
	"fmt"

	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

// datagram is a received UI PDU's information field and its sender.
type datagram struct {
	data []byte
	ssap pdu.SAP
}

// clState is the state of a connectionless socket.
type clState struct {
	sendDSAP     pdu.SAP
	sendData     []byte
	sendCallback func(error)

	recvQueue    []datagram
	recvCallback func([]byte, pdu.SAP, error)
}

type connectionlessEngine struct {
	t *Transport
}

func newConnectionlessEngine(t *Transport) ConnectionlessEngine {
	return &connectionlessEngine{t: t}
}

func (e *connectionlessEngine) SendTo(s *Socket, dsap pdu.SAP, data []byte, callback func(err error)) error {
	if e.t.linkError {
		return fmt.Errorf("link failed: %w", ErrRejected)
	}
	if miu := e.t.remoteLinkMIU(); len(data) > miu {
		return fmt.Errorf("%d octets exceed the link MIU %d: %w", len(data), miu, ErrInvalidParameter)
	}
	if s.cl.sendData != nil {
		return fmt.Errorf("%v already sends: %w", s.Handle(), ErrRejected)
	}

	s.cl.sendDSAP = dsap
	s.cl.sendData = append([]byte{}, data...)
	s.cl.sendCallback = callback

	e.t.kick(s)
	return nil
}

func (e *connectionlessEngine) RecvFrom(s *Socket, callback func(data []byte, ssap pdu.SAP, err error)) error {
	if s.cl.recvCallback != nil {
		return fmt.Errorf("%v already receives: %w", s.Handle(), ErrRejected)
	}

	if len(s.cl.recvQueue) == 0 {
		s.cl.recvCallback = callback
		return nil
	}

	dg := s.cl.recvQueue[0]
	s.cl.recvQueue = s.cl.recvQueue[1:]
	e.t.deferCallback(func() { callback(dg.data, dg.ssap, nil) })
	return nil
}

func (e *connectionlessEngine) HandleFrame(frame pdu.Frame) {
	h := frame.Header
	logger := e.t.logger.WithField("frame", frame)

	var s *Socket
	for i := range e.t.sockets {
		if c := &e.t.sockets[i]; c.typ == Connectionless && c.state == StateBound && c.localSAP == h.DSAP {
			s = c
			break
		}
	}

	switch {
	case s == nil:
		logger.Debug("Dropping UI PDU for unbound SAP")
		return
	case len(frame.Payload) > s.local.MIU:
		logger.WithField("socket", s).Debug("Dropping UI PDU exceeding the MIU")
		return
	}

	dg := datagram{data: append([]byte{}, frame.Payload...), ssap: h.SSAP}
	if cb := s.cl.recvCallback; cb != nil {
		s.cl.recvCallback = nil
		e.t.deferCallback(func() { cb(dg.data, dg.ssap, nil) })
		return
	}

	if len(s.cl.recvQueue) >= e.t.config.DatagramQueueLen {
		logger.WithField("socket", s).Debug("Dropping UI PDU, receive queue is full")
		return
	}
	s.cl.recvQueue = append(s.cl.recvQueue, dg)
}

func (e *connectionlessEngine) HandlePendingOperations(s *Socket) bool {
	if s.state != StateBound || s.cl.sendData == nil {
		return false
	}

	callback := s.cl.sendCallback
	frame := pdu.NewFrame(pdu.NewHeader(s.cl.sendDSAP, pdu.UI, s.localSAP), s.cl.sendData)
	err := e.t.linkSend(frame, s, func(err error) {
		if callback != nil {
			e.t.deferCallback(func() { callback(err) })
		}
	})

	switch {
	case errors.Is(err, ErrBusy):
		return false
	case err != nil:
		s.cl.sendData = nil
		s.cl.sendCallback = nil
		if callback != nil {
			e.t.deferCallback(func() { callback(err) })
		}
		return false
	}

	s.cl.sendData = nil
	s.cl.sendCallback = nil
	return true
}

func (e *connectionlessEngine) Close(s *Socket, cause error) error {
	if cb := s.cl.sendCallback; s.cl.sendData != nil && cb != nil {
		e.t.deferCallback(func() { cb(cause) })
	}
	if cb := s.cl.recvCallback; cb != nil {
		e.t.deferCallback(func() { cb(nil, 0, cause) })
	}

	s.cl = clState{}
	return nil
}
