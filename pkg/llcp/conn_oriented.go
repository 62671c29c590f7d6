// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package llcp

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

// coControl is an unnumbered PDU waiting to be sent by a socket.
type coControl int

const (
	controlNone coControl = iota
	controlConnect
	controlCC
	controlDisc
)

// coState is the data link state of a connection-oriented socket.
type coState struct {
	// incoming marks sockets created for a received CONNECT PDU.
	incoming bool

	listenCallback     func(Handle, error)
	connectCallback    func(error)
	disconnectCallback func(error)

	// serviceName is sent as SN parameter for connections by URI.
	serviceName string

	control coControl

	// Send and receive state variables.
	vs, vsa uint8
	vr, vra uint8

	remoteBusy bool
	ackPending bool

	sendData     []byte
	sendCallback func(error)

	recvQueue    [][]byte
	recvCallback func([]byte, error)
}

// connOrientedEngine is the default ConnectionOrientedEngine.
type connOrientedEngine struct {
	t *Transport
}

func newConnOrientedEngine(t *Transport) ConnectionOrientedEngine {
	return &connOrientedEngine{t: t}
}

func (e *connOrientedEngine) Listen(s *Socket, callback func(child Handle, err error)) error {
	if s.co.incoming {
		return invalidState(s, "Listen")
	}

	s.co.listenCallback = callback
	s.state = StateRegistered
	return nil
}

func (e *connOrientedEngine) Accept(s *Socket, callback func(err error)) error {
	if !s.co.incoming {
		return invalidState(s, "Accept")
	}

	s.co.connectCallback = callback
	s.co.control = controlCC
	s.state = StateAccepted

	e.t.kick(s)
	return nil
}

func (e *connOrientedEngine) Reject(s *Socket) error {
	if !s.co.incoming {
		return invalidState(s, "Reject")
	}

	e.t.sendDisconnectMode(s.remoteSAP, s.localSAP, pdu.DMRejected)
	return e.t.closeSocket(s, ErrRejected)
}

func (e *connOrientedEngine) Connect(s *Socket, dsap pdu.SAP, serviceName string, callback func(err error)) error {
	if s.co.incoming {
		return invalidState(s, "Connect")
	}

	s.remoteSAP = dsap
	s.co.serviceName = serviceName
	s.co.connectCallback = callback
	s.co.control = controlConnect
	s.state = StateConnecting

	e.t.kick(s)
	return nil
}

func (e *connOrientedEngine) Disconnect(s *Socket, callback func(err error)) error {
	s.co.disconnectCallback = callback
	s.co.control = controlDisc
	s.state = StateDisconnecting

	e.failSend(s, ErrDisconnected)

	e.t.kick(s)
	return nil
}

func (e *connOrientedEngine) Send(s *Socket, data []byte, callback func(err error)) error {
	if len(data) > s.remote.MIU {
		return fmt.Errorf("%d octets exceed the remote MIU %d: %w", len(data), s.remote.MIU, ErrInvalidParameter)
	}
	if s.co.sendData != nil {
		return fmt.Errorf("%v already sends: %w", s.Handle(), ErrRejected)
	}

	s.co.sendData = append([]byte{}, data...)
	s.co.sendCallback = callback

	e.t.kick(s)
	return nil
}

func (e *connOrientedEngine) Recv(s *Socket, callback func(data []byte, err error)) error {
	if s.co.recvCallback != nil {
		return fmt.Errorf("%v already receives: %w", s.Handle(), ErrRejected)
	}

	if len(s.co.recvQueue) == 0 {
		s.co.recvCallback = callback
		return nil
	}

	data := s.co.recvQueue[0]
	s.co.recvQueue = s.co.recvQueue[1:]
	e.t.deferCallback(func() { callback(data, nil) })

	// The consumed I PDU reopens the peer's window.
	s.co.ackPending = true
	e.t.kick(s)
	return nil
}

func (e *connOrientedEngine) Close(s *Socket, cause error) error {
	e.failSend(s, cause)
	if cb := s.co.recvCallback; cb != nil {
		s.co.recvCallback = nil
		e.t.deferCallback(func() { cb(nil, cause) })
	}
	if cb := s.co.connectCallback; cb != nil && (s.state == StateConnecting || s.state == StateAccepted) {
		s.co.connectCallback = nil
		e.t.deferCallback(func() { cb(cause) })
	}
	if cb := s.co.disconnectCallback; cb != nil && s.state == StateDisconnecting {
		s.co.disconnectCallback = nil
		e.t.deferCallback(func() { cb(cause) })
	}

	// Only a local close informs the peer; other causes are either known to
	// the peer already or the link is gone.
	if !errors.Is(cause, ErrSocketClosed) || e.t.link == nil || e.t.linkError {
		return nil
	}

	switch {
	case s.co.incoming && s.state == StateBound:
		e.t.sendDisconnectMode(s.remoteSAP, s.localSAP, pdu.DMRejected)

	case s.state == StateConnecting, s.state == StateAccepted, s.state == StateConnected, s.state == StateDisconnecting:
		disc := pdu.NewFrame(pdu.NewHeader(s.remoteSAP, pdu.DISC, s.localSAP), nil)
		if err := e.t.linkSend(disc, nil, nil); errors.Is(err, ErrBusy) {
			if len(e.t.orphans) >= len(e.t.sockets) {
				return fmt.Errorf("dropping DISC for %v: %w", s, ErrInsufficientResources)
			}
			e.t.orphans = append(e.t.orphans, disc)
		} else if err != nil {
			return err
		}
	}
	return nil
}

// failSend aborts a send which was not yet passed to the link.
func (e *connOrientedEngine) failSend(s *Socket, cause error) {
	if cb := s.co.sendCallback; s.co.sendData != nil {
		s.co.sendData = nil
		s.co.sendCallback = nil
		if cb != nil {
			e.t.deferCallback(func() { cb(cause) })
		}
	}
}

func (e *connOrientedEngine) HandlePendingOperations(s *Socket) bool {
	switch s.co.control {
	case controlConnect:
		return e.sendConnect(s)
	case controlCC:
		return e.sendCC(s)
	case controlDisc:
		return e.sendUnnumbered(s, pdu.DISC, nil, nil)
	}

	if s.state != StateConnected {
		return false
	}

	if s.co.sendData != nil && !s.co.remoteBusy && pdu.SeqDistance(s.co.vsa, s.co.vs) < s.remote.RW {
		return e.sendInformation(s)
	}

	if s.co.ackPending {
		ptype := pdu.RR
		if len(s.co.recvQueue) >= int(s.local.RW) {
			ptype = pdu.RNR
		}

		nr := ackNR(s)
		frame := pdu.NewSequencedFrame(pdu.NewHeader(s.remoteSAP, ptype, s.localSAP), pdu.Sequence{NR: nr}, nil)
		if e.t.linkSend(frame, s, nil) != nil {
			return false
		}
		s.co.vra = nr
		s.co.ackPending = false
		return true
	}

	return false
}

// ackNR is the N(R) to be sent. I PDUs still queued for Recv are not
// acknowledged, so the peer's window never exceeds the free queue space.
func ackNR(s *Socket) uint8 {
	return pdu.SeqDistance(uint8(len(s.co.recvQueue)), s.co.vr)
}

// localParameters are the MIUX and RW parameters of CONNECT and CC PDUs.
func localParameters(s *Socket) pdu.Parameters {
	var params pdu.Parameters
	_ = params.SetMIU(s.local.MIU)
	_ = params.SetRW(s.local.RW)
	return params
}

func (e *connOrientedEngine) sendConnect(s *Socket) bool {
	params := localParameters(s)
	if s.co.serviceName != "" {
		params.SetServiceName(s.co.serviceName)
	}

	payload, err := params.MarshalBinary()
	if err != nil {
		e.t.logger.WithError(err).WithField("socket", s).Warn("Encoding CONNECT parameters errored")
		return false
	}
	return e.sendUnnumbered(s, pdu.CONNECT, payload, nil)
}

func (e *connOrientedEngine) sendCC(s *Socket) bool {
	payload, err := localParameters(s).MarshalBinary()
	if err != nil {
		e.t.logger.WithError(err).WithField("socket", s).Warn("Encoding CC parameters errored")
		return false
	}

	callback := s.co.connectCallback
	s.co.connectCallback = nil
	ok := e.sendUnnumbered(s, pdu.CC, payload, func(err error) {
		if callback != nil {
			e.t.deferCallback(func() { callback(err) })
		}
	})
	if !ok {
		s.co.connectCallback = callback
		return false
	}

	// The peer might send right after receiving the CC.
	s.state = StateConnected
	return true
}

// sendUnnumbered sends the socket's pending control PDU.
func (e *connOrientedEngine) sendUnnumbered(s *Socket, ptype pdu.PType, payload []byte, done func(error)) bool {
	frame := pdu.NewFrame(pdu.NewHeader(s.remoteSAP, ptype, s.localSAP), payload)
	if err := e.t.linkSend(frame, s, done); err != nil {
		if !errors.Is(err, ErrBusy) {
			e.t.logger.WithError(err).WithField("socket", s).Warn("Sending control PDU errored")
		}
		return false
	}

	s.co.control = controlNone
	return true
}

func (e *connOrientedEngine) sendInformation(s *Socket) bool {
	seq := pdu.Sequence{NS: s.co.vs, NR: ackNR(s)}
	frame := pdu.NewSequencedFrame(pdu.NewHeader(s.remoteSAP, pdu.I, s.localSAP), seq, s.co.sendData)

	callback := s.co.sendCallback
	err := e.t.linkSend(frame, s, func(err error) {
		if callback != nil {
			e.t.deferCallback(func() { callback(err) })
		}
	})
	if err != nil {
		if !errors.Is(err, ErrBusy) {
			e.failSend(s, err)
		}
		return false
	}

	s.co.sendData = nil
	s.co.sendCallback = nil
	s.co.vs = pdu.SeqAdd(s.co.vs, 1)
	s.co.vra = seq.NR
	s.co.ackPending = false
	return true
}

// lookup finds the socket of a connection.
func (e *connOrientedEngine) lookup(localSAP, remoteSAP pdu.SAP) *Socket {
	for i := range e.t.sockets {
		s := &e.t.sockets[i]
		if s.typ != ConnectionOriented || s.localSAP != localSAP || s.remoteSAP != remoteSAP {
			continue
		}

		switch s.state {
		case StateConnecting, StateAccepted, StateConnected, StateDisconnecting:
			return s
		case StateBound:
			if s.co.incoming {
				return s
			}
		}
	}
	return nil
}

// lookupByURI finds a socket connecting by URI, awaiting the peer's SAP.
func (e *connOrientedEngine) lookupByURI(localSAP pdu.SAP) *Socket {
	for i := range e.t.sockets {
		s := &e.t.sockets[i]
		if s.typ == ConnectionOriented && s.state == StateConnecting &&
			s.localSAP == localSAP && s.remoteSAP == pdu.SAPSDP && s.co.serviceName != "" {
			return s
		}
	}
	return nil
}

func (e *connOrientedEngine) HandleFrame(frame pdu.Frame) {
	h := frame.Header
	if h.PType == pdu.CONNECT {
		e.handleConnect(frame)
		return
	}

	s := e.lookup(h.DSAP, h.SSAP)
	if s == nil && (h.PType == pdu.CC || h.PType == pdu.DM) {
		s = e.lookupByURI(h.DSAP)
	}

	if s == nil {
		switch h.PType {
		case pdu.DM, pdu.FRMR:
			e.t.logger.WithField("frame", frame).Debug("Ignoring PDU for unknown connection")
		default:
			e.t.logger.WithField("frame", frame).Debug("Answering PDU for unknown connection")
			e.t.sendDisconnectMode(h.SSAP, h.DSAP, pdu.DMNoActiveConnection)
		}
		return
	}

	logger := e.t.logger.WithFields(log.Fields{
		"socket": s,
		"frame":  frame,
	})

	switch h.PType {
	case pdu.CC:
		e.handleCC(s, frame)
	case pdu.DM:
		e.handleDM(s, frame)
	case pdu.FRMR:
		e.handleFRMR(s, frame)
	case pdu.DISC:
		e.handleDisc(s)
	case pdu.I:
		e.handleInformation(s, frame)
	case pdu.RR, pdu.RNR:
		e.handleReceiveReady(s, frame)
	default:
		logger.Debug("Rejecting reserved PDU type")
		e.t.sendFrameReject(s, pdu.RejectW, h.PType, frame.Sequence)
	}
}

func (e *connOrientedEngine) handleConnect(frame pdu.Frame) {
	h := frame.Header

	params, err := pdu.ParseParameters(frame.Payload)
	if err != nil {
		e.t.logger.WithError(err).WithField("frame", frame).Debug("Rejecting CONNECT with malformed parameters")
		e.t.sendDisconnectMode(h.SSAP, h.DSAP, pdu.DMRejected)
		return
	}

	var listener *Socket
	if h.DSAP == pdu.SAPSDP {
		if params.Has(pdu.HasServiceName) {
			listener = e.t.sockets.byName(params.ServiceName)
		}
	} else {
		for i := range e.t.sockets {
			if s := &e.t.sockets[i]; s.state == StateRegistered && s.localSAP == h.DSAP {
				listener = s
				break
			}
		}
	}

	if listener == nil || listener.typ != ConnectionOriented || listener.state != StateRegistered {
		e.t.logger.WithField("frame", frame).Debug("No service listens for CONNECT")
		e.t.sendDisconnectMode(h.SSAP, h.DSAP, pdu.DMNoService)
		return
	}

	if existing := e.lookup(listener.localSAP, h.SSAP); existing != nil {
		e.t.logger.WithField("socket", existing).Debug("Ignoring CONNECT for an existing connection")
		return
	}

	child, err := e.t.sockets.allocate()
	if err != nil {
		e.t.logger.WithError(err).WithField("frame", frame).Info("Rejecting CONNECT")
		e.t.sendDisconnectMode(h.SSAP, h.DSAP, pdu.DMTemporarySAPReject)
		return
	}

	child.typ = ConnectionOriented
	child.state = StateBound
	child.localSAP = listener.localSAP
	child.remoteSAP = h.SSAP
	child.local = listener.local
	child.remote = SocketOptions{MIU: params.MIU(), RW: params.ReceiveWindow()}
	child.errorCallback = listener.errorCallback
	child.co.incoming = true

	e.t.logger.WithFields(log.Fields{
		"listener": listener,
		"socket":   child,
	}).Info("Incoming connection")

	callback, handle := listener.co.listenCallback, child.Handle()
	e.t.deferCallback(func() { callback(handle, nil) })
}

func (e *connOrientedEngine) handleCC(s *Socket, frame pdu.Frame) {
	if s.state != StateConnecting {
		e.t.logger.WithField("socket", s).Debug("Ignoring unexpected CC")
		return
	}

	params, err := pdu.ParseParameters(frame.Payload)
	if err != nil {
		e.t.sendFrameReject(s, pdu.RejectW, pdu.CC, pdu.Sequence{})
		return
	}

	s.remoteSAP = frame.Header.SSAP
	s.remote = SocketOptions{MIU: params.MIU(), RW: params.ReceiveWindow()}
	s.state = StateConnected

	e.t.logger.WithField("socket", s).Info("Connection established")

	if cb := s.co.connectCallback; cb != nil {
		s.co.connectCallback = nil
		e.t.deferCallback(func() { cb(nil) })
	}

	e.t.kick(s)
}

func (e *connOrientedEngine) handleDM(s *Socket, frame pdu.Frame) {
	reason, err := pdu.ParseDMReason(frame.Payload)
	if err != nil {
		e.t.logger.WithError(err).WithField("socket", s).Debug("DM without reason")
	}

	switch s.state {
	case StateConnecting:
		s.state = StateRejected
		if cb := s.co.connectCallback; cb != nil {
			s.co.connectCallback = nil
			e.t.deferCallback(func() { cb(fmt.Errorf("%v: %w", reason, ErrRejected)) })
		}

	case StateDisconnecting:
		s.state = StateDisconnected
		if cb := s.co.disconnectCallback; cb != nil {
			s.co.disconnectCallback = nil
			e.t.deferCallback(func() { cb(nil) })
		}
		e.abortReceive(s, ErrDisconnected)

	default:
		e.tearDown(s, fmt.Errorf("%v: %w", reason, ErrDisconnected))
	}
}

func (e *connOrientedEngine) handleFRMR(s *Socket, frame pdu.Frame) {
	var info pdu.FrameRejectInfo
	if err := info.UnmarshalBinary(frame.Payload); err != nil {
		e.t.logger.WithError(err).WithField("socket", s).Debug("Malformed FRMR")
	}

	e.tearDown(s, fmt.Errorf("peer rejected %v: %w", info, ErrRejected))
}

// tearDown closes a socket after a peer's DM or FRMR and informs its owner.
func (e *connOrientedEngine) tearDown(s *Socket, cause error) {
	e.t.logger.WithError(cause).WithField("socket", s).Warn("Connection torn down by peer")

	errorCallback := s.errorCallback
	if err := e.t.closeSocket(s, cause); err != nil {
		e.t.logger.WithError(err).Debug("Closing torn down socket errored")
	}
	if errorCallback != nil {
		e.t.deferCallback(func() { errorCallback(cause) })
	}
}

func (e *connOrientedEngine) handleDisc(s *Socket) {
	e.t.sendDisconnectMode(s.remoteSAP, s.localSAP, pdu.DMDisconnected)

	if s.state == StateDisconnecting {
		if cb := s.co.disconnectCallback; cb != nil {
			s.co.disconnectCallback = nil
			e.t.deferCallback(func() { cb(nil) })
		}
	} else if cb := s.errorCallback; cb != nil {
		e.t.deferCallback(func() { cb(ErrDisconnected) })
	}

	if cb := s.co.connectCallback; cb != nil {
		s.co.connectCallback = nil
		e.t.deferCallback(func() { cb(ErrDisconnected) })
	}

	s.state = StateDisconnected
	s.co.control = controlNone
	e.failSend(s, ErrDisconnected)
	e.abortReceive(s, ErrDisconnected)

	e.t.logger.WithField("socket", s).Info("Peer disconnected")
}

// abortReceive fails a pending Recv; queued data stays until closed.
func (e *connOrientedEngine) abortReceive(s *Socket, cause error) {
	if cb := s.co.recvCallback; cb != nil {
		s.co.recvCallback = nil
		e.t.deferCallback(func() { cb(nil, cause) })
	}
}

// validNR checks if nr acknowledges only sent PDUs.
func validNR(s *Socket, nr uint8) bool {
	return pdu.SeqDistance(s.co.vsa, nr) <= pdu.SeqDistance(s.co.vsa, s.co.vs)
}

func (e *connOrientedEngine) handleInformation(s *Socket, frame pdu.Frame) {
	if s.state != StateConnected && s.state != StateAccepted {
		e.t.logger.WithField("socket", s).Debug("Ignoring I PDU on unconnected socket")
		return
	}

	// The receive window starts at the last acknowledged N(R).
	seq := frame.Sequence
	switch {
	case len(frame.Payload) > s.local.MIU:
		e.t.sendFrameReject(s, pdu.RejectI, pdu.I, seq)
		return
	case seq.NS != s.co.vr || pdu.SeqDistance(s.co.vra, seq.NS) >= s.local.RW:
		e.t.sendFrameReject(s, pdu.RejectS, pdu.I, seq)
		return
	case !validNR(s, seq.NR):
		e.t.sendFrameReject(s, pdu.RejectR, pdu.I, seq)
		return
	}

	s.co.vr = pdu.SeqAdd(s.co.vr, 1)
	s.co.vsa = seq.NR

	data := append([]byte{}, frame.Payload...)
	if cb := s.co.recvCallback; cb != nil {
		s.co.recvCallback = nil
		s.co.ackPending = true
		e.t.deferCallback(func() { cb(data, nil) })
	} else {
		s.co.recvQueue = append(s.co.recvQueue, data)
		// RNR while the queue fills the whole receive window.
		s.co.ackPending = len(s.co.recvQueue) >= int(s.local.RW)
	}

	e.t.kick(s)
}

func (e *connOrientedEngine) handleReceiveReady(s *Socket, frame pdu.Frame) {
	if s.state != StateConnected && s.state != StateDisconnecting {
		return
	}
	if !validNR(s, frame.Sequence.NR) {
		e.t.sendFrameReject(s, pdu.RejectR, frame.Header.PType, frame.Sequence)
		return
	}

	s.co.vsa = frame.Sequence.NR
	s.co.remoteBusy = frame.Header.PType == pdu.RNR

	e.t.kick(s)
}
