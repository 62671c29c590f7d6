// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package llcp

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

// Socket creates a new socket. Zero options are replaced by the configured
// defaults. The optional errorCallback is called if the socket is torn down
// by the peer or by a protocol violation.
func (t *Transport) Socket(typ SocketType, options SocketOptions, errorCallback func(error)) (Handle, error) {
	if typ != ConnectionOriented && typ != Connectionless {
		return Handle{}, fmt.Errorf("%v: %w", typ, ErrInvalidParameter)
	}

	if options == (SocketOptions{}) {
		options = t.config.DefaultOptions
	}
	if err := options.validate(); err != nil {
		return Handle{}, err
	}

	bufferSize := options.MIU * int(options.RW)
	if typ == Connectionless {
		bufferSize = options.MIU * t.config.DatagramQueueLen
	}
	if bufferSize > t.config.MaxBufferSize {
		return Handle{}, fmt.Errorf("buffer of %d octets exceeds %d: %w", bufferSize, t.config.MaxBufferSize, ErrNotEnoughMemory)
	}

	t.mutex.Lock()
	defer t.unlock()

	if t.link == nil {
		return Handle{}, ErrTransportClosed
	}

	s, err := t.sockets.allocate()
	if err != nil {
		return Handle{}, err
	}

	s.typ = typ
	s.state = StateCreated
	s.local = options
	s.errorCallback = errorCallback

	t.logger.WithField("socket", s).Debug("Created socket")
	return s.Handle(), nil
}

// socket resolves a Handle; the lock must be held.
func (t *Transport) socket(h Handle) (*Socket, error) {
	if t.link == nil {
		return nil, ErrTransportClosed
	}
	return t.sockets.get(h)
}

// socketOf resolves a Handle and checks the socket's type.
func (t *Transport) socketOf(h Handle, typ SocketType) (*Socket, error) {
	s, err := t.socket(h)
	if err != nil {
		return nil, err
	}
	if s.typ != typ {
		return nil, fmt.Errorf("%v is %v: %w", h, s.typ, ErrInvalidParameter)
	}
	return s, nil
}

func invalidState(s *Socket, op string) error {
	return fmt.Errorf("%s on %v socket %v: %w", op, s.state, s.Handle(), ErrInvalidState)
}

// Close a socket in any state. Pending operations fail with ErrSocketClosed.
func (t *Transport) Close(h Handle) error {
	t.mutex.Lock()
	defer t.unlock()

	s, err := t.socket(h)
	if err != nil {
		return err
	}
	return t.closeSocket(s, ErrSocketClosed)
}

// closeSocket lets the engine abort all operations and resets the slot.
func (t *Transport) closeSocket(s *Socket, cause error) (err error) {
	switch s.typ {
	case ConnectionOriented:
		err = t.co.Close(s, cause)
	case Connectionless:
		err = t.cl.Close(s, cause)
	}

	t.logger.WithFields(log.Fields{
		"socket": s,
		"cause":  cause,
	}).Debug("Closing socket")

	s.reset()
	return
}

// Bind a Created socket to a SAP. A non-empty name is registered as its
// service name and will be announced by SDP.
func (t *Transport) Bind(h Handle, name string) error {
	t.mutex.Lock()
	defer t.unlock()

	s, err := t.socket(h)
	if err != nil {
		return err
	}
	return t.bind(s, name)
}

func (t *Transport) bind(s *Socket, name string) error {
	if s.state != StateCreated {
		return invalidState(s, "Bind")
	}

	sap, err := t.getFreeSap(name)
	if err != nil {
		return err
	}
	if err := t.registerName(s, sap, name); err != nil {
		return err
	}

	s.localSAP = sap
	s.state = StateBound

	t.logger.WithField("socket", s).Debug("Bound socket")
	return nil
}

// Listen for incoming connections on a Bound connection-oriented socket. The
// callback receives a Handle for each connection, to be accepted or rejected.
func (t *Transport) Listen(h Handle, callback func(child Handle, err error)) error {
	if callback == nil {
		return fmt.Errorf("no callback: %w", ErrInvalidParameter)
	}

	t.mutex.Lock()
	defer t.unlock()

	s, err := t.socketOf(h, ConnectionOriented)
	if err != nil {
		return err
	} else if s.state != StateBound {
		return invalidState(s, "Listen")
	}
	return t.co.Listen(s, callback)
}

// Accept an incoming connection reported by Listen.
func (t *Transport) Accept(h Handle, callback func(err error)) error {
	t.mutex.Lock()
	defer t.unlock()

	s, err := t.socketOf(h, ConnectionOriented)
	if err != nil {
		return err
	} else if s.state != StateBound {
		return invalidState(s, "Accept")
	}
	return t.co.Accept(s, callback)
}

// Reject an incoming connection reported by Listen. The socket is closed.
func (t *Transport) Reject(h Handle) error {
	t.mutex.Lock()
	defer t.unlock()

	s, err := t.socketOf(h, ConnectionOriented)
	if err != nil {
		return err
	} else if s.state != StateBound {
		return invalidState(s, "Reject")
	}
	return t.co.Reject(s)
}

// Connect to the remote dsap. An unbound socket is bound implicitly to an
// unadvertised SAP.
func (t *Transport) Connect(h Handle, dsap pdu.SAP, callback func(err error)) error {
	if !dsap.IsValid() || dsap < pdu.SAPWellKnownFirst {
		return fmt.Errorf("destination SAP %d: %w", dsap, ErrInvalidParameter)
	}
	return t.connect(h, dsap, "", callback)
}

// ConnectByURI connects to a remote service by its name, resolved by the
// peer's SDP SAP.
func (t *Transport) ConnectByURI(h Handle, uri string, callback func(err error)) error {
	if uri == "" || len(uri) > maxServiceNameLen {
		return fmt.Errorf("service name %q: %w", uri, ErrInvalidParameter)
	}
	return t.connect(h, pdu.SAPSDP, uri, callback)
}

func (t *Transport) connect(h Handle, dsap pdu.SAP, uri string, callback func(err error)) error {
	t.mutex.Lock()
	defer t.unlock()

	s, err := t.socketOf(h, ConnectionOriented)
	if err != nil {
		return err
	}

	switch s.state {
	case StateCreated:
		if err := t.bind(s, ""); err != nil {
			return err
		}
	case StateBound:
	default:
		return invalidState(s, "Connect")
	}

	return t.co.Connect(s, dsap, uri, callback)
}

// Disconnect a Connected socket. The socket must be closed afterwards.
func (t *Transport) Disconnect(h Handle, callback func(err error)) error {
	t.mutex.Lock()
	defer t.unlock()

	s, err := t.socketOf(h, ConnectionOriented)
	if err != nil {
		return err
	} else if s.state != StateConnected {
		return invalidState(s, "Disconnect")
	}
	return t.co.Disconnect(s, callback)
}

// Send data on a Connected socket, at most the remote MIU. Only one Send
// might be pending per socket.
func (t *Transport) Send(h Handle, data []byte, callback func(err error)) error {
	t.mutex.Lock()
	defer t.unlock()

	s, err := t.socketOf(h, ConnectionOriented)
	if err != nil {
		return err
	} else if s.state != StateConnected {
		return invalidState(s, "Send")
	}
	return t.co.Send(s, data, callback)
}

// Recv the next information PDU on a Connected socket.
func (t *Transport) Recv(h Handle, callback func(data []byte, err error)) error {
	if callback == nil {
		return fmt.Errorf("no callback: %w", ErrInvalidParameter)
	}

	t.mutex.Lock()
	defer t.unlock()

	s, err := t.socketOf(h, ConnectionOriented)
	if err != nil {
		return err
	} else if s.state != StateConnected {
		return invalidState(s, "Recv")
	}
	return t.co.Recv(s, callback)
}

// SendTo sends a datagram from a Bound connectionless socket to dsap.
func (t *Transport) SendTo(h Handle, dsap pdu.SAP, data []byte, callback func(err error)) error {
	if !dsap.IsValid() || dsap == pdu.SAPLinkManagement {
		return fmt.Errorf("destination SAP %d: %w", dsap, ErrInvalidParameter)
	}

	t.mutex.Lock()
	defer t.unlock()

	s, err := t.socketOf(h, Connectionless)
	if err != nil {
		return err
	} else if s.state != StateBound {
		return invalidState(s, "SendTo")
	}
	return t.cl.SendTo(s, dsap, data, callback)
}

// RecvFrom receives the next datagram on a Bound connectionless socket.
func (t *Transport) RecvFrom(h Handle, callback func(data []byte, ssap pdu.SAP, err error)) error {
	if callback == nil {
		return fmt.Errorf("no callback: %w", ErrInvalidParameter)
	}

	t.mutex.Lock()
	defer t.unlock()

	s, err := t.socketOf(h, Connectionless)
	if err != nil {
		return err
	} else if s.state != StateBound {
		return invalidState(s, "RecvFrom")
	}
	return t.cl.RecvFrom(s, callback)
}

// SocketGetLocalOptions returns the socket's own MIU and RW.
func (t *Transport) SocketGetLocalOptions(h Handle) (SocketOptions, error) {
	t.mutex.Lock()
	defer t.unlock()

	s, err := t.socket(h)
	if err != nil {
		return SocketOptions{}, err
	}
	return s.local, nil
}

// SocketGetRemoteOptions returns the peer's MIU and RW. For connectionless
// sockets, the MIU is the link's MIU.
func (t *Transport) SocketGetRemoteOptions(h Handle) (SocketOptions, error) {
	t.mutex.Lock()
	defer t.unlock()

	s, err := t.socket(h)
	if err != nil {
		return SocketOptions{}, err
	}

	switch {
	case s.typ == Connectionless && s.state == StateBound:
		return SocketOptions{MIU: t.remoteLinkMIU()}, nil
	case s.typ == ConnectionOriented && (s.co.incoming || s.state == StateConnected || s.state == StateDisconnecting):
		return s.remote, nil
	default:
		return SocketOptions{}, invalidState(s, "SocketGetRemoteOptions")
	}
}

// SendFrameReject tears the socket down after the peer violated the protocol
// with the rejected frame. A FRMR PDU is sent and the socket's error callback
// is called.
func (t *Transport) SendFrameReject(h Handle, flags pdu.RejectFlags, rejected pdu.Frame) error {
	t.mutex.Lock()
	defer t.unlock()

	s, err := t.socketOf(h, ConnectionOriented)
	if err != nil {
		return err
	}

	t.sendFrameReject(s, flags, rejected.Header.PType, rejected.Sequence)
	return nil
}

func (t *Transport) sendFrameReject(s *Socket, flags pdu.RejectFlags, ptype pdu.PType, seq pdu.Sequence) {
	info := pdu.FrameRejectInfo{
		Flags:    flags,
		PType:    ptype,
		Sequence: seq,
		VS:       s.co.vs,
		VR:       s.co.vr,
		VSA:      s.co.vsa,
		VRA:      s.co.vra,
	}
	payload, _ := info.MarshalBinary()
	frame := pdu.NewFrame(pdu.NewHeader(s.remoteSAP, pdu.FRMR, s.localSAP), payload)

	t.logger.WithFields(log.Fields{
		"socket": s,
		"reject": info,
	}).Warn("Rejecting frame, closing socket")

	cause := fmt.Errorf("%v: %w", info, ErrRejected)
	errorCallback := s.errorCallback

	if err := t.closeSocket(s, cause); err != nil {
		t.logger.WithError(err).Debug("Closing rejected socket errored")
	}
	if errorCallback != nil {
		t.deferCallback(func() { errorCallback(cause) })
	}

	t.sendControl(frame)
}

// SendDisconnectMode sends a DM PDU, e.g., to answer a CONNECT for an unknown
// service.
func (t *Transport) SendDisconnectMode(dsap, ssap pdu.SAP, reason pdu.DMReason) error {
	if !dsap.IsValid() || !ssap.IsValid() {
		return fmt.Errorf("SAPs %d, %d: %w", dsap, ssap, ErrInvalidParameter)
	}

	t.mutex.Lock()
	defer t.unlock()

	if t.link == nil {
		return ErrTransportClosed
	}

	t.sendDisconnectMode(dsap, ssap, reason)
	return nil
}

func (t *Transport) sendDisconnectMode(dsap, ssap pdu.SAP, reason pdu.DMReason) {
	t.sendControl(pdu.NewFrame(pdu.NewHeader(dsap, pdu.DM, ssap), []byte{byte(reason)}))
}
