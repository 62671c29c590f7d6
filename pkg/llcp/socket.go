// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package llcp

import (
	"fmt"

	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

// SocketType distinguishes connection-oriented from connectionless sockets.
type SocketType int

const (
	ConnectionOriented SocketType = iota + 1
	Connectionless
)

func (st SocketType) String() string {
	switch st {
	case ConnectionOriented:
		return "connection-oriented"
	case Connectionless:
		return "connectionless"
	default:
		return fmt.Sprintf("SocketType(%d)", int(st))
	}
}

// SocketState is a socket's lifecycle state.
type SocketState int

const (
	StateDefault SocketState = iota
	StateCreated
	StateBound
	StateRegistered
	StateConnecting
	StateAccepted
	StateConnected
	StateDisconnecting
	StateDisconnected
	StateRejected
)

func (ss SocketState) String() string {
	switch ss {
	case StateDefault:
		return "default"
	case StateCreated:
		return "created"
	case StateBound:
		return "bound"
	case StateRegistered:
		return "registered"
	case StateConnecting:
		return "connecting"
	case StateAccepted:
		return "accepted"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateDisconnected:
		return "disconnected"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("SocketState(%d)", int(ss))
	}
}

// SocketOptions are a socket's MIU and receive window.
type SocketOptions struct {
	MIU int
	RW  uint8
}

func (so SocketOptions) String() string {
	return fmt.Sprintf("(miu=%d, rw=%d)", so.MIU, so.RW)
}

func (so SocketOptions) validate() error {
	if so.MIU < pdu.DefaultMIU || so.MIU > pdu.MaxMIU {
		return fmt.Errorf("MIU %d not within [%d, %d]: %w", so.MIU, pdu.DefaultMIU, pdu.MaxMIU, ErrInvalidParameter)
	}
	if so.RW > pdu.MaxRW {
		return fmt.Errorf("RW %d exceeds %d: %w", so.RW, pdu.MaxRW, ErrInvalidParameter)
	}
	return nil
}

// Handle references a socket. A Handle becomes stale when its socket is
// closed; the slot might be reused by another socket with a new Handle.
type Handle struct {
	index      int
	generation uint32
}

func (h Handle) String() string {
	return fmt.Sprintf("socket#%d.%d", h.index, h.generation)
}

// Socket is an entry of the socket table. All fields are guarded by the
// Transport's lock; engines are called with this lock held.
type Socket struct {
	index      int
	generation uint32

	typ   SocketType
	state SocketState

	localSAP  pdu.SAP
	remoteSAP pdu.SAP
	name      string

	local  SocketOptions
	remote SocketOptions

	errorCallback func(error)

	co coState
	cl clState
}

func (s *Socket) Handle() Handle {
	return Handle{index: s.index, generation: s.generation}
}

func (s *Socket) Type() SocketType {
	return s.typ
}

func (s *Socket) State() SocketState {
	return s.state
}

func (s *Socket) LocalSAP() pdu.SAP {
	return s.localSAP
}

func (s *Socket) RemoteSAP() pdu.SAP {
	return s.remoteSAP
}

// ServiceName is the bound service name, empty if none.
func (s *Socket) ServiceName() string {
	return s.name
}

func (s *Socket) LocalOptions() SocketOptions {
	return s.local
}

func (s *Socket) RemoteOptions() SocketOptions {
	return s.remote
}

func (s *Socket) String() string {
	return fmt.Sprintf("Socket(%v, %v, %v, %d->%d, %q)",
		s.Handle(), s.typ, s.state, s.localSAP, s.remoteSAP, s.name)
}

// reset returns the slot to StateDefault. The generation is advanced, which
// invalidates all Handles of the previous socket.
func (s *Socket) reset() {
	*s = Socket{index: s.index, generation: s.generation + 1}
}

// SocketInfo is a snapshot of a socket, e.g., for introspection.
type SocketInfo struct {
	Handle      string `json:"handle"`
	Type        string `json:"type"`
	State       string `json:"state"`
	LocalSAP    uint8  `json:"local_sap"`
	RemoteSAP   uint8  `json:"remote_sap"`
	ServiceName string `json:"service_name,omitempty"`
	MIU         int    `json:"miu"`
	RW          uint8  `json:"rw"`
}

func (s *Socket) info() SocketInfo {
	return SocketInfo{
		Handle:      s.Handle().String(),
		Type:        s.typ.String(),
		State:       s.state.String(),
		LocalSAP:    uint8(s.localSAP),
		RemoteSAP:   uint8(s.remoteSAP),
		ServiceName: s.name,
		MIU:         s.local.MIU,
		RW:          s.local.RW,
	}
}

// socketTable is the fixed-size arena of sockets.
type socketTable []Socket

func newSocketTable(size int) socketTable {
	st := make(socketTable, size)
	for i := range st {
		st[i].index = i
		st[i].generation = 1
	}
	return st
}

// get resolves a Handle to its live socket.
func (st socketTable) get(h Handle) (*Socket, error) {
	if h.index < 0 || h.index >= len(st) {
		return nil, fmt.Errorf("%v out of range: %w", h, ErrInvalidParameter)
	}
	s := &st[h.index]
	if s.generation != h.generation || s.state == StateDefault {
		return nil, fmt.Errorf("%v is stale: %w", h, ErrInvalidParameter)
	}
	return s, nil
}

// allocate the first free slot.
func (st socketTable) allocate() (*Socket, error) {
	for i := range st {
		if st[i].state == StateDefault {
			return &st[i], nil
		}
	}
	return nil, fmt.Errorf("all %d sockets in use: %w", len(st), ErrInsufficientResources)
}

// sapBound checks if any socket holds sap as its local SAP.
func (st socketTable) sapBound(sap pdu.SAP) bool {
	for i := range st {
		switch st[i].state {
		case StateDefault, StateCreated:
			continue
		}
		if st[i].localSAP == sap {
			return true
		}
	}
	return false
}

// byName finds a Bound or Registered socket with the given service name.
func (st socketTable) byName(name string) *Socket {
	for i := range st {
		s := &st[i]
		if (s.state == StateBound || s.state == StateRegistered) && s.name != "" && s.name == name {
			return s
		}
	}
	return nil
}

// serviceByName finds a socket able to serve name: a listening
// connection-oriented or a bound connectionless socket.
func (st socketTable) serviceByName(name string) *Socket {
	s := st.byName(name)
	switch {
	case s == nil:
		return nil
	case s.typ == ConnectionOriented && s.state == StateRegistered:
		return s
	case s.typ == Connectionless && s.state == StateBound:
		return s
	default:
		return nil
	}
}
