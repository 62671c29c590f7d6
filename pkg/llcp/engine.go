// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package llcp

import "github.com/dtn7/llcp-go/pkg/llcp/pdu"

// ConnectionOrientedEngine implements the data link of connection-oriented
// sockets. The Transport validates a socket's type and state before calling
// an engine. All methods are called with the Transport's lock held and must
// not block.
type ConnectionOrientedEngine interface {
	// Listen for incoming connections on a Bound socket. Each accepted
	// CONNECT PDU results in a new socket, reported to callback.
	Listen(s *Socket, callback func(child Handle, err error)) error

	// Accept an incoming connection.
	Accept(s *Socket, callback func(err error)) error

	// Reject an incoming connection.
	Reject(s *Socket) error

	// Connect a Bound socket to dsap or, for dsap 1, to serviceName.
	Connect(s *Socket, dsap pdu.SAP, serviceName string, callback func(err error)) error

	// Disconnect a Connected socket.
	Disconnect(s *Socket, callback func(err error)) error

	// Send one information PDU.
	Send(s *Socket, data []byte, callback func(err error)) error

	// Recv the next information PDU.
	Recv(s *Socket, callback func(data []byte, err error)) error

	// HandleFrame processes a received connection-oriented PDU.
	HandleFrame(frame pdu.Frame)

	// HandlePendingOperations sends the socket's next PDU, if any, and
	// reports if it did so.
	HandlePendingOperations(s *Socket) bool

	// Close aborts all operations of a socket with cause. The Transport
	// resets the socket afterwards.
	Close(s *Socket, cause error) error
}

// ConnectionlessEngine implements connectionless sockets, exchanging UI PDUs.
// The same rules as for a ConnectionOrientedEngine apply.
type ConnectionlessEngine interface {
	SendTo(s *Socket, dsap pdu.SAP, data []byte, callback func(err error)) error
	RecvFrom(s *Socket, callback func(data []byte, ssap pdu.SAP, err error)) error
	HandleFrame(frame pdu.Frame)
	HandlePendingOperations(s *Socket) bool
	Close(s *Socket, cause error) error
}
