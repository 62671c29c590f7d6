// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package llcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

func socketSAPs(t *testing.T, tr *Transport, h Handle) (local, remote pdu.SAP) {
	t.Helper()

	tr.mutex.Lock()
	defer tr.unlock()

	s, err := tr.sockets.get(h)
	require.NoError(t, err)
	return s.localSAP, s.remoteSAP
}

func socketState(t *testing.T, tr *Transport, h Handle) SocketState {
	t.Helper()

	tr.mutex.Lock()
	defer tr.unlock()

	s, err := tr.sockets.get(h)
	require.NoError(t, err)
	return s.state
}

func paramsPayload(t *testing.T, miu int, rw uint8, name string) []byte {
	t.Helper()

	var params pdu.Parameters
	require.NoError(t, params.SetMIU(miu))
	require.NoError(t, params.SetRW(rw))
	if name != "" {
		params.SetServiceName(name)
	}

	payload, err := params.MarshalBinary()
	require.NoError(t, err)
	return payload
}

func dmFrame(dsap, ssap pdu.SAP, reason pdu.DMReason) pdu.Frame {
	return pdu.NewFrame(pdu.NewHeader(dsap, pdu.DM, ssap), []byte{byte(reason)})
}

func iFrame(dsap, ssap pdu.SAP, ns, nr uint8, data []byte) pdu.Frame {
	return pdu.NewSequencedFrame(pdu.NewHeader(dsap, pdu.I, ssap), pdu.Sequence{NS: ns, NR: nr}, data)
}

// connectSocket establishes a connection to the peer's dsap.
func connectSocket(t *testing.T, tr *Transport, l *recordingLink, dsap pdu.SAP, errorCallback func(error)) Handle {
	t.Helper()

	flush(t, tr, l)

	h, err := tr.Socket(ConnectionOriented, SocketOptions{}, errorCallback)
	require.NoError(t, err)

	connectErrs, connectCb := errChan()
	require.NoError(t, tr.Connect(h, dsap, connectCb))
	waitIdle(t, tr)

	connect := l.last(t)
	require.Equal(t, pdu.CONNECT, connect.Header.PType)
	require.Equal(t, dsap, connect.Header.DSAP)
	flush(t, tr, l)

	local, _ := socketSAPs(t, tr, h)
	l.deliver(t, pdu.NewFrame(pdu.NewHeader(local, pdu.CC, dsap), paramsPayload(t, 256, 2, "")))
	require.NoError(t, receiveErr(t, connectErrs))
	flush(t, tr, l)

	require.Equal(t, StateConnected, socketState(t, tr, h))
	return h
}

type recvResult struct {
	data []byte
	err  error
}

func recvChan() (chan recvResult, func([]byte, error)) {
	ch := make(chan recvResult, 4)
	return ch, func(data []byte, err error) { ch <- recvResult{data, err} }
}

func receiveData(t *testing.T, ch <-chan recvResult) recvResult {
	t.Helper()

	select {
	case res := <-ch:
		return res
	case <-time.After(time.Second):
		require.FailNow(t, "receive callback was not called")
		return recvResult{}
	}
}

// listenSocket binds a listener to name and reports incoming connections.
func listenSocket(t *testing.T, tr *Transport, name string) (Handle, chan Handle) {
	t.Helper()

	h, err := tr.Socket(ConnectionOriented, SocketOptions{}, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Bind(h, name))

	children := make(chan Handle, 4)
	require.NoError(t, tr.Listen(h, func(child Handle, err error) {
		if err == nil {
			children <- child
		}
	}))
	return h, children
}

func receiveChild(t *testing.T, children <-chan Handle) Handle {
	t.Helper()

	select {
	case child := <-children:
		return child
	case <-time.After(time.Second):
		require.FailNow(t, "listen callback was not called")
		return Handle{}
	}
}

func TestConnectImplicitBind(t *testing.T) {
	tr, l := newTestTransport(t, DefaultConfig())

	h, err := tr.Socket(ConnectionOriented, SocketOptions{MIU: 300, RW: 3}, nil)
	require.NoError(t, err)

	connectErrs, connectCb := errChan()
	require.NoError(t, tr.Connect(h, 5, connectCb))
	waitIdle(t, tr)

	local, remote := socketSAPs(t, tr, h)
	assert.GreaterOrEqual(t, local, pdu.SAPUnadvertisedFirst)
	assert.LessOrEqual(t, local, pdu.SAPMax)
	assert.Equal(t, pdu.SAP(5), remote)
	assert.Equal(t, StateConnecting, socketState(t, tr, h))

	_, err = tr.SocketGetRemoteOptions(h)
	assert.ErrorIs(t, err, ErrInvalidState)

	connect := l.last(t)
	assert.Equal(t, pdu.NewHeader(5, pdu.CONNECT, local), connect.Header)
	params, err := pdu.ParseParameters(connect.Payload)
	require.NoError(t, err)
	assert.Equal(t, 300, params.MIU())
	assert.Equal(t, uint8(3), params.ReceiveWindow())
	assert.False(t, params.Has(pdu.HasServiceName))

	flush(t, tr, l)
	l.deliver(t, pdu.NewFrame(pdu.NewHeader(local, pdu.CC, 5), paramsPayload(t, 512, 4, "")))
	require.NoError(t, receiveErr(t, connectErrs))

	assert.Equal(t, StateConnected, socketState(t, tr, h))
	opts, err := tr.SocketGetRemoteOptions(h)
	require.NoError(t, err)
	assert.Equal(t, SocketOptions{MIU: 512, RW: 4}, opts)
}

func TestConnectInvalidDestination(t *testing.T) {
	tr, _ := newTestTransport(t, DefaultConfig())

	h, err := tr.Socket(ConnectionOriented, SocketOptions{}, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, tr.Connect(h, pdu.SAPSDP, nil), ErrInvalidParameter)
	assert.ErrorIs(t, tr.Connect(h, 0x40, nil), ErrInvalidParameter)
	assert.ErrorIs(t, tr.ConnectByURI(h, "", nil), ErrInvalidParameter)

	cl, err := tr.Socket(Connectionless, SocketOptions{}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, tr.Connect(cl, 5, nil), ErrInvalidParameter)
}

func TestConnectRejected(t *testing.T) {
	tr, l := newTestTransport(t, DefaultConfig())

	h, err := tr.Socket(ConnectionOriented, SocketOptions{}, nil)
	require.NoError(t, err)

	connectErrs, connectCb := errChan()
	require.NoError(t, tr.Connect(h, 5, connectCb))
	flush(t, tr, l)

	local, _ := socketSAPs(t, tr, h)
	l.deliver(t, dmFrame(local, 5, pdu.DMNoService))

	assert.ErrorIs(t, receiveErr(t, connectErrs), ErrRejected)
	assert.Equal(t, StateRejected, socketState(t, tr, h))

	require.NoError(t, tr.Close(h))
	flush(t, tr, l)
	assert.Empty(t, framesOfType(l.frames(), pdu.DISC))
}

func TestConnectByURI(t *testing.T) {
	tr, l := newTestTransport(t, DefaultConfig())

	h, err := tr.Socket(ConnectionOriented, SocketOptions{}, nil)
	require.NoError(t, err)

	connectErrs, connectCb := errChan()
	require.NoError(t, tr.ConnectByURI(h, "urn:nfc:sn:snep", connectCb))
	waitIdle(t, tr)

	local, _ := socketSAPs(t, tr, h)
	connect := l.last(t)
	assert.Equal(t, pdu.NewHeader(pdu.SAPSDP, pdu.CONNECT, local), connect.Header)
	params, err := pdu.ParseParameters(connect.Payload)
	require.NoError(t, err)
	assert.Equal(t, "urn:nfc:sn:snep", params.ServiceName)

	flush(t, tr, l)
	l.deliver(t, pdu.NewFrame(pdu.NewHeader(local, pdu.CC, 0x04), nil))
	require.NoError(t, receiveErr(t, connectErrs))

	_, remote := socketSAPs(t, tr, h)
	assert.Equal(t, pdu.SAP(0x04), remote)

	opts, err := tr.SocketGetRemoteOptions(h)
	require.NoError(t, err)
	assert.Equal(t, SocketOptions{MIU: pdu.DefaultMIU, RW: pdu.DefaultRW}, opts)
}

func TestListenAcceptExchange(t *testing.T) {
	tr, l := newTestTransport(t, DefaultConfig())

	listener, children := listenSocket(t, tr, "urn:nfc:sn:echo")
	assert.Equal(t, StateRegistered, socketState(t, tr, listener))

	l.deliver(t, pdu.NewFrame(pdu.NewHeader(0x10, pdu.CONNECT, 0x20), paramsPayload(t, 256, 2, "")))
	child := receiveChild(t, children)

	local, remote := socketSAPs(t, tr, child)
	assert.Equal(t, pdu.SAP(0x10), local)
	assert.Equal(t, pdu.SAP(0x20), remote)

	opts, err := tr.SocketGetRemoteOptions(child)
	require.NoError(t, err)
	assert.Equal(t, SocketOptions{MIU: 256, RW: 2}, opts)

	acceptErrs, acceptCb := errChan()
	require.NoError(t, tr.Accept(child, acceptCb))
	waitIdle(t, tr)
	assert.Equal(t, pdu.NewHeader(0x20, pdu.CC, 0x10), l.last(t).Header)
	flush(t, tr, l)
	require.NoError(t, receiveErr(t, acceptErrs))
	assert.Equal(t, StateConnected, socketState(t, tr, child))

	// The local RW of one is exhausted by a single queued I PDU, which stays
	// unacknowledged until received.
	l.deliver(t, iFrame(0x10, 0x20, 0, 0, []byte("ping")))
	waitIdle(t, tr)
	rnr := l.last(t)
	assert.Equal(t, pdu.RNR, rnr.Header.PType)
	assert.Equal(t, uint8(0), rnr.Sequence.NR)
	flush(t, tr, l)

	recvs, recvCb := recvChan()
	require.NoError(t, tr.Recv(child, recvCb))
	res := receiveData(t, recvs)
	require.NoError(t, res.err)
	assert.Equal(t, []byte("ping"), res.data)

	waitIdle(t, tr)
	rr := l.last(t)
	assert.Equal(t, pdu.RR, rr.Header.PType)
	assert.Equal(t, uint8(1), rr.Sequence.NR)
	flush(t, tr, l)

	sendErrs, sendCb := errChan()
	require.NoError(t, tr.Send(child, []byte("pong"), sendCb))
	waitIdle(t, tr)
	info := l.last(t)
	assert.Equal(t, pdu.NewHeader(0x20, pdu.I, 0x10), info.Header)
	assert.Equal(t, pdu.Sequence{NS: 0, NR: 1}, info.Sequence)
	assert.Equal(t, []byte("pong"), info.Payload)
	flush(t, tr, l)
	require.NoError(t, receiveErr(t, sendErrs))

	assert.Zero(t, l.overlaps)
}

func TestListenRequiresBound(t *testing.T) {
	tr, _ := newTestTransport(t, DefaultConfig())

	h, err := tr.Socket(ConnectionOriented, SocketOptions{}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, tr.Listen(h, func(Handle, error) {}), ErrInvalidState)
	assert.ErrorIs(t, tr.Listen(h, nil), ErrInvalidParameter)

	require.NoError(t, tr.Bind(h, ""))
	assert.ErrorIs(t, tr.Accept(h, nil), ErrInvalidState)
}

func TestConnectByServiceName(t *testing.T) {
	tr, l := newTestTransport(t, DefaultConfig())

	_, children := listenSocket(t, tr, "urn:nfc:sn:echo")

	l.deliver(t, pdu.NewFrame(pdu.NewHeader(pdu.SAPSDP, pdu.CONNECT, 0x21), paramsPayload(t, 128, 1, "urn:nfc:sn:echo")))
	child := receiveChild(t, children)

	local, remote := socketSAPs(t, tr, child)
	assert.Equal(t, pdu.SAP(0x10), local)
	assert.Equal(t, pdu.SAP(0x21), remote)

	// Unknown service names are answered with a DM.
	l.deliver(t, pdu.NewFrame(pdu.NewHeader(pdu.SAPSDP, pdu.CONNECT, 0x22), paramsPayload(t, 128, 1, "urn:nfc:sn:nope")))
	waitIdle(t, tr)
	assert.Equal(t, dmFrame(0x22, pdu.SAPSDP, pdu.DMNoService), l.last(t))
}

func TestConnectToUnknownService(t *testing.T) {
	tr, l := newTestTransport(t, DefaultConfig())

	l.deliver(t, pdu.NewFrame(pdu.NewHeader(0x15, pdu.CONNECT, 0x20), nil))
	waitIdle(t, tr)
	assert.Equal(t, dmFrame(0x20, 0x15, pdu.DMNoService), l.last(t))
}

func TestConnectSocketTableFull(t *testing.T) {
	config := DefaultConfig()
	config.MaxSockets = 1
	tr, l := newTestTransport(t, config)

	listenSocket(t, tr, "urn:nfc:sn:echo")

	l.deliver(t, pdu.NewFrame(pdu.NewHeader(0x10, pdu.CONNECT, 0x20), nil))
	waitIdle(t, tr)
	assert.Equal(t, dmFrame(0x20, 0x10, pdu.DMTemporarySAPReject), l.last(t))
}

func TestRejectIncoming(t *testing.T) {
	tr, l := newTestTransport(t, DefaultConfig())

	_, children := listenSocket(t, tr, "urn:nfc:sn:echo")
	l.deliver(t, pdu.NewFrame(pdu.NewHeader(0x10, pdu.CONNECT, 0x20), nil))
	child := receiveChild(t, children)

	require.NoError(t, tr.Reject(child))
	waitIdle(t, tr)
	assert.Equal(t, dmFrame(0x20, 0x10, pdu.DMRejected), l.last(t))
	assert.ErrorIs(t, tr.Close(child), ErrInvalidParameter)
}

func TestDisconnect(t *testing.T) {
	tr, l := newTestTransport(t, DefaultConfig())
	h := connectSocket(t, tr, l, 0x10, nil)
	local, _ := socketSAPs(t, tr, h)

	disconnectErrs, disconnectCb := errChan()
	require.NoError(t, tr.Disconnect(h, disconnectCb))
	waitIdle(t, tr)
	assert.Equal(t, pdu.NewFrame(pdu.NewHeader(0x10, pdu.DISC, local), nil), l.last(t))
	assert.Equal(t, StateDisconnecting, socketState(t, tr, h))
	flush(t, tr, l)

	l.deliver(t, dmFrame(local, 0x10, pdu.DMDisconnected))
	require.NoError(t, receiveErr(t, disconnectErrs))
	assert.Equal(t, StateDisconnected, socketState(t, tr, h))

	before := len(l.frames())
	require.NoError(t, tr.Close(h))
	flush(t, tr, l)
	assert.Len(t, l.frames(), before)
}

func TestPeerDisconnect(t *testing.T) {
	tr, l := newTestTransport(t, DefaultConfig())

	socketErrs, socketCb := errChan()
	h := connectSocket(t, tr, l, 0x10, socketCb)
	local, _ := socketSAPs(t, tr, h)

	recvs, recvCb := recvChan()
	require.NoError(t, tr.Recv(h, recvCb))

	l.deliver(t, pdu.NewFrame(pdu.NewHeader(local, pdu.DISC, 0x10), nil))
	assert.ErrorIs(t, receiveErr(t, socketErrs), ErrDisconnected)
	assert.ErrorIs(t, receiveData(t, recvs).err, ErrDisconnected)

	waitIdle(t, tr)
	assert.Equal(t, dmFrame(0x10, local, pdu.DMDisconnected), l.last(t))
	assert.Equal(t, StateDisconnected, socketState(t, tr, h))
	assert.ErrorIs(t, tr.Send(h, []byte{1}, nil), ErrInvalidState)
}

func TestCloseSendsDisc(t *testing.T) {
	tr, l := newTestTransport(t, DefaultConfig())

	h1 := connectSocket(t, tr, l, 0x10, nil)
	h2 := connectSocket(t, tr, l, 0x11, nil)
	local1, _ := socketSAPs(t, tr, h1)
	local2, _ := socketSAPs(t, tr, h2)

	require.NoError(t, tr.Close(h1))
	waitIdle(t, tr)
	assert.Equal(t, pdu.NewFrame(pdu.NewHeader(0x10, pdu.DISC, local1), nil), l.last(t))

	// The link is still busy, so this DISC is kept as an orphan.
	require.NoError(t, tr.Close(h2))
	flush(t, tr, l)
	assert.Equal(t, pdu.NewFrame(pdu.NewHeader(0x11, pdu.DISC, local2), nil), l.last(t))
	assert.Len(t, framesOfType(l.frames(), pdu.DISC), 2)
}

func TestFrameRejectOnInvalidSequence(t *testing.T) {
	tests := []struct {
		name  string
		frame func(local pdu.SAP) pdu.Frame
		flags pdu.RejectFlags
	}{
		{"wrong N(S)", func(local pdu.SAP) pdu.Frame { return iFrame(local, 0x10, 3, 0, nil) }, pdu.RejectS},
		{"wrong N(R)", func(local pdu.SAP) pdu.Frame { return iFrame(local, 0x10, 0, 4, nil) }, pdu.RejectR},
		{"too long", func(local pdu.SAP) pdu.Frame { return iFrame(local, 0x10, 0, 0, make([]byte, 129)) }, pdu.RejectI},
		{"wrong RR", func(local pdu.SAP) pdu.Frame {
			return pdu.NewSequencedFrame(pdu.NewHeader(local, pdu.RR, 0x10), pdu.Sequence{NR: 2}, nil)
		}, pdu.RejectR},
		{"reserved", func(local pdu.SAP) pdu.Frame {
			return pdu.NewFrame(pdu.NewHeader(local, pdu.Reserved0A, 0x10), nil)
		}, pdu.RejectW},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tr, l := newTestTransport(t, DefaultConfig())

			socketErrs, socketCb := errChan()
			h := connectSocket(t, tr, l, 0x10, socketCb)
			local, _ := socketSAPs(t, tr, h)

			l.deliver(t, test.frame(local))
			assert.ErrorIs(t, receiveErr(t, socketErrs), ErrRejected)

			waitIdle(t, tr)
			frmr := l.last(t)
			assert.Equal(t, pdu.NewHeader(0x10, pdu.FRMR, local), frmr.Header)

			var info pdu.FrameRejectInfo
			require.NoError(t, info.UnmarshalBinary(frmr.Payload))
			assert.Equal(t, test.flags, info.Flags)

			assert.ErrorIs(t, tr.Close(h), ErrInvalidParameter)
		})
	}
}

func TestPeerFrameReject(t *testing.T) {
	tr, l := newTestTransport(t, DefaultConfig())

	socketErrs, socketCb := errChan()
	h := connectSocket(t, tr, l, 0x10, socketCb)
	local, _ := socketSAPs(t, tr, h)

	info, err := pdu.FrameRejectInfo{Flags: pdu.RejectW, PType: pdu.I}.MarshalBinary()
	require.NoError(t, err)
	l.deliver(t, pdu.NewFrame(pdu.NewHeader(local, pdu.FRMR, 0x10), info))

	assert.ErrorIs(t, receiveErr(t, socketErrs), ErrRejected)
	assert.ErrorIs(t, tr.Close(h), ErrInvalidParameter)

	flush(t, tr, l)
	assert.Empty(t, framesOfType(l.frames(), pdu.DISC))
}

func TestUnknownConnection(t *testing.T) {
	tr, l := newTestTransport(t, DefaultConfig())

	l.deliver(t, pdu.NewSequencedFrame(pdu.NewHeader(0x20, pdu.RR, 0x10), pdu.Sequence{}, nil))
	waitIdle(t, tr)
	assert.Equal(t, dmFrame(0x10, 0x20, pdu.DMNoActiveConnection), l.last(t))
	flush(t, tr, l)

	l.deliver(t, dmFrame(0x20, 0x10, pdu.DMDisconnected))
	l.deliver(t, pdu.NewFrame(pdu.NewHeader(0x20, pdu.FRMR, 0x10), make([]byte, 4)))
	waitIdle(t, tr)
	assert.Len(t, l.frames(), 1)
}

func TestSendWindow(t *testing.T) {
	tr, l := newTestTransport(t, DefaultConfig())

	h, err := tr.Socket(ConnectionOriented, SocketOptions{}, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Connect(h, 0x10, nil))
	flush(t, tr, l)
	local, _ := socketSAPs(t, tr, h)
	l.deliver(t, pdu.NewFrame(pdu.NewHeader(local, pdu.CC, 0x10), paramsPayload(t, 128, 1, "")))
	flush(t, tr, l)

	require.NoError(t, tr.Send(h, []byte("a"), nil))
	flush(t, tr, l)
	require.NoError(t, tr.Send(h, []byte("b"), nil))
	flush(t, tr, l)

	// The remote RW of one is exhausted until the peer acknowledges.
	assert.Len(t, framesOfType(l.frames(), pdu.I), 1)
	assert.ErrorIs(t, tr.Send(h, []byte("c"), nil), ErrRejected)

	l.deliver(t, pdu.NewSequencedFrame(pdu.NewHeader(local, pdu.RNR, 0x10), pdu.Sequence{NR: 1}, nil))
	flush(t, tr, l)
	assert.Len(t, framesOfType(l.frames(), pdu.I), 1)

	l.deliver(t, pdu.NewSequencedFrame(pdu.NewHeader(local, pdu.RR, 0x10), pdu.Sequence{NR: 1}, nil))
	flush(t, tr, l)

	frames := framesOfType(l.frames(), pdu.I)
	require.Len(t, frames, 2)
	assert.Equal(t, pdu.Sequence{NS: 1, NR: 0}, frames[1].Sequence)
	assert.Equal(t, []byte("b"), frames[1].Payload)
}

func TestReceiveWindow(t *testing.T) {
	tr, l := newTestTransport(t, DefaultConfig())

	socketErrs, socketCb := errChan()
	h, err := tr.Socket(ConnectionOriented, SocketOptions{MIU: 128, RW: 2}, socketCb)
	require.NoError(t, err)
	require.NoError(t, tr.Connect(h, 0x10, nil))
	flush(t, tr, l)
	local, _ := socketSAPs(t, tr, h)
	l.deliver(t, pdu.NewFrame(pdu.NewHeader(local, pdu.CC, 0x10), paramsPayload(t, 128, 1, "")))
	flush(t, tr, l)

	acks := func() (frames []pdu.Frame) {
		for _, f := range l.frames() {
			if f.Header.PType == pdu.RR || f.Header.PType == pdu.RNR {
				frames = append(frames, f)
			}
		}
		return
	}

	// Directly received I PDUs are acknowledged at once.
	recvs, recvCb := recvChan()
	require.NoError(t, tr.Recv(h, recvCb))
	l.deliver(t, iFrame(local, 0x10, 0, 0, []byte("a")))
	assert.Equal(t, []byte("a"), receiveData(t, recvs).data)
	flush(t, tr, l)
	require.Len(t, acks(), 1)
	assert.Equal(t, pdu.RR, acks()[0].Header.PType)
	assert.Equal(t, uint8(1), acks()[0].Sequence.NR)

	// Both I PDUs fit into the granted window and are queued unacknowledged.
	l.deliver(t, iFrame(local, 0x10, 1, 0, []byte("b")))
	l.deliver(t, iFrame(local, 0x10, 2, 0, []byte("c")))
	flush(t, tr, l)
	assert.Empty(t, framesOfType(l.frames(), pdu.FRMR))
	assert.Equal(t, StateConnected, socketState(t, tr, h))
	require.Len(t, acks(), 2)
	assert.Equal(t, pdu.RNR, acks()[1].Header.PType)
	assert.Equal(t, uint8(1), acks()[1].Sequence.NR)

	// Each Recv acknowledges one more I PDU.
	for i, data := range []string{"b", "c"} {
		require.NoError(t, tr.Recv(h, recvCb))
		assert.Equal(t, []byte(data), receiveData(t, recvs).data)
		flush(t, tr, l)

		last := acks()[len(acks())-1]
		assert.Equal(t, pdu.RR, last.Header.PType)
		assert.Equal(t, uint8(2+i), last.Sequence.NR)
	}

	// An I PDU beyond the acknowledged window is rejected.
	l.deliver(t, iFrame(local, 0x10, 3, 0, []byte("d")))
	l.deliver(t, iFrame(local, 0x10, 4, 0, []byte("e")))
	l.deliver(t, iFrame(local, 0x10, 5, 0, []byte("f")))
	assert.ErrorIs(t, receiveErr(t, socketErrs), ErrRejected)

	flush(t, tr, l)
	frmrs := framesOfType(l.frames(), pdu.FRMR)
	require.Len(t, frmrs, 1)
	var info pdu.FrameRejectInfo
	require.NoError(t, info.UnmarshalBinary(frmrs[0].Payload))
	assert.Equal(t, pdu.RejectS, info.Flags)
}

func TestSendExceedsRemoteMIU(t *testing.T) {
	tr, l := newTestTransport(t, DefaultConfig())
	h := connectSocket(t, tr, l, 0x10, nil)

	assert.ErrorIs(t, tr.Send(h, make([]byte, 257), nil), ErrInvalidParameter)
	assert.NoError(t, tr.Send(h, make([]byte, 256), nil))
}

func TestRecvTwice(t *testing.T) {
	tr, l := newTestTransport(t, DefaultConfig())
	h := connectSocket(t, tr, l, 0x10, nil)

	_, recvCb := recvChan()
	require.NoError(t, tr.Recv(h, recvCb))
	assert.ErrorIs(t, tr.Recv(h, recvCb), ErrRejected)
	assert.ErrorIs(t, tr.Recv(h, nil), ErrInvalidParameter)
}
