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

type datagramResult struct {
	data []byte
	ssap pdu.SAP
	err  error
}

func datagramChan() (chan datagramResult, func([]byte, pdu.SAP, error)) {
	ch := make(chan datagramResult, 4)
	return ch, func(data []byte, ssap pdu.SAP, err error) { ch <- datagramResult{data, ssap, err} }
}

func receiveDatagram(t *testing.T, ch <-chan datagramResult) datagramResult {
	t.Helper()

	select {
	case res := <-ch:
		return res
	case <-time.After(time.Second):
		require.FailNow(t, "RecvFrom callback was not called")
		return datagramResult{}
	}
}

func boundDatagramSocket(t *testing.T, tr *Transport, name string) (Handle, pdu.SAP) {
	t.Helper()

	h, err := tr.Socket(Connectionless, SocketOptions{}, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Bind(h, name))

	local, _ := socketSAPs(t, tr, h)
	return h, local
}

func TestSendTo(t *testing.T) {
	tr, l := newTestTransport(t, DefaultConfig())
	h, local := boundDatagramSocket(t, tr, "")

	sendErrs, sendCb := errChan()
	require.NoError(t, tr.SendTo(h, 0x21, []byte("hello"), sendCb))
	waitIdle(t, tr)

	assert.Equal(t, pdu.NewFrame(pdu.NewHeader(0x21, pdu.UI, local), []byte("hello")), l.last(t))
	assert.Empty(t, sendErrs)

	flush(t, tr, l)
	assert.NoError(t, receiveErr(t, sendErrs))
}

func TestSendToInvalid(t *testing.T) {
	tr, l := newTestTransport(t, DefaultConfig())

	h, err := tr.Socket(Connectionless, SocketOptions{}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, tr.SendTo(h, 0x21, nil, nil), ErrInvalidState)

	require.NoError(t, tr.Bind(h, ""))
	assert.ErrorIs(t, tr.SendTo(h, pdu.SAPLinkManagement, nil, nil), ErrInvalidParameter)
	assert.ErrorIs(t, tr.SendTo(h, 0x40, nil, nil), ErrInvalidParameter)
	assert.ErrorIs(t, tr.SendTo(h, 0x21, make([]byte, l.remote.MIU+1), nil), ErrInvalidParameter)

	// The first datagram occupies the link, the second one waits.
	require.NoError(t, tr.SendTo(h, 0x21, []byte{1}, nil))
	require.NoError(t, tr.SendTo(h, 0x21, []byte{2}, nil))
	assert.ErrorIs(t, tr.SendTo(h, 0x21, []byte{3}, nil), ErrRejected)

	flush(t, tr, l)
	assert.Len(t, framesOfType(l.frames(), pdu.UI), 2)
}

func TestRecvFrom(t *testing.T) {
	tr, l := newTestTransport(t, DefaultConfig())
	h, local := boundDatagramSocket(t, tr, "urn:nfc:sn:dgram")

	recvs, recvCb := datagramChan()
	require.NoError(t, tr.RecvFrom(h, recvCb))
	assert.ErrorIs(t, tr.RecvFrom(h, recvCb), ErrRejected)

	l.deliver(t, pdu.NewFrame(pdu.NewHeader(local, pdu.UI, 0x22), []byte("first")))
	res := receiveDatagram(t, recvs)
	require.NoError(t, res.err)
	assert.Equal(t, []byte("first"), res.data)
	assert.Equal(t, pdu.SAP(0x22), res.ssap)

	// Datagrams without a pending RecvFrom are queued.
	l.deliver(t, pdu.NewFrame(pdu.NewHeader(local, pdu.UI, 0x23), []byte("second")))
	waitIdle(t, tr)

	require.NoError(t, tr.RecvFrom(h, recvCb))
	res = receiveDatagram(t, recvs)
	require.NoError(t, res.err)
	assert.Equal(t, []byte("second"), res.data)
	assert.Equal(t, pdu.SAP(0x23), res.ssap)
}

func TestRecvFromDrops(t *testing.T) {
	config := DefaultConfig()
	config.DatagramQueueLen = 2
	tr, l := newTestTransport(t, config)
	h, local := boundDatagramSocket(t, tr, "")

	// Unbound SAP and oversized datagram.
	l.deliver(t, pdu.NewFrame(pdu.NewHeader(0x3F, pdu.UI, 0x22), []byte("lost")))
	l.deliver(t, pdu.NewFrame(pdu.NewHeader(local, pdu.UI, 0x22), make([]byte, 129)))

	for i := byte(0); i < 3; i++ {
		l.deliver(t, pdu.NewFrame(pdu.NewHeader(local, pdu.UI, 0x22), []byte{i}))
	}
	waitIdle(t, tr)

	recvs, recvCb := datagramChan()
	for i := byte(0); i < 2; i++ {
		require.NoError(t, tr.RecvFrom(h, recvCb))
		assert.Equal(t, []byte{i}, receiveDatagram(t, recvs).data)
	}

	require.NoError(t, tr.RecvFrom(h, recvCb))
	waitIdle(t, tr)
	assert.Empty(t, recvs)
}

func TestDatagramSocketClose(t *testing.T) {
	tr, _ := newTestTransport(t, DefaultConfig())
	h, _ := boundDatagramSocket(t, tr, "")

	recvs, recvCb := datagramChan()
	require.NoError(t, tr.RecvFrom(h, recvCb))
	require.NoError(t, tr.Close(h))

	assert.ErrorIs(t, receiveDatagram(t, recvs).err, ErrSocketClosed)
}

func TestDatagramRemoteOptions(t *testing.T) {
	tr, l := newTestTransport(t, DefaultConfig())
	h, _ := boundDatagramSocket(t, tr, "")

	opts, err := tr.SocketGetRemoteOptions(h)
	require.NoError(t, err)
	assert.Equal(t, l.remote.MIU, opts.MIU)
}
