// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package rf95

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtn7/llcp-go/pkg/link"
	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

// dummyHub connects dummyModems, each packet is delivered to all others.
type dummyHub struct {
	mutex  sync.Mutex
	modems []*dummyModem

	// corrupt flips a bit in the next n packets.
	corrupt int
}

func (dh *dummyHub) broadcast(from *dummyModem, packet []byte) {
	dh.mutex.Lock()
	defer dh.mutex.Unlock()

	packet = append([]byte(nil), packet...)
	if dh.corrupt > 0 {
		dh.corrupt--
		packet[0] ^= 0x01
	}

	for _, m := range dh.modems {
		if m != from {
			m.inChan <- packet
		}
	}
}

// dummyModem is a mocking Modem used for testing.
type dummyModem struct {
	mtu    int
	hub    *dummyHub
	inChan chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newDummyModem(mtu int, hub *dummyHub) *dummyModem {
	d := &dummyModem{
		mtu:    mtu,
		hub:    hub,
		inChan: make(chan []byte, 16),
		closed: make(chan struct{}),
	}

	hub.mutex.Lock()
	hub.modems = append(hub.modems, d)
	hub.mutex.Unlock()

	return d
}

func (d *dummyModem) Mtu() int { return d.mtu }

func (d *dummyModem) Write(packet []byte) (int, error) {
	if len(packet) > d.mtu {
		return 0, errors.New("packet exceeds MTU")
	}
	d.hub.broadcast(d, packet)
	return len(packet), nil
}

func (d *dummyModem) Read(buf []byte) (int, error) {
	select {
	case packet := <-d.inChan:
		return copy(buf, packet), nil
	case <-d.closed:
		return 0, io.EOF
	}
}

func (d *dummyModem) Close() error {
	d.closeOnce.Do(func() { close(d.closed) })
	return nil
}

func TestModemConnChecksum(t *testing.T) {
	hub := &dummyHub{corrupt: 1}
	a := NewModemConn(newDummyModem(64, hub))
	b := NewModemConn(newDummyModem(64, hub))

	require.NoError(t, a.WriteFrame([]byte("corrupted")))
	require.NoError(t, a.WriteFrame([]byte("valid")))

	frame, err := b.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte("valid"), frame)
}

func TestModemConnTooLarge(t *testing.T) {
	conn := NewModemConn(newDummyModem(16, &dummyHub{}))
	assert.True(t, errors.Is(conn.WriteFrame(make([]byte, 15)), ErrPacketTooLarge))
	assert.NoError(t, conn.WriteFrame(make([]byte, 14)))
}

func TestActivatorClampsMIU(t *testing.T) {
	hub := &dummyHub{}
	modemA, modemB := newDummyModem(251, hub), newDummyModem(251, hub)

	params := link.DefaultParams()
	params.MIU = pdu.MaxMIU

	actA := NewActivator("a", func() (Modem, error) { return modemA, nil }, params)
	actB := NewActivator("b", func() (Modem, error) { return modemB, nil }, params)

	type result struct {
		l   link.Link
		err error
	}
	resB := make(chan result, 1)
	go func() {
		l, err, _ := actB.Activate()
		resB <- result{l, err}
	}()

	la, err, _ := actA.Activate()
	require.NoError(t, err)
	rb := <-resB
	require.NoError(t, rb.err)

	assert.Equal(t, 251-crcLen-pdu.HeaderLen-1, la.RemoteParams().MIU)
	assert.Equal(t, 251-crcLen-pdu.HeaderLen-1, rb.l.LocalParams().MIU)

	_ = la.Close()
	_ = rb.l.Close()
}

func TestActivatorSmallMTU(t *testing.T) {
	act := NewActivator("tiny", func() (Modem, error) { return newDummyModem(64, &dummyHub{}), nil }, link.DefaultParams())
	_, err, retry := act.Activate()
	assert.True(t, errors.Is(err, ErrPacketTooLarge))
	assert.False(t, retry)
}
