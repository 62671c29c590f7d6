// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package llcp

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dtn7/llcp-go/pkg/link"
	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

// recordingLink records sent frames. Completions are triggered by the test.
type recordingLink struct {
	mutex sync.Mutex

	local, remote link.Params

	sent     []pdu.Frame
	sendDone func(error)
	recvDone func([]byte, error)

	// overlaps counts Send calls while another frame was in flight.
	overlaps int

	doneChan chan struct{}
}

func newRecordingLink() *recordingLink {
	return &recordingLink{
		local:    link.DefaultParams(),
		remote:   link.DefaultParams(),
		doneChan: make(chan struct{}),
	}
}

func (l *recordingLink) Send(frame pdu.Frame, done func(error)) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.sendDone != nil {
		l.overlaps++
		return link.ErrBusy
	}
	if len(frame.Payload) > l.remote.MIU {
		return link.ErrFrameTooLarge
	}

	l.sent = append(l.sent, frame)
	l.sendDone = done
	return nil
}

func (l *recordingLink) Receive(done func([]byte, error)) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.recvDone != nil {
		return link.ErrBusy
	}
	l.recvDone = done
	return nil
}

func (l *recordingLink) LocalParams() link.Params  { return l.local }
func (l *recordingLink) RemoteParams() link.Params { return l.remote }
func (l *recordingLink) Done() <-chan struct{}     { return l.doneChan }
func (l *recordingLink) Close() error              { return nil }

// complete finishes the frame in flight, if any.
func (l *recordingLink) complete(err error) bool {
	l.mutex.Lock()
	done := l.sendDone
	l.sendDone = nil
	l.mutex.Unlock()

	if done == nil {
		return false
	}
	done(err)
	return true
}

func (l *recordingLink) inFlight() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.sendDone != nil
}

// deliver hands frame to the Transport's pending Receive.
func (l *recordingLink) deliver(t *testing.T, frame pdu.Frame) {
	t.Helper()

	data, err := frame.MarshalBinary()
	require.NoError(t, err)
	l.deliverRaw(t, data, nil)
}

func (l *recordingLink) deliverRaw(t *testing.T, data []byte, err error) {
	t.Helper()

	var done func([]byte, error)
	require.Eventually(t, func() bool {
		l.mutex.Lock()
		defer l.mutex.Unlock()

		done = l.recvDone
		l.recvDone = nil
		return done != nil
	}, time.Second, time.Millisecond)

	done(data, err)
}

func (l *recordingLink) frames() []pdu.Frame {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return append([]pdu.Frame(nil), l.sent...)
}

func (l *recordingLink) last(t *testing.T) pdu.Frame {
	t.Helper()

	frames := l.frames()
	require.NotEmpty(t, frames)
	return frames[len(frames)-1]
}

// newTestTransport creates a Transport attached to a recordingLink.
func newTestTransport(t *testing.T, config Config) (*Transport, *recordingLink) {
	t.Helper()

	tr, err := New(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Shutdown() })

	l := newRecordingLink()
	require.NoError(t, tr.Reset(l))
	return tr, l
}

// waitIdle blocks until the Transport processed every queued event.
func waitIdle(t *testing.T, tr *Transport) {
	t.Helper()

	for i := 0; i < 100; i++ {
		idle := make(chan bool, 1)
		tr.events.push(event{kind: eventCallback, fn: func() {
			idle <- tr.events.len() == 0
		}})

		select {
		case ok := <-idle:
			if ok {
				return
			}
		case <-time.After(time.Second):
			require.FailNow(t, "Transport did not become idle")
		}
	}
	require.FailNow(t, "Transport kept processing events")
}

// flush completes every frame sent until the link stays free.
func flush(t *testing.T, tr *Transport, l *recordingLink) {
	t.Helper()

	waitIdle(t, tr)
	for l.complete(nil) {
		waitIdle(t, tr)
	}
}

// errChan returns a callback reporting into a buffered channel.
func errChan() (chan error, func(error)) {
	ch := make(chan error, 4)
	return ch, func(err error) { ch <- err }
}

func receiveErr(t *testing.T, ch <-chan error) error {
	t.Helper()

	select {
	case err := <-ch:
		return err
	case <-time.After(time.Second):
		require.FailNow(t, "callback was not called")
		return nil
	}
}

func framesOfType(frames []pdu.Frame, ptype pdu.PType) (filtered []pdu.Frame) {
	for _, f := range frames {
		if f.Header.PType == ptype {
			filtered = append(filtered, f)
		}
	}
	return
}
