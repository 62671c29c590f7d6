// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package llcp

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/llcp-go/pkg/link"
	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

// Transport is the LLCP transport for one link at a time.
type Transport struct {
	config Config
	co     ConnectionOrientedEngine
	cl     ConnectionlessEngine

	// mutex guards everything below; deferred collects callbacks to be run
	// after unlocking.
	mutex    sync.Mutex
	deferred []func()

	link      link.Link
	session   uint64
	linkError bool
	stopped   bool
	logger    *log.Entry

	sockets socketTable
	names   []cachedName

	discovery    *discovery
	sdpResponses []pdu.ServiceResponse

	// orphans are DISC PDUs of closed sockets, waiting for the link.
	orphans []pdu.Frame

	serializer serializer
	inflight   inflight
	lastSender int

	events  *eventQueue
	stopSyn chan struct{}
	stopAck chan struct{}

	// inCallback is set while the handler runs a callback.
	inCallback atomic.Bool
}

// New creates a Transport and starts its goroutine. A link must be attached
// by Reset before sockets can be used.
func New(config Config) (*Transport, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	t := &Transport{
		config:  config,
		logger:  log.WithField("transport", "detached"),
		sockets: newSocketTable(config.MaxSockets),

		lastSender: config.MaxSockets - 1,

		events:  newEventQueue(),
		stopSyn: make(chan struct{}),
		stopAck: make(chan struct{}),
	}

	if config.ConnectionOriented != nil {
		t.co = config.ConnectionOriented(t)
	} else {
		t.co = newConnOrientedEngine(t)
	}
	if config.Connectionless != nil {
		t.cl = config.Connectionless(t)
	} else {
		t.cl = newConnectionlessEngine(t)
	}

	go t.handler()

	return t, nil
}

// handler is the Transport's goroutine, processing link completions and
// running callbacks.
func (t *Transport) handler() {
	for {
		select {
		case <-t.stopSyn:
			for ev, ok := t.events.pop(); ok; ev, ok = t.events.pop() {
				if ev.kind == eventCallback {
					t.runCallback(ev.fn)
				}
			}
			close(t.stopAck)
			return

		case <-t.events.notify:
			for ev, ok := t.events.pop(); ok; ev, ok = t.events.pop() {
				t.handle(ev)
			}
		}
	}
}

func (t *Transport) handle(ev event) {
	if ev.kind == eventCallback {
		t.runCallback(ev.fn)
		return
	}

	t.mutex.Lock()
	defer t.unlock()

	if t.link == nil || ev.session != t.session {
		t.logger.WithField("session", ev.session).Debug("Dropping event of a previous link")
		return
	}

	switch ev.kind {
	case eventReceived:
		t.handleReceived(ev.frame, ev.err)
	case eventSent:
		t.handleSent(ev.err)
	}
}

func (t *Transport) runCallback(fn func()) {
	t.inCallback.Store(true)
	defer t.inCallback.Store(false)

	fn()
}

// deferCallback schedules fn to be called after the lock was released.
func (t *Transport) deferCallback(fn func()) {
	t.deferred = append(t.deferred, fn)
}

// unlock releases the lock and hands all deferred callbacks to the handler.
func (t *Transport) unlock() {
	callbacks := t.deferred
	t.deferred = nil
	t.mutex.Unlock()

	for _, fn := range callbacks {
		t.events.push(event{kind: eventCallback, fn: fn})
	}
}

// Reset attaches a freshly activated link. All state of a previously attached
// link is discarded.
func (t *Transport) Reset(l link.Link) error {
	if l == nil {
		return fmt.Errorf("no link: %w", ErrInvalidParameter)
	}

	t.mutex.Lock()
	defer t.unlock()

	if t.stopped {
		return ErrTransportClosed
	}

	if t.link != nil {
		if err := t.closeAll(); err != nil {
			t.logger.WithError(err).Warn("Closing sockets of the previous link errored")
		}
	}

	t.link = l
	t.session++
	t.linkError = false
	t.logger = log.WithField("transport", fmt.Sprintf("%v", l))

	t.logger.WithFields(log.Fields{
		"local":  l.LocalParams(),
		"remote": l.RemoteParams(),
	}).Info("Transport attached to link")

	t.receive()
	return nil
}

// CloseAll closes every socket and detaches the link. Pending operations
// fail with ErrTransportClosed. The link itself is not closed.
func (t *Transport) CloseAll() error {
	t.mutex.Lock()
	defer t.unlock()

	return t.closeAll()
}

func (t *Transport) closeAll() (errs error) {
	for i := range t.sockets {
		s := &t.sockets[i]
		if s.state == StateDefault {
			continue
		}
		if err := t.closeSocket(s, ErrTransportClosed); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("closing %v: %w", s, err))
		}
	}

	if d := t.discovery; d != nil {
		t.discovery = nil
		t.deferCallback(func() { d.callback(nil, ErrTransportClosed) })
	}

	if done := t.inflight.done; done != nil {
		done(ErrTransportClosed)
	}

	t.names = nil
	t.sdpResponses = nil
	t.orphans = nil
	t.serializer.reset()
	t.inflight = inflight{}
	t.lastSender = len(t.sockets) - 1

	if t.link != nil {
		t.logger.Info("Transport detached from link")
	}
	t.link = nil
	t.session++

	return
}

// Shutdown closes all sockets and stops the Transport's goroutine after all
// outstanding callbacks were run. Called from within a callback, Shutdown
// returns without waiting for the remaining callbacks.
func (t *Transport) Shutdown() error {
	t.mutex.Lock()
	if t.stopped {
		t.mutex.Unlock()
		return nil
	}
	t.stopped = true
	err := t.closeAll()
	t.unlock()

	close(t.stopSyn)
	if !t.inCallback.Load() {
		<-t.stopAck
	}

	return err
}

// receive arms the link's receive path.
func (t *Transport) receive() {
	session := t.session
	err := t.link.Receive(func(frame []byte, err error) {
		t.events.push(event{kind: eventReceived, session: session, frame: frame, err: err})
	})
	if err != nil {
		t.linkFailed(err)
	}
}

// linkFailed marks the link as broken. This state is sticky until Reset.
func (t *Transport) linkFailed(err error) {
	if !t.linkError {
		t.logger.WithError(err).Warn("Link failed")
	}
	t.linkError = true
}

// remoteLinkMIU is the largest information field the peer accepts.
func (t *Transport) remoteLinkMIU() int {
	if t.link == nil {
		return pdu.DefaultMIU
	}
	return t.link.RemoteParams().MIU
}

// Sockets returns a snapshot of all used sockets.
func (t *Transport) Sockets() (infos []SocketInfo) {
	t.mutex.Lock()
	defer t.unlock()

	for i := range t.sockets {
		if t.sockets[i].state != StateDefault {
			infos = append(infos, t.sockets[i].info())
		}
	}
	return
}

// Names returns a snapshot of the service name cache.
func (t *Transport) Names() []NameEntry {
	t.mutex.Lock()
	defer t.unlock()

	entries := make([]NameEntry, 0, len(t.names))
	for _, cn := range t.names {
		entries = append(entries, NameEntry{Name: cn.name, SAP: uint8(cn.sap)})
	}
	return entries
}

func (t *Transport) String() string {
	t.mutex.Lock()
	defer t.unlock()

	if t.link == nil {
		return "Transport(detached)"
	}
	return fmt.Sprintf("Transport(%v)", t.link)
}
