// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package llcp

import (
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/llcp-go/pkg/link"
	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

// serializer guards the link's single send slot. Next to it, one FRMR and
// one DM might wait for the slot; both take precedence over any other PDU.
type serializer struct {
	mutex       sync.Mutex
	sendPending bool

	pendingFRMR *pdu.Frame
	pendingDM   *pdu.Frame
}

// TestAndSetSendPending claims the send slot. False is returned if the slot
// was already taken.
func (s *serializer) TestAndSetSendPending() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.sendPending {
		return false
	}
	s.sendPending = true
	return true
}

// ClearSendPending releases the send slot.
func (s *serializer) ClearSendPending() {
	s.mutex.Lock()
	s.sendPending = false
	s.mutex.Unlock()
}

// Pending reports if a frame is in flight.
func (s *serializer) Pending() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.sendPending
}

// queueControl stores a FRMR or DM frame in its slot. A previously queued
// frame of the same type is replaced and returned.
func (s *serializer) queueControl(frame pdu.Frame) (replaced *pdu.Frame) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	slot := &s.pendingDM
	if frame.Header.PType == pdu.FRMR {
		slot = &s.pendingFRMR
	}

	replaced = *slot
	*slot = &frame
	return
}

// takeControl removes the next control frame, FRMR before DM.
func (s *serializer) takeControl() (pdu.Frame, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, slot := range []**pdu.Frame{&s.pendingFRMR, &s.pendingDM} {
		if *slot != nil {
			frame := **slot
			*slot = nil
			return frame, true
		}
	}
	return pdu.Frame{}, false
}

func (s *serializer) reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sendPending = false
	s.pendingFRMR = nil
	s.pendingDM = nil
}

// inflight describes the frame currently sent by the link.
type inflight struct {
	frame pdu.Frame
	done  func(error)
}

// linkSend passes frame to the link if the send slot is free; otherwise
// ErrBusy is returned. The sender s is nil for frames of the Transport itself.
// On completion, done is called with the lock held.
func (t *Transport) linkSend(frame pdu.Frame, s *Socket, done func(error)) error {
	if t.link == nil {
		return ErrTransportClosed
	}
	if !t.serializer.TestAndSetSendPending() {
		return ErrBusy
	}

	session := t.session
	t.inflight = inflight{frame: frame, done: done}
	if s != nil {
		t.lastSender = s.index
	}

	err := t.link.Send(frame, func(err error) {
		t.events.push(event{kind: eventSent, session: session, err: err})
	})
	if err != nil {
		t.serializer.ClearSendPending()
		t.inflight = inflight{}

		if errors.Is(err, link.ErrFrameTooLarge) {
			return fmt.Errorf("sending %v: %w: %w", frame, ErrInvalidParameter, err)
		}
		t.linkFailed(err)
		return fmt.Errorf("sending %v: %w: %w", frame, ErrLinkError, err)
	}

	t.logger.WithField("frame", frame).Debug("Sending frame")
	return nil
}

// sendControl sends a FRMR or DM frame, or queues it if the link is busy.
func (t *Transport) sendControl(frame pdu.Frame) {
	err := t.linkSend(frame, nil, nil)
	if err == nil {
		return
	} else if !errors.Is(err, ErrBusy) {
		t.logger.WithError(err).WithField("frame", frame).Warn("Sending control frame errored")
		return
	}

	if replaced := t.serializer.queueControl(frame); replaced != nil {
		t.logger.WithFields(log.Fields{
			"queued":   frame,
			"replaced": *replaced,
		}).Warn("Replacing a control frame still waiting for the link")
	}
}

// handleSent processes the link's send completion: queued control frames
// go first, then the sender is informed, then pending operations continue.
func (t *Transport) handleSent(err error) {
	t.serializer.ClearSendPending()

	finished := t.inflight
	t.inflight = inflight{}

	if err != nil {
		t.logger.WithError(err).WithField("frame", finished.frame).Warn("Link failed to send frame")
		t.linkFailed(err)
	}

	if frame, ok := t.serializer.takeControl(); ok {
		if sendErr := t.linkSend(frame, nil, nil); sendErr != nil {
			t.logger.WithError(sendErr).WithField("frame", frame).Warn("Sending queued control frame errored")
		}
	}

	if finished.done != nil {
		finished.done(err)
	}

	t.schedule()
}
