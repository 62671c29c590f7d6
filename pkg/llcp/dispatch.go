// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package llcp

import (
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

// handleReceived processes one received frame and re-arms the receive path.
// A failed receive marks the link as broken and is not re-armed.
func (t *Transport) handleReceived(data []byte, err error) {
	if err != nil {
		t.linkFailed(err)
		return
	}

	if frame, parseErr := pdu.ParseFrame(data); parseErr != nil {
		t.logger.WithError(parseErr).Debug("Dropping unparsable frame")
	} else {
		t.dispatch(frame)
	}

	t.receive()
}

// dispatch routes a frame by its PDU type.
func (t *Transport) dispatch(frame pdu.Frame) {
	t.logger.WithField("frame", frame).Debug("Received frame")

	switch pt := frame.Header.PType; {
	case pt == pdu.UI:
		t.cl.HandleFrame(frame)

	case pt == pdu.SNL:
		if frame.Header.DSAP != pdu.SAPSDP || frame.Header.SSAP != pdu.SAPSDP {
			t.logger.WithField("frame", frame).Debug("Ignoring SNL PDU between non-SDP SAPs")
			return
		}
		t.handleDiscoveryIncomingFrame(frame.Payload)

	case pt.IsConnectionOriented():
		t.co.HandleFrame(frame)

	default:
		t.logger.WithFields(log.Fields{
			"frame": frame,
			"ptype": pt,
		}).Debug("Ignoring frame")
	}
}
