// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package llcp

import (
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

// maxDiscoveryNames is limited by the one octet transaction identifier.
const maxDiscoveryNames = 0x100

// discovery is an outstanding DiscoverServices call. Each name's index is
// used as its TID.
type discovery struct {
	names []string
	saps  []pdu.SAP

	// requested is the index of the next name to be sent.
	requested int
	// responses counts received SDRES TLVs.
	responses int

	callback func(saps []pdu.SAP, err error)
}

// DiscoverServices resolves service names to the peer's SAPs. The callback
// receives one SAP per name, zero for unknown services, once all responses
// have arrived. A new call supersedes an outstanding one, whose callback will
// never be called.
func (t *Transport) DiscoverServices(names []string, callback func(saps []pdu.SAP, err error)) error {
	if callback == nil {
		return fmt.Errorf("no callback: %w", ErrInvalidParameter)
	}
	if len(names) > maxDiscoveryNames {
		return fmt.Errorf("%d names exceed %d: %w", len(names), maxDiscoveryNames, ErrInvalidParameter)
	}

	t.mutex.Lock()
	defer t.unlock()

	if t.link == nil {
		return ErrTransportClosed
	}

	for _, name := range names {
		// A single SDREQ must fit into one SNL PDU.
		if l := pdu.TLVHeaderLen + 1 + len(name); name == "" || l-pdu.TLVHeaderLen > 0xFF || l > t.remoteLinkMIU() {
			return fmt.Errorf("service name %q cannot be requested: %w", name, ErrInvalidParameter)
		}
	}

	if t.discovery != nil {
		t.logger.WithField("names", t.discovery.names).Debug("Superseding outstanding service discovery")
	}

	if len(names) == 0 {
		t.discovery = nil
		t.deferCallback(func() { callback([]pdu.SAP{}, nil) })
		return nil
	}

	t.discovery = &discovery{
		names:    append([]string(nil), names...),
		saps:     make([]pdu.SAP, len(names)),
		callback: callback,
	}
	t.sendSDPRequests()
	return nil
}

// sendSDPRequests sends as many of the outstanding SDREQs as fit into one
// SNL PDU. The rest is left for the scheduler.
func (t *Transport) sendSDPRequests() bool {
	d := t.discovery
	if d == nil || d.requested >= len(d.names) {
		return false
	}

	w := pdu.NewTLVWriter(t.remoteLinkMIU())
	next := d.requested
	for ; next < len(d.names); next++ {
		if err := pdu.AppendServiceRequest(w, pdu.ServiceRequest{TID: uint8(next), Name: d.names[next]}); err != nil {
			break
		}
	}
	if w.Len() == 0 {
		return false
	}

	frame := pdu.NewFrame(pdu.NewHeader(pdu.SAPSDP, pdu.SNL, pdu.SAPSDP), w.Bytes())
	if err := t.linkSend(frame, nil, nil); err != nil {
		if !errors.Is(err, ErrBusy) {
			t.logger.WithError(err).Warn("Sending SDP requests errored")
		}
		return false
	}

	t.logger.WithFields(log.Fields{
		"first": d.requested,
		"last":  next - 1,
	}).Debug("Sent SDP requests")

	d.requested = next
	return true
}

// sendSDPResponses sends the collected SDRES TLVs as one SNL PDU. Responses
// not fitting into the PDU are dropped.
func (t *Transport) sendSDPResponses() bool {
	if len(t.sdpResponses) == 0 {
		return false
	}

	w := pdu.NewTLVWriter(t.remoteLinkMIU())
	n := 0
	for ; n < len(t.sdpResponses); n++ {
		if err := pdu.AppendServiceResponse(w, t.sdpResponses[n]); err != nil {
			break
		}
	}

	frame := pdu.NewFrame(pdu.NewHeader(pdu.SAPSDP, pdu.SNL, pdu.SAPSDP), w.Bytes())
	if err := t.linkSend(frame, nil, nil); err != nil {
		if !errors.Is(err, ErrBusy) {
			t.logger.WithError(err).Warn("Sending SDP responses errored")
		}
		return false
	}

	if n < len(t.sdpResponses) {
		t.logger.WithField("dropped", len(t.sdpResponses)-n).Debug("Truncated SDP responses")
	}
	t.sdpResponses = nil
	return true
}

// handleDiscoveryIncomingFrame processes the TLVs of a SNL PDU. Requests are
// answered by one SNL PDU; responses complete the outstanding discovery.
func (t *Transport) handleDiscoveryIncomingFrame(payload []byte) {
	r := pdu.NewTLVReader(payload)
	for {
		tlv, err := r.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			t.logger.WithError(err).Debug("Dropping remainder of SNL PDU")
			break
		}

		switch tlv.Type {
		case pdu.TLVSDREQ:
			t.handleServiceRequest(tlv.Value)
		case pdu.TLVSDRES:
			t.handleServiceResponse(tlv.Value)
		default:
			t.logger.WithField("tlv", tlv.Type).Debug("Ignoring TLV in SNL PDU")
		}
	}

	if len(t.sdpResponses) > 0 {
		t.sendSDPResponses()
	}

	if d := t.discovery; d != nil && d.responses >= len(d.names) {
		t.discovery = nil
		t.deferCallback(func() { d.callback(d.saps, nil) })
	}
}

func (t *Transport) handleServiceRequest(value []byte) {
	req, err := pdu.ParseServiceRequest(value)
	if err != nil {
		t.logger.WithError(err).Debug("Dropping malformed SDREQ")
		return
	}

	var sap pdu.SAP
	if req.Name == pdu.SDPServiceName {
		sap = pdu.SAPSDP
	} else if s := t.sockets.serviceByName(req.Name); s != nil {
		sap = s.localSAP
		t.cacheName(req.Name, sap)
	}

	if len(t.sdpResponses) >= t.config.SDPResponseMax {
		t.logger.WithField("request", req).Debug("Dropping SDREQ, too many responses pending")
		return
	}

	t.logger.WithFields(log.Fields{
		"request": req,
		"sap":     sap,
	}).Debug("Answering SDREQ")

	t.sdpResponses = append(t.sdpResponses, pdu.ServiceResponse{TID: req.TID, SAP: sap})
}

func (t *Transport) handleServiceResponse(value []byte) {
	d := t.discovery
	if d == nil {
		t.logger.Debug("Ignoring SDRES without an outstanding discovery")
		return
	}

	res, err := pdu.ParseServiceResponse(value)
	if err != nil {
		t.logger.WithError(err).Debug("Dropping malformed SDRES")
		return
	}
	if int(res.TID) >= len(d.names) {
		t.logger.WithField("response", res).Debug("Dropping SDRES with unknown TID")
		return
	}

	d.saps[res.TID] = res.SAP
	d.responses++
}
