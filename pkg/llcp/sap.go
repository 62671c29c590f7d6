// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package llcp

import (
	"fmt"

	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

// wellKnownServices maps service names to their well-known SAPs.
var wellKnownServices = map[string]pdu.SAP{
	pdu.SDPServiceName: pdu.SAPSDP,
	"urn:nfc:sn:ip":    0x02,
	"urn:nfc:sn:obex":  0x03,
	"urn:nfc:sn:snep":  0x04,
}

// GetFreeSap returns the SAP a socket bound to name would receive.
func (t *Transport) GetFreeSap(name string) (pdu.SAP, error) {
	t.mutex.Lock()
	defer t.unlock()

	return t.getFreeSap(name)
}

// getFreeSap prefers a cached SAP for name. Otherwise, well-known names map to
// their SAP, other names to the first free advertised SAP and an empty name to
// the first free unadvertised SAP. SAPs cached for other names are skipped.
func (t *Transport) getFreeSap(name string) (pdu.SAP, error) {
	if name != "" {
		if sap, ok := t.cachedSAP(name); ok {
			return sap, nil
		}

		if sap, ok := wellKnownServices[name]; ok {
			if sap == pdu.SAPSDP {
				return 0, fmt.Errorf("%q is reserved: %w", name, ErrInvalidParameter)
			}
			return sap, nil
		}
	}

	first, last := pdu.SAPUnadvertisedFirst, pdu.SAPMax
	if name != "" {
		first, last = pdu.SAPAdvertisedFirst, pdu.SAPUnadvertisedFirst-1
	}

	for sap := first; sap <= last; sap++ {
		if t.sockets.sapBound(sap) {
			continue
		}
		if cached, ok := t.cachedNameOf(sap); ok && cached != name {
			continue
		}
		return sap, nil
	}

	return 0, fmt.Errorf("no free SAP within [%d, %d]: %w", first, last, ErrInsufficientResources)
}
