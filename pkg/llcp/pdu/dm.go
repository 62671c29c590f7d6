// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pdu

import "fmt"

// DMReason is the one octet reason of a DM PDU.
type DMReason uint8

const (
	// DMDisconnected acknowledges a DISC.
	DMDisconnected DMReason = 0x00
	// DMNoActiveConnection answers a PDU for an unknown connection.
	DMNoActiveConnection DMReason = 0x01
	// DMNoService answers a CONNECT to an unbound SAP or unknown service.
	DMNoService DMReason = 0x02
	// DMRejected answers a CONNECT refused by the service.
	DMRejected DMReason = 0x03
	// DMPermanentSAPReject refuses further CONNECTs to this SAP.
	DMPermanentSAPReject DMReason = 0x10
	// DMPermanentAllReject refuses further CONNECTs to any SAP.
	DMPermanentAllReject DMReason = 0x11
	// DMTemporarySAPReject refuses CONNECTs to this SAP for now.
	DMTemporarySAPReject DMReason = 0x20
	// DMTemporaryAllReject refuses CONNECTs to any SAP for now.
	DMTemporaryAllReject DMReason = 0x21
)

func (r DMReason) String() string {
	switch r {
	case DMDisconnected:
		return "Disconnected"
	case DMNoActiveConnection:
		return "No Active Connection"
	case DMNoService:
		return "No Service Bound"
	case DMRejected:
		return "Connect Rejected"
	case DMPermanentSAPReject:
		return "Permanent SAP Reject"
	case DMPermanentAllReject:
		return "Permanent Reject"
	case DMTemporarySAPReject:
		return "Temporary SAP Reject"
	case DMTemporaryAllReject:
		return "Temporary Reject"
	default:
		return fmt.Sprintf("Unknown(%#02x)", uint8(r))
	}
}

// ParseDMReason decodes a DM PDU's information field.
func ParseDMReason(data []byte) (DMReason, error) {
	if len(data) != 1 {
		return 0, fmt.Errorf("DM information of %d octets: %w", len(data), ErrInvalidField)
	}
	return DMReason(data[0]), nil
}
