// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pdu

import "fmt"

// HeaderLen is the length of the LLCP header in octets.
const HeaderLen = 2

// SAP is a six bit Service Access Point address.
type SAP uint8

const (
	// SAPLinkManagement is the address of the link management component.
	SAPLinkManagement SAP = 0x00

	// SAPSDP is the well-known address of the service discovery protocol.
	SAPSDP SAP = 0x01

	// SAPWellKnownFirst is the first well-known service address.
	SAPWellKnownFirst SAP = 0x02

	// SAPAdvertisedFirst is the first address of the range for named
	// services, which are advertised through SDP.
	SAPAdvertisedFirst SAP = 0x10

	// SAPUnadvertisedFirst is the first address of the dynamic range.
	SAPUnadvertisedFirst SAP = 0x20

	// SAPMax is the largest six bit address.
	SAPMax SAP = 0x3F
)

// SDPServiceName is the well-known service name of the SDP itself.
const SDPServiceName = "urn:nfc:sn:sdp"

// IsValid checks if this SAP fits into six bits.
func (s SAP) IsValid() bool {
	return s <= SAPMax
}

// IsWellKnown reports addresses below the advertised range.
func (s SAP) IsWellKnown() bool {
	return s < SAPAdvertisedFirst
}

// IsAdvertised reports addresses of the SDP advertised range.
func (s SAP) IsAdvertised() bool {
	return s >= SAPAdvertisedFirst && s < SAPUnadvertisedFirst
}

// IsUnadvertised reports addresses of the dynamic range.
func (s SAP) IsUnadvertised() bool {
	return s >= SAPUnadvertisedFirst && s <= SAPMax
}

// Header is the LLCP header: destination SAP, PDU type and source SAP.
type Header struct {
	DSAP  SAP
	PType PType
	SSAP  SAP
}

// NewHeader creates a Header.
func NewHeader(dsap SAP, ptype PType, ssap SAP) Header {
	return Header{DSAP: dsap, PType: ptype, SSAP: ssap}
}

func (h Header) String() string {
	return fmt.Sprintf("%v(DSAP=%#02x, SSAP=%#02x)", h.PType, uint8(h.DSAP), uint8(h.SSAP))
}

// Put encodes this Header into the first two octets of buf.
func (h Header) Put(buf []byte) error {
	if len(buf) < HeaderLen {
		return ErrShortBuffer
	}
	if !h.DSAP.IsValid() || !h.SSAP.IsValid() || !h.PType.IsValid() {
		return fmt.Errorf("header %v: %w", h, ErrInvalidField)
	}

	buf[0] = uint8(h.DSAP)<<2 | uint8(h.PType)>>2
	buf[1] = uint8(h.PType)<<6 | uint8(h.SSAP)
	return nil
}

// ParseHeader decodes the first two octets of buf.
func ParseHeader(buf []byte) (h Header, err error) {
	if len(buf) < HeaderLen {
		err = ErrShortBuffer
		return
	}

	h.DSAP = SAP(buf[0] >> 2)
	h.PType = PType((buf[0]&0x03)<<2 | buf[1]>>6)
	h.SSAP = SAP(buf[1] & 0x3F)
	return
}
