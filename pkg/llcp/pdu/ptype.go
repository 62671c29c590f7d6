// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pdu

import "fmt"

// PType is the four bit PDU type of the LLCP header.
type PType uint8

const (
	SYMM    PType = 0x0
	PAX     PType = 0x1
	AGF     PType = 0x2
	UI      PType = 0x3
	CONNECT PType = 0x4
	DISC    PType = 0x5
	CC      PType = 0x6
	DM      PType = 0x7
	FRMR    PType = 0x8
	SNL     PType = 0x9

	// Reserved0A, Reserved0B and Reserved0F are not defined by LLCP 1.1. A
	// receiver answers them with a FRMR.
	Reserved0A PType = 0xA
	Reserved0B PType = 0xB

	I   PType = 0xC
	RR  PType = 0xD
	RNR PType = 0xE

	Reserved0F PType = 0xF
)

func (pt PType) String() string {
	switch pt {
	case SYMM:
		return "SYMM"
	case PAX:
		return "PAX"
	case AGF:
		return "AGF"
	case UI:
		return "UI"
	case CONNECT:
		return "CONNECT"
	case DISC:
		return "DISC"
	case CC:
		return "CC"
	case DM:
		return "DM"
	case FRMR:
		return "FRMR"
	case SNL:
		return "SNL"
	case I:
		return "I"
	case RR:
		return "RR"
	case RNR:
		return "RNR"
	case Reserved0A, Reserved0B, Reserved0F:
		return fmt.Sprintf("RESERVED(%#x)", uint8(pt))
	default:
		return "INVALID"
	}
}

// IsValid checks if this PType fits into the four bit header field.
func (pt PType) IsValid() bool {
	return pt <= 0xF
}

// IsReserved reports PDU types without a definition.
func (pt PType) IsReserved() bool {
	return pt == Reserved0A || pt == Reserved0B || pt == Reserved0F
}

// IsConnectionOriented reports the PDU types handled by connection-oriented
// sockets, including the reserved types which must be rejected there.
func (pt PType) IsConnectionOriented() bool {
	switch pt {
	case CONNECT, DISC, CC, DM, FRMR, I, RR, RNR:
		return true
	default:
		return pt.IsReserved()
	}
}

// HasSequence reports if this PDU type carries a sequence octet.
func (pt PType) HasSequence() bool {
	return pt == I || pt == RR || pt == RNR
}
