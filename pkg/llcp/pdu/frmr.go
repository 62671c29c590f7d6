// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pdu

import (
	"fmt"
	"strings"
)

// FrameRejectInfoLen is the length of a FRMR PDU's information field.
const FrameRejectInfoLen = 4

// RejectFlags are the W, I, R and S flags of a FRMR PDU.
type RejectFlags uint8

const (
	// RejectS indicates an invalid N(S).
	RejectS RejectFlags = 0x1
	// RejectR indicates an invalid N(R).
	RejectR RejectFlags = 0x2
	// RejectI indicates an information field exceeding the MIU.
	RejectI RejectFlags = 0x4
	// RejectW indicates a malformed or unknown PDU.
	RejectW RejectFlags = 0x8
)

func (rf RejectFlags) String() string {
	var flags []string
	for _, f := range []struct {
		flag RejectFlags
		name string
	}{{RejectW, "W"}, {RejectI, "I"}, {RejectR, "R"}, {RejectS, "S"}} {
		if rf&f.flag != 0 {
			flags = append(flags, f.name)
		}
	}
	return strings.Join(flags, "|")
}

// FrameRejectInfo is the information field of a FRMR PDU.
type FrameRejectInfo struct {
	Flags    RejectFlags
	PType    PType
	Sequence Sequence

	VS  uint8
	VR  uint8
	VSA uint8
	VRA uint8
}

func (fri FrameRejectInfo) String() string {
	return fmt.Sprintf("FRMR(flags=%v, ptype=%v, seq=%v, V(S)=%d, V(R)=%d, V(SA)=%d, V(RA)=%d)",
		fri.Flags, fri.PType, fri.Sequence, fri.VS, fri.VR, fri.VSA, fri.VRA)
}

// MarshalBinary encodes this FrameRejectInfo.
func (fri FrameRejectInfo) MarshalBinary() ([]byte, error) {
	return []byte{
		byte(fri.Flags&0x0F)<<4 | byte(fri.PType&0x0F),
		fri.Sequence.Byte(),
		(fri.VS&0x0F)<<4 | fri.VR&0x0F,
		(fri.VSA&0x0F)<<4 | fri.VRA&0x0F,
	}, nil
}

// UnmarshalBinary decodes a FRMR information field.
func (fri *FrameRejectInfo) UnmarshalBinary(data []byte) error {
	if len(data) != FrameRejectInfoLen {
		return fmt.Errorf("FRMR information of %d octets: %w", len(data), ErrInvalidField)
	}

	fri.Flags = RejectFlags(data[0] >> 4)
	fri.PType = PType(data[0] & 0x0F)
	fri.Sequence = ParseSequence(data[1])
	fri.VS, fri.VR = data[2]>>4, data[2]&0x0F
	fri.VSA, fri.VRA = data[3]>>4, data[3]&0x0F
	return nil
}
