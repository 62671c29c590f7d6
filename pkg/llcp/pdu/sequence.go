// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pdu

import "fmt"

// SequenceModulus is the modulus of the four bit sequence numbers.
const SequenceModulus = 16

// Sequence is the sequence octet of I, RR and RNR PDUs. RR and RNR only use
// the receive count; their send count is always zero.
type Sequence struct {
	NS uint8
	NR uint8
}

// Byte encodes this Sequence into one octet.
func (s Sequence) Byte() byte {
	return (s.NS&0x0F)<<4 | s.NR&0x0F
}

// ParseSequence decodes one sequence octet.
func ParseSequence(b byte) Sequence {
	return Sequence{NS: b >> 4, NR: b & 0x0F}
}

func (s Sequence) String() string {
	return fmt.Sprintf("N(S)=%d,N(R)=%d", s.NS, s.NR)
}

// SeqAdd adds two sequence numbers modulo 16.
func SeqAdd(a, b uint8) uint8 {
	return (a + b) % SequenceModulus
}

// SeqDistance returns (to - from) modulo 16.
func SeqDistance(from, to uint8) uint8 {
	return (to - from) % SequenceModulus
}
