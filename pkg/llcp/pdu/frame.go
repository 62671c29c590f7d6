// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pdu

import "fmt"

// Frame is one LLCP PDU. Sequence is only encoded for PDU types which carry a
// sequence octet.
type Frame struct {
	Header   Header
	Sequence Sequence
	Payload  []byte
}

// NewFrame creates a Frame without sequence octet.
func NewFrame(h Header, payload []byte) Frame {
	return Frame{Header: h, Payload: payload}
}

// NewSequencedFrame creates a Frame for I, RR or RNR PDUs.
func NewSequencedFrame(h Header, seq Sequence, payload []byte) Frame {
	return Frame{Header: h, Sequence: seq, Payload: payload}
}

// Len returns the encoded length of this Frame.
func (f Frame) Len() int {
	l := HeaderLen + len(f.Payload)
	if f.Header.PType.HasSequence() {
		l++
	}
	return l
}

func (f Frame) String() string {
	if f.Header.PType.HasSequence() {
		return fmt.Sprintf("%v[%v] %d octets", f.Header, f.Sequence, len(f.Payload))
	}
	return fmt.Sprintf("%v %d octets", f.Header, len(f.Payload))
}

// MarshalBinary encodes this Frame.
func (f Frame) MarshalBinary() ([]byte, error) {
	buf := make([]byte, f.Len())
	if err := f.Header.Put(buf); err != nil {
		return nil, err
	}

	off := HeaderLen
	if f.Header.PType.HasSequence() {
		buf[off] = f.Sequence.Byte()
		off++
	}
	copy(buf[off:], f.Payload)

	return buf, nil
}

// UnmarshalBinary decodes a Frame. The Payload references data.
func (f *Frame) UnmarshalBinary(data []byte) error {
	h, err := ParseHeader(data)
	if err != nil {
		return err
	}

	off := HeaderLen
	var seq Sequence
	if h.PType.HasSequence() {
		if len(data) < off+1 {
			return fmt.Errorf("%v without sequence octet: %w", h, ErrShortBuffer)
		}
		seq = ParseSequence(data[off])
		off++
	}

	f.Header = h
	f.Sequence = seq
	f.Payload = data[off:]
	return nil
}

// ParseFrame is a shorthand for Frame.UnmarshalBinary.
func ParseFrame(data []byte) (f Frame, err error) {
	err = f.UnmarshalBinary(data)
	return
}
