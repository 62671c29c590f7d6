// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pdu

import (
	"fmt"
	"io"
)

// TLVType is the one octet type of a parameter TLV.
type TLVType uint8

const (
	TLVVersion TLVType = 0x01
	TLVMIUX    TLVType = 0x02
	TLVWKS     TLVType = 0x03
	TLVLTO     TLVType = 0x04
	TLVRW      TLVType = 0x05
	TLVSN      TLVType = 0x06
	TLVOpt     TLVType = 0x07
	TLVSDREQ   TLVType = 0x08
	TLVSDRES   TLVType = 0x09
)

func (t TLVType) String() string {
	switch t {
	case TLVVersion:
		return "VERSION"
	case TLVMIUX:
		return "MIUX"
	case TLVWKS:
		return "WKS"
	case TLVLTO:
		return "LTO"
	case TLVRW:
		return "RW"
	case TLVSN:
		return "SN"
	case TLVOpt:
		return "OPT"
	case TLVSDREQ:
		return "SDREQ"
	case TLVSDRES:
		return "SDRES"
	default:
		return fmt.Sprintf("UNKNOWN(%#x)", uint8(t))
	}
}

// TLVHeaderLen is the length of the type and length octets.
const TLVHeaderLen = 2

// TLV is one decoded type-length-value element.
type TLV struct {
	Type  TLVType
	Value []byte
}

// TLVWriter appends TLVs to a bounded buffer. The capacity is fixed at
// creation; a TLV which does not fit is never partially written.
type TLVWriter struct {
	buf []byte
	off int
}

// NewTLVWriter creates a TLVWriter over a new scratch buffer of size octets.
func NewTLVWriter(size int) *TLVWriter {
	return &TLVWriter{buf: make([]byte, size)}
}

// Write appends one TLV. If it does not fit, ErrBufferFull is returned and
// the writer remains unchanged.
func (w *TLVWriter) Write(t TLVType, value []byte) error {
	if len(value) > 0xFF {
		return fmt.Errorf("%v with %d octets: %w", t, len(value), ErrValueTooLong)
	}
	if w.off+TLVHeaderLen+len(value) > len(w.buf) {
		return ErrBufferFull
	}

	w.buf[w.off] = byte(t)
	w.buf[w.off+1] = byte(len(value))
	copy(w.buf[w.off+TLVHeaderLen:], value)
	w.off += TLVHeaderLen + len(value)
	return nil
}

// Len returns the amount of written octets.
func (w *TLVWriter) Len() int {
	return w.off
}

// Remaining returns the free capacity.
func (w *TLVWriter) Remaining() int {
	return len(w.buf) - w.off
}

// Bytes returns a copy of the written TLVs.
func (w *TLVWriter) Bytes() []byte {
	out := make([]byte, w.off)
	copy(out, w.buf[:w.off])
	return out
}

// Reset discards all written TLVs but keeps the capacity.
func (w *TLVWriter) Reset() {
	w.off = 0
}

// TLVReader iterates the TLVs of a buffer.
type TLVReader struct {
	buf []byte
	off int
}

// NewTLVReader creates a TLVReader for buf.
func NewTLVReader(buf []byte) *TLVReader {
	return &TLVReader{buf: buf}
}

// Next returns the next TLV or io.EOF once the buffer is exhausted. A
// truncated TLV results in ErrShortBuffer and ends the iteration.
func (r *TLVReader) Next() (tlv TLV, err error) {
	if r.off >= len(r.buf) {
		err = io.EOF
		return
	}
	if r.off+TLVHeaderLen > len(r.buf) {
		r.off = len(r.buf)
		err = ErrShortBuffer
		return
	}

	t, l := TLVType(r.buf[r.off]), int(r.buf[r.off+1])
	if r.off+TLVHeaderLen+l > len(r.buf) {
		r.off = len(r.buf)
		err = fmt.Errorf("%v TLV of %d octets: %w", t, l, ErrShortBuffer)
		return
	}

	tlv.Type = t
	tlv.Value = r.buf[r.off+TLVHeaderLen : r.off+TLVHeaderLen+l]
	r.off += TLVHeaderLen + l
	return
}

// ReadTLVs decodes all TLVs of buf.
func ReadTLVs(buf []byte) (tlvs []TLV, err error) {
	r := NewTLVReader(buf)
	for {
		tlv, tlvErr := r.Next()
		if tlvErr == io.EOF {
			return
		} else if tlvErr != nil {
			err = tlvErr
			return
		}
		tlvs = append(tlvs, tlv)
	}
}
