// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pdu

import "errors"

var (
	// ErrShortBuffer is returned when a PDU or TLV is truncated.
	ErrShortBuffer = errors.New("pdu: short buffer")

	// ErrBufferFull is returned by a TLVWriter if the next TLV does not fit.
	// The writer's offset is left unchanged in this case.
	ErrBufferFull = errors.New("pdu: buffer full")

	// ErrValueTooLong is returned for TLV values exceeding 255 octets.
	ErrValueTooLong = errors.New("pdu: TLV value too long")

	// ErrInvalidField is returned for syntactically invalid fields.
	ErrInvalidField = errors.New("pdu: invalid field")
)
