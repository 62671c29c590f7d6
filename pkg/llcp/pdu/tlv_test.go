// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pdu

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTLVWriterOverflow(t *testing.T) {
	w := NewTLVWriter(6)

	require.NoError(t, w.Write(TLVRW, []byte{0x04}))
	assert.Equal(t, 3, w.Len())

	// Four octets would be required, only three are left.
	err := w.Write(TLVMIUX, []byte{0x00, 0x80})
	require.True(t, errors.Is(err, ErrBufferFull))
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, []byte{0x05, 0x01, 0x04}, w.Bytes())

	require.NoError(t, w.Write(TLVLTO, []byte{0x0A}))
	assert.Equal(t, 0, w.Remaining())

	w.Reset()
	assert.Equal(t, 0, w.Len())
}

func TestTLVWriterValueTooLong(t *testing.T) {
	w := NewTLVWriter(1024)
	err := w.Write(TLVSN, make([]byte, 256))
	assert.True(t, errors.Is(err, ErrValueTooLong))
	assert.Equal(t, 0, w.Len())
}

func TestTLVReaderTruncated(t *testing.T) {
	r := NewTLVReader([]byte{0x05, 0x01, 0x02, 0x06, 0x05, 'a'})

	tlv, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, TLV{Type: TLVRW, Value: []byte{0x02}}, tlv)

	_, err = r.Next()
	assert.True(t, errors.Is(err, ErrShortBuffer))
	assert.Contains(t, err.Error(), "SN")

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)

	for _, buf := range [][]byte{
		{byte(TLVSDREQ), 0x05, 0x00, 'a'},
		{byte(TLVSDRES), 0x02, 0x00},
		{byte(TLVSDREQ)},
		{byte(TLVRW), 0xFF},
	} {
		_, err := ReadTLVs(buf)
		assert.True(t, errors.Is(err, ErrShortBuffer), "%x", buf)
	}
}

func TestServiceDiscoveryRoundTrip(t *testing.T) {
	requests := []ServiceRequest{
		{TID: 0, Name: "urn:nfc:sn:snep"},
		{TID: 1, Name: "urn:nfc:sn:handover"},
		{TID: 2, Name: "urn:nfc:sn:test"},
	}
	responses := []ServiceResponse{{TID: 0, SAP: 0x04}, {TID: 1, SAP: 0x00}, {TID: 2, SAP: 0x11}}

	w := NewTLVWriter(DefaultMIU)
	for _, req := range requests {
		require.NoError(t, AppendServiceRequest(w, req))
	}
	for _, res := range responses {
		require.NoError(t, AppendServiceResponse(w, res))
	}

	tlvs, err := ReadTLVs(w.Bytes())
	require.NoError(t, err)
	require.Len(t, tlvs, len(requests)+len(responses))

	for i, req := range requests {
		require.Equal(t, TLVSDREQ, tlvs[i].Type)
		parsed, err := ParseServiceRequest(tlvs[i].Value)
		require.NoError(t, err)
		assert.Equal(t, req, parsed)
	}
	for i, res := range responses {
		tlv := tlvs[len(requests)+i]
		require.Equal(t, TLVSDRES, tlv.Type)
		parsed, err := ParseServiceResponse(tlv.Value)
		require.NoError(t, err)
		assert.Equal(t, res, parsed)
	}
}

func TestServiceDiscoveryMalformed(t *testing.T) {
	_, err := ParseServiceRequest([]byte{0x01})
	assert.True(t, errors.Is(err, ErrInvalidField))

	_, err = ParseServiceResponse([]byte{0x01})
	assert.True(t, errors.Is(err, ErrInvalidField))

	_, err = ParseServiceResponse([]byte{0x01, 0x02, 0x03})
	assert.True(t, errors.Is(err, ErrInvalidField))
}

func TestParameters(t *testing.T) {
	var p Parameters
	p.SetVersion(Version)
	require.NoError(t, p.SetMIU(248))
	require.NoError(t, p.SetRW(4))
	p.SetServiceName("urn:nfc:sn:snep")
	p.SetLTO(150 * time.Millisecond)

	data, err := p.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x01, 0x01, 0x11,
		0x02, 0x02, 0x00, 0x78,
		0x04, 0x01, 0x0F,
		0x05, 0x01, 0x04,
	}, data[:13])

	parsed, err := ParseParameters(data)
	require.NoError(t, err)
	assert.Equal(t, p, parsed)
	assert.Equal(t, 248, parsed.MIU())
	assert.Equal(t, uint8(4), parsed.ReceiveWindow())
	assert.Equal(t, 150*time.Millisecond, parsed.LinkTimeout())
}

func TestParametersDefaults(t *testing.T) {
	parsed, err := ParseParameters(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultMIU, parsed.MIU())
	assert.Equal(t, uint8(DefaultRW), parsed.ReceiveWindow())
	assert.Equal(t, DefaultLTO, parsed.LinkTimeout())

	var p Parameters
	assert.Error(t, p.SetMIU(DefaultMIU-1))
	assert.Error(t, p.SetRW(MaxRW+1))
}

func TestParametersUnknownAndInvalid(t *testing.T) {
	parsed, err := ParseParameters([]byte{0x42, 0x01, 0x00, 0x05, 0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, uint8(2), parsed.ReceiveWindow())

	_, err = ParseParameters([]byte{0x02, 0x01, 0x00})
	assert.True(t, errors.Is(err, ErrInvalidField))
}

func TestFrameRejectInfo(t *testing.T) {
	fri := FrameRejectInfo{
		Flags:    RejectS | RejectR,
		PType:    I,
		Sequence: Sequence{NS: 5, NR: 2},
		VS:       1, VR: 4, VSA: 0, VRA: 3,
	}

	data, err := fri.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x3C, 0x52, 0x14, 0x03}, data)

	var parsed FrameRejectInfo
	require.NoError(t, parsed.UnmarshalBinary(data))
	assert.Equal(t, fri, parsed)
	assert.Equal(t, "R|S", parsed.Flags.String())

	assert.Error(t, parsed.UnmarshalBinary(data[:3]))
}

func TestDMReason(t *testing.T) {
	r, err := ParseDMReason([]byte{0x02})
	require.NoError(t, err)
	assert.Equal(t, DMNoService, r)

	_, err = ParseDMReason(nil)
	assert.Error(t, err)
}
