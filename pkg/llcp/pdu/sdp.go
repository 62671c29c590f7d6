// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pdu

import "fmt"

// SDRESLen is the value length of a SDRES TLV: TID and SAP.
const SDRESLen = 2

// ServiceRequest is a SDREQ TLV, resolving Name with the transaction TID.
type ServiceRequest struct {
	TID  uint8
	Name string
}

// ServiceResponse is a SDRES TLV, answering the request TID with SAP. A SAP
// of zero indicates an unknown service.
type ServiceResponse struct {
	TID uint8
	SAP SAP
}

// AppendServiceRequest writes a SDREQ TLV to w.
func AppendServiceRequest(w *TLVWriter, req ServiceRequest) error {
	value := make([]byte, 1+len(req.Name))
	value[0] = req.TID
	copy(value[1:], req.Name)
	return w.Write(TLVSDREQ, value)
}

// AppendServiceResponse writes a SDRES TLV to w.
func AppendServiceResponse(w *TLVWriter, res ServiceResponse) error {
	return w.Write(TLVSDRES, []byte{res.TID, byte(res.SAP) & byte(SAPMax)})
}

// ParseServiceRequest decodes a SDREQ TLV's value. At least the TID and one
// octet of the name are required.
func ParseServiceRequest(value []byte) (req ServiceRequest, err error) {
	if len(value) < 2 {
		err = fmt.Errorf("SDREQ of %d octets: %w", len(value), ErrInvalidField)
		return
	}
	req.TID = value[0]
	req.Name = string(value[1:])
	return
}

// ParseServiceResponse decodes a SDRES TLV's value.
func ParseServiceResponse(value []byte) (res ServiceResponse, err error) {
	if len(value) != SDRESLen {
		err = fmt.Errorf("SDRES of %d octets: %w", len(value), ErrInvalidField)
		return
	}
	res.TID = value[0]
	res.SAP = SAP(value[1] & byte(SAPMax))
	return
}
