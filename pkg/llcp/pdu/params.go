// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pdu

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	// DefaultMIU is the MIU without any MIUX extension.
	DefaultMIU = 128

	// MaxMIUX is the largest encodable MIU extension.
	MaxMIUX = 0x07FF

	// MaxMIU is DefaultMIU extended by MaxMIUX.
	MaxMIU = DefaultMIU + MaxMIUX

	// DefaultRW is the receive window without an RW parameter.
	DefaultRW = 1

	// MaxRW is the largest four bit receive window.
	MaxRW = 0x0F

	// Version is the LLCP version implemented by this package, 1.1.
	Version = 0x11

	// DefaultLTO is the link timeout without a LTO parameter.
	DefaultLTO = 100 * time.Millisecond
)

// ParamFlags marks which Parameters are present.
type ParamFlags uint8

const (
	HasVersion ParamFlags = 1 << iota
	HasMIUX
	HasWKS
	HasLTO
	HasRW
	HasServiceName
	HasOption
)

// Parameters is the TLV parameter list of PAX, CONNECT and CC PDUs.
type Parameters struct {
	Version     uint8
	MIUX        uint16
	WKS         uint16
	LTO         uint8
	RW          uint8
	ServiceName string
	Option      uint8

	Present ParamFlags
}

// Has checks if all given flags are present.
func (p Parameters) Has(flags ParamFlags) bool {
	return p.Present&flags == flags
}

// SetMIU sets the MIUX parameter for a MIU in octets.
func (p *Parameters) SetMIU(miu int) error {
	if miu < DefaultMIU || miu > MaxMIU {
		return fmt.Errorf("MIU %d out of range: %w", miu, ErrInvalidField)
	}
	p.MIUX = uint16(miu - DefaultMIU)
	p.Present |= HasMIUX
	return nil
}

// MIU returns the announced MIU or DefaultMIU.
func (p Parameters) MIU() int {
	if !p.Has(HasMIUX) {
		return DefaultMIU
	}
	return DefaultMIU + int(p.MIUX)
}

// SetRW sets the RW parameter.
func (p *Parameters) SetRW(rw uint8) error {
	if rw > MaxRW {
		return fmt.Errorf("RW %d out of range: %w", rw, ErrInvalidField)
	}
	p.RW = rw
	p.Present |= HasRW
	return nil
}

// ReceiveWindow returns the announced RW or DefaultRW.
func (p Parameters) ReceiveWindow() uint8 {
	if !p.Has(HasRW) {
		return DefaultRW
	}
	return p.RW
}

// SetServiceName sets the SN parameter.
func (p *Parameters) SetServiceName(name string) {
	p.ServiceName = name
	p.Present |= HasServiceName
}

// SetVersion sets the VERSION parameter.
func (p *Parameters) SetVersion(v uint8) {
	p.Version = v
	p.Present |= HasVersion
}

// SetWKS sets the well-known service list.
func (p *Parameters) SetWKS(wks uint16) {
	p.WKS = wks
	p.Present |= HasWKS
}

// SetLTO sets the link timeout, rounded down to 10 ms units.
func (p *Parameters) SetLTO(d time.Duration) {
	units := d / (10 * time.Millisecond)
	if units > 0xFF {
		units = 0xFF
	}
	p.LTO = uint8(units)
	p.Present |= HasLTO
}

// LinkTimeout returns the announced LTO or DefaultLTO.
func (p Parameters) LinkTimeout() time.Duration {
	if !p.Has(HasLTO) || p.LTO == 0 {
		return DefaultLTO
	}
	return time.Duration(p.LTO) * 10 * time.Millisecond
}

// SetOption sets the OPT parameter.
func (p *Parameters) SetOption(opt uint8) {
	p.Option = opt
	p.Present |= HasOption
}

func (p Parameters) String() string {
	var fields []string
	if p.Has(HasVersion) {
		fields = append(fields, fmt.Sprintf("VERSION=%d.%d", p.Version>>4, p.Version&0x0F))
	}
	if p.Has(HasMIUX) {
		fields = append(fields, fmt.Sprintf("MIUX=%d", p.MIUX))
	}
	if p.Has(HasWKS) {
		fields = append(fields, fmt.Sprintf("WKS=%#04x", p.WKS))
	}
	if p.Has(HasLTO) {
		fields = append(fields, fmt.Sprintf("LTO=%d", p.LTO))
	}
	if p.Has(HasRW) {
		fields = append(fields, fmt.Sprintf("RW=%d", p.RW))
	}
	if p.Has(HasServiceName) {
		fields = append(fields, fmt.Sprintf("SN=%q", p.ServiceName))
	}
	if p.Has(HasOption) {
		fields = append(fields, fmt.Sprintf("OPT=%#02x", p.Option))
	}
	return "Parameters(" + strings.Join(fields, ", ") + ")"
}

// MarshalBinary encodes all present parameters in ascending type order.
func (p Parameters) MarshalBinary() ([]byte, error) {
	w := NewTLVWriter(MaxMIU)

	var twoOctets [2]byte
	var steps = []struct {
		flag  ParamFlags
		typ   TLVType
		value func() []byte
	}{
		{HasVersion, TLVVersion, func() []byte { return []byte{p.Version} }},
		{HasMIUX, TLVMIUX, func() []byte {
			binary.BigEndian.PutUint16(twoOctets[:], p.MIUX&MaxMIUX)
			return twoOctets[:]
		}},
		{HasWKS, TLVWKS, func() []byte {
			binary.BigEndian.PutUint16(twoOctets[:], p.WKS)
			return twoOctets[:]
		}},
		{HasLTO, TLVLTO, func() []byte { return []byte{p.LTO} }},
		{HasRW, TLVRW, func() []byte { return []byte{p.RW & MaxRW} }},
		{HasServiceName, TLVSN, func() []byte { return []byte(p.ServiceName) }},
		{HasOption, TLVOpt, func() []byte { return []byte{p.Option} }},
	}

	for _, step := range steps {
		if !p.Has(step.flag) {
			continue
		}
		if err := w.Write(step.typ, step.value()); err != nil {
			return nil, err
		}
	}

	return w.Bytes(), nil
}

// UnmarshalBinary decodes a parameter list. Unknown TLV types are skipped, as
// required for forward compatibility; known types with a wrong length result
// in an error.
func (p *Parameters) UnmarshalBinary(data []byte) error {
	var params Parameters

	r := NewTLVReader(data)
	for {
		tlv, err := r.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return err
		}

		expectLen := func(n int) error {
			if len(tlv.Value) != n {
				return fmt.Errorf("%v parameter with length %d instead of %d: %w",
					tlv.Type, len(tlv.Value), n, ErrInvalidField)
			}
			return nil
		}

		switch tlv.Type {
		case TLVVersion:
			if err := expectLen(1); err != nil {
				return err
			}
			params.SetVersion(tlv.Value[0])

		case TLVMIUX:
			if err := expectLen(2); err != nil {
				return err
			}
			params.MIUX = binary.BigEndian.Uint16(tlv.Value) & MaxMIUX
			params.Present |= HasMIUX

		case TLVWKS:
			if err := expectLen(2); err != nil {
				return err
			}
			params.SetWKS(binary.BigEndian.Uint16(tlv.Value))

		case TLVLTO:
			if err := expectLen(1); err != nil {
				return err
			}
			params.LTO = tlv.Value[0]
			params.Present |= HasLTO

		case TLVRW:
			if err := expectLen(1); err != nil {
				return err
			}
			params.RW = tlv.Value[0] & MaxRW
			params.Present |= HasRW

		case TLVSN:
			params.SetServiceName(string(tlv.Value))

		case TLVOpt:
			if err := expectLen(1); err != nil {
				return err
			}
			params.SetOption(tlv.Value[0])
		}
	}

	*p = params
	return nil
}

// ParseParameters is a shorthand for Parameters.UnmarshalBinary.
func ParseParameters(data []byte) (p Parameters, err error) {
	err = p.UnmarshalBinary(data)
	return
}
