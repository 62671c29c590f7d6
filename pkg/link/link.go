// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package link

import (
	"errors"
	"fmt"
	"time"

	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

var (
	// ErrBusy is returned if a Send or Receive is already in flight.
	ErrBusy = errors.New("link: operation already in flight")

	// ErrClosed is returned for operations on a closed Link or FrameConn.
	ErrClosed = errors.New("link: closed")

	// ErrFrameTooLarge is returned for frames exceeding the peer's MIU.
	ErrFrameTooLarge = errors.New("link: frame exceeds MIU")

	// ErrVersionMismatch is returned if the peers' major versions differ.
	ErrVersionMismatch = errors.New("link: incompatible LLCP version")
)

// Link is an activated LLCP link. Both Send and Receive start one operation
// and report its completion through the callback, which might be called
// before the method returns. At most one Send and one Receive are in flight.
type Link interface {
	// Send transmits one frame. If an error is returned, done is not called.
	Send(frame pdu.Frame, done func(error)) error

	// Receive requests the next frame.  If an error is returned, done is not
	// called.
	Receive(done func(frame []byte, err error)) error

	// LocalParams are the parameters this side announced.
	LocalParams() Params

	// RemoteParams are the parameters the peer announced.
	RemoteParams() Params

	// Done is closed after the link was lost or closed.
	Done() <-chan struct{}

	// Close deactivates this Link.
	Close() error
}

// Params are the link parameters exchanged by PAX PDUs.
type Params struct {
	Version uint8
	MIU     int
	WKS     uint16
	LTO     time.Duration
	Option  uint8
}

// DefaultParams returns the parameters of a link without any extensions. Only
// link management and SDP are announced as well-known services.
func DefaultParams() Params {
	return Params{
		Version: pdu.Version,
		MIU:     pdu.DefaultMIU,
		WKS:     1<<pdu.SAPLinkManagement | 1<<pdu.SAPSDP,
		LTO:     pdu.DefaultLTO,
	}
}

func (p Params) String() string {
	return fmt.Sprintf("Params(version=%d.%d, miu=%d, wks=%#04x, lto=%v)",
		p.Version>>4, p.Version&0x0F, p.MIU, p.WKS, p.LTO)
}

// Parameters converts these Params into their TLV representation.
func (p Params) Parameters() (params pdu.Parameters, err error) {
	params.SetVersion(p.Version)
	if err = params.SetMIU(p.MIU); err != nil {
		return
	}
	params.SetWKS(p.WKS)
	params.SetLTO(p.LTO)
	if p.Option != 0 {
		params.SetOption(p.Option)
	}
	return
}

// ParamsFrom extracts link Params from a PAX parameter list.
func ParamsFrom(params pdu.Parameters) Params {
	p := Params{
		Version: params.Version,
		MIU:     params.MIU(),
		WKS:     params.WKS,
		LTO:     params.LinkTimeout(),
		Option:  params.Option,
	}
	if !params.Has(pdu.HasVersion) {
		p.Version = pdu.Version
	}
	return p
}
