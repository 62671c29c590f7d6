// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package rf95

import (
	"fmt"

	"github.com/dtn7/llcp-go/pkg/link"
	"github.com/dtn7/llcp-go/pkg/llcp/pdu"
)

// Activator is a link.Activator which opens a Modem and exchanges PAX PDUs
// with the peer radio.
type Activator struct {
	name   string
	open   func() (Modem, error)
	params link.Params
}

// NewActivator creates an Activator using open to acquire its Modem.
func NewActivator(name string, open func() (Modem, error), params link.Params) *Activator {
	return &Activator{name: name, open: open, params: params}
}

// NewSerialActivator creates an Activator for a rf95modem on a serial device.
func NewSerialActivator(device string, frequency float64, params link.Params) *Activator {
	return NewActivator(
		fmt.Sprintf("rf95modem%s", device),
		func() (Modem, error) { return OpenSerial(device, frequency) },
		params)
}

func (a *Activator) Activate() (l link.Link, err error, retry bool) {
	modem, err := a.open()
	if err != nil {
		return nil, err, true
	}

	conn := NewModemConn(modem)

	// The announced MIU must fit into one packet, next to the header and
	// the sequence octet.
	params := a.params
	if maxMIU := conn.MaxFrameLen() - pdu.HeaderLen - 1; params.MIU > maxMIU {
		if maxMIU < pdu.DefaultMIU {
			_ = conn.Close()
			return nil, fmt.Errorf("%s: MTU %d cannot carry the default MIU: %w", a.name, modem.Mtu(), ErrPacketTooLarge), false
		}
		params.MIU = maxMIU
	}

	l, err = link.Activate(conn, a.name, params)
	return l, err, true
}

func (a *Activator) Close() error {
	return nil
}

func (a *Activator) String() string {
	return a.name
}
