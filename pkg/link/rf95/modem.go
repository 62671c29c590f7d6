// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
// SPDX-FileCopyrightText: 2026 The dtn7 Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package rf95

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/rf95modem-go/rf95"
)

// Modem broadcasts and receives radio packets of at most Mtu octets.
type Modem interface {
	Mtu() int
	Write(packet []byte) (int, error)
	Read(buf []byte) (int, error)
	Close() error
}

// serialModem is a Modem backed by a rf95modem on a serial device.
type serialModem struct {
	device string
	modem  *rf95.Modem
}

// OpenSerial opens a rf95modem on a serial device, e.g., /dev/ttyUSB0. A
// non-zero frequency, in MHz, is configured.
func OpenSerial(device string, frequency float64) (Modem, error) {
	m, err := rf95.OpenSerial(device)
	if err != nil {
		return nil, err
	}

	if frequency != 0 {
		log.WithFields(log.Fields{
			"device":    device,
			"frequency": frequency,
		}).Debug("Shifting frequency")

		if err := m.Frequency(frequency); err != nil {
			_ = m.Close()
			return nil, err
		}
	}

	return &serialModem{device: device, modem: m}, nil
}

func (sm *serialModem) Mtu() (mtu int) {
	mtu, _ = sm.modem.Mtu()
	return
}

func (sm *serialModem) Write(packet []byte) (int, error) {
	return sm.modem.Write(packet)
}

func (sm *serialModem) Read(buf []byte) (int, error) {
	return sm.modem.Read(buf)
}

func (sm *serialModem) Close() error {
	return sm.modem.Close()
}

func (sm *serialModem) String() string {
	return fmt.Sprintf("rf95modem%s", sm.device)
}
